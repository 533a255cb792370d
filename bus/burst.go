package bus

import "log"

// A BurstMode selects how beat addresses advance within a burst.
type BurstMode int

// The burst modes.
const (
	// BurstFixed repeats the start address on every beat.
	BurstFixed BurstMode = iota

	// BurstIncr advances to the next aligned beat-sized block on every
	// beat.
	BurstIncr

	// BurstWrap advances like BurstIncr but wraps at the boundary of the
	// container that holds the whole burst.
	BurstWrap
)

func (m BurstMode) String() string {
	switch m {
	case BurstFixed:
		return "FIXED"
	case BurstIncr:
		return "INCR"
	case BurstWrap:
		return "WRAP"
	}

	return "BurstMode(?)"
}

// BeatAddress returns the address of beat beatIndex of a burst that starts
// at base and transfers beatCount beats of beatBytes bytes each. The first
// beat always starts at base. Later beats start at aligned beat-sized
// blocks, so an unaligned base narrows the first beat rather than shifting
// the rest of the burst.
func BeatAddress(
	base uint64,
	beatBytes, beatCount int,
	mode BurstMode,
	beatIndex int,
) uint64 {
	size := uint64(beatBytes)

	switch mode {
	case BurstFixed:
		return base
	case BurstIncr:
		if beatIndex == 0 {
			return base
		}

		return alignDown(base, size) + uint64(beatIndex)*size
	case BurstWrap:
		container := uint64(beatCount) * size
		boundary := alignDown(base, container)
		addr := base + uint64(beatIndex)*size

		if addr >= boundary+container {
			addr -= container
		}

		return addr
	}

	log.Panicf("burst mode %d is not supported", mode)

	return 0
}

// BeatLanes returns the inclusive byte-lane range [low, high] that beat
// beatIndex occupies on a bus of busBytes data lanes. An unaligned base
// narrows the first beat of INCR and WRAP bursts to the bytes up to the
// next beat-sized boundary. FIXED bursts keep the lanes of the start
// address on every beat.
func BeatLanes(
	base uint64,
	beatBytes, beatCount int,
	mode BurstMode,
	busBytes int,
	beatIndex int,
) (low, high int) {
	if mode == BurstFixed {
		low = int(base % uint64(busBytes))
		return low, low + beatBytes - 1
	}

	addr := BeatAddress(base, beatBytes, beatCount, mode, beatIndex)

	n := beatBytes
	if beatIndex == 0 {
		n = beatBytes - int(base%uint64(beatBytes))
	}

	low = int(addr % uint64(busBytes))

	return low, low + n - 1
}

func alignDown(addr, size uint64) uint64 {
	return addr / size * size
}
