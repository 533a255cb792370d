package bus

import (
	"errors"
	"math"
)

// storeUnitSize is the size of the memory chunks the store allocates on
// first touch.
const storeUnitSize = 4096

// ErrOutOfRange is returned when an access falls outside the address space
// of a ByteStore.
var ErrOutOfRange = errors.New("address out of range")

// A ByteStore is a sparse, byte-addressable store. It allocates memory in
// fixed-size units when a unit is first written and tracks which bytes have
// ever been written, so never-written bytes can be told apart from zeros.
//
// A ByteStore is not safe for concurrent use.
type ByteStore struct {
	maxAddr uint64
	data    map[uint64][]byte
	written map[uint64][]uint64
}

// NewByteStore creates a ByteStore that spans an address space of the given
// width in bits.
func NewByteStore(addrWidth int) *ByteStore {
	if addrWidth <= 0 || addrWidth > 64 {
		panic("address width must be in the range of 1 to 64")
	}

	s := new(ByteStore)

	if addrWidth == 64 {
		s.maxAddr = math.MaxUint64
	} else {
		s.maxAddr = 1<<uint(addrWidth) - 1
	}

	s.data = make(map[uint64][]byte)
	s.written = make(map[uint64][]uint64)

	return s
}

func (s *ByteStore) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % storeUnitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *ByteStore) createOrGetUnit(baseAddr uint64) ([]byte, []uint64) {
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, storeUnitSize)
		s.data[baseAddr] = unit
		s.written[baseAddr] = make([]uint64, storeUnitSize/64)
	}

	return unit, s.written[baseAddr]
}

// WriteByte stores one byte and marks it as written.
func (s *ByteStore) WriteByte(addr uint64, v byte) error {
	if addr > s.maxAddr {
		return ErrOutOfRange
	}

	baseAddr, inUnitAddr := s.parseAddress(addr)
	unit, written := s.createOrGetUnit(baseAddr)

	unit[inUnitAddr] = v
	written[inUnitAddr/64] |= 1 << (inUnitAddr % 64)

	return nil
}

// ReadByte returns one byte and whether the byte has ever been written. A
// never-written byte reads as zero.
func (s *ByteStore) ReadByte(addr uint64) (v byte, known bool, err error) {
	if addr > s.maxAddr {
		return 0, false, ErrOutOfRange
	}

	baseAddr, inUnitAddr := s.parseAddress(addr)

	unit, ok := s.data[baseAddr]
	if !ok {
		return 0, false, nil
	}

	written := s.written[baseAddr]
	known = written[inUnitAddr/64]&(1<<(inUnitAddr%64)) != 0

	return unit[inUnitAddr], known, nil
}

// Known tells if the byte at the address has ever been written.
func (s *ByteStore) Known(addr uint64) bool {
	_, known, err := s.ReadByte(addr)
	if err != nil {
		return false
	}

	return known
}

// Write stores a run of bytes starting at the address, marking all of them
// as written.
func (s *ByteStore) Write(addr uint64, data []byte) error {
	n := uint64(len(data))
	if n == 0 {
		return nil
	}

	if addr > s.maxAddr || n-1 > s.maxAddr-addr {
		return ErrOutOfRange
	}

	written := uint64(0)
	for written < n {
		baseAddr, inUnitAddr := s.parseAddress(addr + written)
		unit, marks := s.createOrGetUnit(baseAddr)

		inUnitLen := storeUnitSize - inUnitAddr
		if inUnitLen > n-written {
			inUnitLen = n - written
		}

		copy(unit[inUnitAddr:inUnitAddr+inUnitLen],
			data[written:written+inUnitLen])

		for i := inUnitAddr; i < inUnitAddr+inUnitLen; i++ {
			marks[i/64] |= 1 << (i % 64)
		}

		written += inUnitLen
	}

	return nil
}

// Read returns a run of bytes starting at the address. Bytes that have
// never been written read as zero.
func (s *ByteStore) Read(addr uint64, n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}

	if addr > s.maxAddr || n-1 > s.maxAddr-addr {
		return nil, ErrOutOfRange
	}

	data := make([]byte, n)

	read := uint64(0)
	for read < n {
		baseAddr, inUnitAddr := s.parseAddress(addr + read)

		inUnitLen := storeUnitSize - inUnitAddr
		if inUnitLen > n-read {
			inUnitLen = n - read
		}

		if unit, ok := s.data[baseAddr]; ok {
			copy(data[read:read+inUnitLen],
				unit[inUnitAddr:inUnitAddr+inUnitLen])
		}

		read += inUnitLen
	}

	return data, nil
}
