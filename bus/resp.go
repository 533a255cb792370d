package bus

import "fmt"

// A Resp is the response code of a bus transfer.
type Resp int

// The response codes, ordered by severity.
const (
	RespOkay Resp = iota
	RespSlaveErr
	RespDecodeErr
)

// Combine merges two response codes, keeping the more severe one.
func Combine(a, b Resp) Resp {
	if b > a {
		return b
	}

	return a
}

func (r Resp) String() string {
	switch r {
	case RespOkay:
		return "OKAY"
	case RespSlaveErr:
		return "SLVERR"
	case RespDecodeErr:
		return "DECERR"
	}

	return fmt.Sprintf("Resp(%d)", int(r))
}
