package bus

// An ErrorMap holds injected per-byte response codes for one direction of a
// bus slave. Addresses without an entry resolve to the map's default
// response.
//
// An ErrorMap is not safe for concurrent use.
type ErrorMap struct {
	defaultResp   Resp
	clearOnAccess bool
	codes         map[uint64]Resp
}

// NewErrorMap creates an ErrorMap. Addresses without an injected code
// resolve to defaultResp. When clearOnAccess is set, a non-OKAY code reads
// as OKAY on every access after the first.
func NewErrorMap(defaultResp Resp, clearOnAccess bool) *ErrorMap {
	m := new(ErrorMap)
	m.defaultResp = defaultResp
	m.clearOnAccess = clearOnAccess
	m.codes = make(map[uint64]Resp)

	return m
}

// Peek returns the response code of the byte at the address without
// consuming it.
func (m *ErrorMap) Peek(addr uint64) Resp {
	if r, ok := m.codes[addr]; ok {
		return r
	}

	return m.defaultResp
}

// Observe returns the response code of the byte at the address. When the
// map clears on access, a non-OKAY code is reset to OKAY so later accesses
// of the byte succeed.
func (m *ErrorMap) Observe(addr uint64) Resp {
	r := m.Peek(addr)

	if m.clearOnAccess && r != RespOkay {
		m.codes[addr] = RespOkay
	}

	return r
}

// Inject sets the response code of the byte at the address.
func (m *ErrorMap) Inject(addr uint64, r Resp) {
	m.codes[addr] = r
}

// Clear removes the injected code of the byte at the address, reverting it
// to the default response.
func (m *ErrorMap) Clear(addr uint64) {
	delete(m.codes, addr)
}
