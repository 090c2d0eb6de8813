package messages

import (
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// PidKeyHash is PID_KEY_HASH (RTPS 2.4 table 9.14): the instance handle
// carried inline on Data/DataFrag so a reader can recover per-instance
// identity without decoding the payload, spec.md §3, §4.3.
const PidKeyHash uint16 = 0x0070

// WithKeyHash returns ql with a PID_KEY_HASH entry for handle appended.
func WithKeyHash(ql xtypes.ParameterList, handle rtps.InstanceHandle) xtypes.ParameterList {
	b := handle.Bytes()
	ql.Add(PidKeyHash, b[:])
	return ql
}

// KeyHash extracts the PID_KEY_HASH parameter from ql, if present.
func KeyHash(ql xtypes.ParameterList) (rtps.InstanceHandle, bool) {
	body, ok := ql.Get(PidKeyHash)
	if !ok || len(body) != 16 {
		return rtps.InstanceHandleNil, false
	}
	var b [16]byte
	copy(b[:], body)
	return rtps.InstanceHandleFromBytes(b), true
}
