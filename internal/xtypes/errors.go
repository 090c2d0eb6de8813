package xtypes

import "errors"

// ErrInvalidData is returned for non-ASCII char/string values or a length
// that would overflow u32, per spec.md §4.1.
var ErrInvalidData = errors.New("xtypes: invalid data")

// ErrBufferUnderflow is returned when decoding runs past the end of the
// input buffer — always a malformed-wire-input condition, handled by the
// caller per spec.md §7 (dropped with a debug log, never a user error).
var ErrBufferUnderflow = errors.New("xtypes: buffer underflow")
