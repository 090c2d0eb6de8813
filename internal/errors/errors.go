// Package errors defines the DDS ReturnCode taxonomy used at every public API
// edge of this module. Every operation that can fail returns one of these
// sentinel errors (or nil for success), never a bare string.
package errors

import "errors"

// ReturnCode sentinels, per spec.md §6/§7. "Ok" has no sentinel: success is a
// nil error.
var (
	ErrUnsupported         = errors.New("rtpsgo: unsupported")
	ErrBadParameter        = errors.New("rtpsgo: bad parameter")
	ErrPreconditionNotMet  = errors.New("rtpsgo: precondition not met")
	ErrOutOfResources      = errors.New("rtpsgo: out of resources")
	ErrNotEnabled          = errors.New("rtpsgo: not enabled")
	ErrImmutablePolicy     = errors.New("rtpsgo: immutable policy")
	ErrInconsistentPolicy  = errors.New("rtpsgo: inconsistent policy")
	ErrAlreadyDeleted      = errors.New("rtpsgo: already deleted")
	ErrTimeout             = errors.New("rtpsgo: timeout")
	ErrNoData              = errors.New("rtpsgo: no data")
	ErrIllegalOperation    = errors.New("rtpsgo: illegal operation")
)

// Is reports whether err wraps target via errors.Is, provided for call sites
// that prefer a single-import helper over importing stdlib errors directly.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
