package lockcore

import (
	"strings"
)

// Error is the lockcore error domain type.
//
// Errors coming from lockcore components should be able to be inspected as
// ([errors.As]) an *Error at some point in the error chain, and checked with
// [errors.Is] against one of the declared [ErrorKind] values.
//
// Intermediate layers should not wrap in another Error except to add
// additional [ErrorKind] information; the tournament package does exactly
// that when a lock operation fails partway through a tree traversal.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

// Assert this implements all the cool features.
var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	if e.Kind.known() {
		b.WriteString(string(e.Kind))
	} else {
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] over a specific error.
func (e *Error) Is(kind error) bool {
	return e.Kind == kind
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors to be checked against.
//
// If an error is unsure which kind to use, ErrInternal should be used.
type ErrorKind string

// Lock pool kinds.
var (
	ErrNoFreeSlots           = ErrorKind("no free slots")                // pool at capacity
	ErrInvalidArgument       = ErrorKind("invalid argument")             // bad role or out-of-range handle
	ErrLockInactive          = ErrorKind("lock inactive")                // destroyed or never allocated
	ErrDestroyedWhileWaiting = ErrorKind("lock destroyed while waiting") // destroy raced a spinning acquire
	ErrInvalidHandle         = ErrorKind("invalid handle")               // destroy with an out-of-range handle
	ErrAlreadyInactive       = ErrorKind("already inactive")             // destroy of an inactive slot
)

// Tournament kinds.
var (
	ErrInvalidParticipantCount = ErrorKind("invalid participant count") // not a power of two in [1,16]
	ErrSpawnFailure            = ErrorKind("spawn failure")             // a participant could not be started
	ErrAcquireFailed           = ErrorKind("acquire failed")            // tree traversal aborted on the way up
	ErrReleaseFailed           = ErrorKind("release failed")            // tree traversal aborted on the way down
)

// ErrInternal is for non-specific internal errors, such as bookkeeping that
// produced an impossible value.
var ErrInternal = ErrorKind("internal")

func (e ErrorKind) known() bool {
	switch e {
	case ErrNoFreeSlots,
		ErrInvalidArgument,
		ErrLockInactive,
		ErrDestroyedWhileWaiting,
		ErrInvalidHandle,
		ErrAlreadyInactive,
		ErrInvalidParticipantCount,
		ErrSpawnFailure,
		ErrAcquireFailed,
		ErrReleaseFailed,
		ErrInternal:
		return true
	}
	return false
}

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}
