package cache

import (
	"errors"
	"fmt"
)

var (
	ErrFormat             = errors.New("invalid cache file")
	ErrTruncatedInput     = errors.New("truncated input")
	ErrUnknownTag         = errors.New("unknown tag")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrResolution         = errors.New("cross-tag resolution failed")
)

// TruncatedInputError reports a read or seek that would leave the backing buffer.
type TruncatedInputError struct {
	Offset int64
	Want   int
	Size   int64
	// Seek is set when the cursor itself was moved out of range.
	Seek bool
}

func (e *TruncatedInputError) Error() string {
	if e.Seek {
		return fmt.Sprintf("truncated input: seek to %d is outside the buffer [0, %d]", e.Offset, e.Size)
	}
	return fmt.Sprintf("truncated input: need %d bytes at 0x%X, buffer is 0x%X bytes", e.Want, e.Offset, e.Size)
}

func (e *TruncatedInputError) Unwrap() error {
	return ErrTruncatedInput
}

// UnknownTagError reports an id missing from the index or string table.
type UnknownTagError struct {
	ID    uint32
	Table string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown %s id 0x%08X", e.Table, e.ID)
}

func (e *UnknownTagError) Unwrap() error {
	return ErrUnknownTag
}

// UnsupportedVersionError reports a class with no parser registered for the handle's version.
type UnsupportedVersionError struct {
	Class   ClassCode
	Version Version
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("no %q parser for %s", string(e.Class), e.Version)
}

func (e *UnsupportedVersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// ResolutionError names the hop of a cross-tag chain that broke.
type ResolutionError struct {
	Hop string
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolve %s", e.Hop)
	}
	return fmt.Sprintf("resolve %s: %v", e.Hop, e.Err)
}

// Unwrap matches both ErrResolution and the underlying cause.
func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrResolution}
	}
	return []error{ErrResolution, e.Err}
}

func formatErr(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(msg, args...))
}
