package format

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrCorrupt              = &FormatError{"corrupt data"}
	ErrSentinelMismatch     = &FormatError{"sentinel mismatch"}
	ErrChecksumMismatch     = &FormatError{"checksum mismatch"}
	ErrSizeMismatch         = &FormatError{"size mismatch"}
	ErrDuplicateHandle      = &FormatError{"duplicate handle"}
	ErrMalformedHandleTable = &FormatError{"malformed handle table"}
	ErrTruncated            = &FormatError{"unexpected end of data"}
	ErrUnsupported          = &FormatError{"not supported"}
	ErrUnsupportedVersion   = &FormatError{"format version not supported"}
	ErrUnsupportedType      = &FormatError{"object type not supported"}
	ErrEncrypted            = &FormatError{"encrypted data not supported"}
)

// FormatError represents a container format error
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

// CorruptionError reports a structural violation together with the section
// and byte offset where it was detected. Offset is -1 when unknown.
type CorruptionError struct {
	Section string
	Offset  int64
	Err     error
}

// Corruption builds a CorruptionError for the named section.
func Corruption(section string, offset int64, err error) *CorruptionError {
	return &CorruptionError{Section: section, Offset: offset, Err: err}
}

func (e *CorruptionError) Error() string {
	switch {
	case e.Section != "" && e.Offset >= 0:
		return fmt.Sprintf("%s at offset 0x%X: %v", e.Section, e.Offset, e.Err)
	case e.Section != "":
		return fmt.Sprintf("%s: %v", e.Section, e.Err)
	case e.Offset >= 0:
		return fmt.Sprintf("offset 0x%X: %v", e.Offset, e.Err)
	}
	return e.Err.Error()
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Is reports every CorruptionError as ErrCorrupt in addition to its cause.
func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

// IsFatal reports whether err belongs to the corruption or unsupported classes.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return isAny(err, ErrCorrupt, ErrSentinelMismatch, ErrChecksumMismatch, ErrSizeMismatch,
		ErrDuplicateHandle, ErrMalformedHandleTable, ErrUnsupportedVersion, ErrEncrypted)
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
