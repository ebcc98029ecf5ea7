package dwg

import (
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// ReaderConfig holds configuration for a Reader
type ReaderConfig struct {
	// VerifyChecksums makes checksum mismatches fatal. When false they are
	// reported as notifications and reading continues.
	VerifyChecksums bool
	// RetainUnknown keeps records of unimplemented types as raw objects.
	RetainUnknown bool
	// StopAtFirstError turns a malformed object record into a fatal error
	// instead of skipping the record.
	StopAtFirstError bool
	// IgnoreUnsupportedTypes skips records whose type has no class.
	IgnoreUnsupportedTypes bool
	Notify                 notify.Handler
}

// DefaultReaderConfig returns the configuration used by the command line tools.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		VerifyChecksums: true,
		RetainUnknown:   true,
	}
}

// WriterConfig holds configuration for a Writer
type WriterConfig struct {
	// Version is the target version. Zero writes the document's own version.
	Version format.Version
	// RetainUnknown writes raw objects back when the target version matches
	// the version they were read from.
	RetainUnknown bool
	Notify        notify.Handler
}
