package palletjack

import (
	"errors"
	"fmt"

	"github.com/G-Research/palletjack/internal/thrift"
)

// Sentinel errors for the taxonomy this package returns. Callers should
// use errors.Is against these, not string matching; every returned error
// also carries human-readable context (file path, offending value) in its
// message.
//
// I/O failures are not a sentinel: they are surfaced as whatever
// *os.PathError or io error the standard library produced, optionally
// wrapped with fmt.Errorf for context, the same way callers of os.Open
// already expect to handle them.
var (
	// ErrFormat is returned when an index file's magic bytes, header, or
	// declared lengths don't match the PJ_2 layout.
	ErrFormat = errors.New("palletjack: invalid index file format")

	// ErrValidation is returned when an index being generated fails the
	// internal offset-table consistency checks.
	ErrValidation = errors.New("palletjack: index validation failed")

	// ErrRange is returned when a requested row group or column index is
	// out of bounds for the index being read.
	ErrRange = errors.New("palletjack: index out of range")

	// ErrArgument is returned for invalid combinations of caller
	// arguments, such as specifying both column indices and column names.
	ErrArgument = errors.New("palletjack: invalid argument")

	// ErrThrift is returned when the Thrift Compact encoding being parsed
	// is structurally invalid or exceeds a size limit.
	ErrThrift = thrift.ErrMalformed
)

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFormat}, args...)...)
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func rangeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrRange}, args...)...)
}

func argumentErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrArgument}, args...)...)
}

func thriftErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrThrift}, args...)...)
}
