package meshopt

import "errors"

var (
	// ErrInvalidArgument reports a precondition violation detected before any
	// buffer is touched: nil or mis-sized buffers, bad counts, bad options.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndexOutOfRange reports an index or neighbor value beyond the
	// declared vertex or face count. In-place operations may already have
	// mutated their buffers when this is returned.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrOverflow reports that a resulting vertex or face count would not fit
	// in a signed 32-bit index.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrNotSupported reports an option combination the operation cannot serve.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidData reports input values that cannot be processed, such as a
	// zero-length normal passed to the tangent frame calculation.
	ErrInvalidData = errors.New("invalid data")

	// ErrUnexpected reports mesh structure that the repair passes cannot make
	// sense of (for example a neighbor link to a face that does not share the
	// vertex being walked).
	ErrUnexpected = errors.New("unexpected mesh structure")
)
