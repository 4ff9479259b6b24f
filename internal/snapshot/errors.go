package snapshot

import "fmt"

// FormatErrorKind classifies why a caps notification was rejected.
type FormatErrorKind int

const (
	MissingDimensions FormatErrorKind = iota + 1
	MissingLayout
	LayoutNotFixed
)

func (k FormatErrorKind) String() string {
	switch k {
	case MissingDimensions:
		return "missing dimensions"
	case MissingLayout:
		return "missing layout"
	case LayoutNotFixed:
		return "layout not fixed"
	default:
		return "unknown"
	}
}

// FormatError is returned by the format tracker when caps cannot be used.
type FormatError struct {
	Kind FormatErrorKind
	Caps string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format rejected (%s): %s", e.Kind, e.Caps)
}

// WriteErrorKind classifies a failed snapshot write.
type WriteErrorKind int

const (
	UnsupportedFormat WriteErrorKind = iota + 1
	EncodeFailed
	IoFailed
)

func (k WriteErrorKind) String() string {
	switch k {
	case UnsupportedFormat:
		return "unsupported format"
	case EncodeFailed:
		return "encode failed"
	case IoFailed:
		return "io failed"
	default:
		return "unknown"
	}
}

// WriteError is returned by the snapshot writer. None of these are fatal to
// the stream; the filter logs them and keeps forwarding frames.
type WriteError struct {
	Kind     WriteErrorKind
	Location string
	Err      error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("snapshot %s: %s", e.Location, e.Kind)
	}
	return fmt.Sprintf("snapshot %s: %s: %v", e.Location, e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
