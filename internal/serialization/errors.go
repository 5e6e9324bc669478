package serialization

import (
	"errors"
	"fmt"
)

// Errors returned while reading or writing .embn files.
var (
	ErrInvalidMagic       = errors.New("embn: not an .embn file")
	ErrUnsupportedVersion = errors.New("embn: unsupported format version")
	ErrHeaderTooLarge     = errors.New("embn: header exceeds maximum size")
	ErrTruncated          = errors.New("embn: data section shorter than declared")
	ErrChecksumMismatch   = errors.New("embn: data checksum mismatch")

	// ErrInvalidHeader matches every *ValidationError.
	ErrInvalidHeader = errors.New("embn: invalid header")
)

// Kind classifies a ValidationError.
type Kind string

// Header problems.
const (
	KindBadName     Kind = "bad_name"
	KindDuplicate   Kind = "duplicate"
	KindTooMany     Kind = "too_many_tensors"
	KindDType       Kind = "dtype"
	KindShape       Kind = "shape"
	KindSize        Kind = "size"
	KindOutOfBounds Kind = "out_of_bounds"
	KindOverlap     Kind = "overlap"
)

// ValidationError reports a header entry that does not describe float64 data
// inside the data section. Tensor is empty for header-wide problems.
type ValidationError struct {
	Kind   Kind
	Tensor string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Tensor == "" {
		return fmt.Sprintf("embn: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("embn: tensor %q: %s: %s", e.Tensor, e.Kind, e.Detail)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidHeader }
