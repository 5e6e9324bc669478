package serialization

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls how much of a header is checked before data is
// decoded. Read bounds-checks every tensor region at all levels.
type ValidationLevel int

const (
	// ValidationStrict checks entries and their regions in the data section (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names, dtypes and sizes but not region layout.
	ValidationNormal
	// ValidationNone skips header validation.
	ValidationNone
)

// inBounds reports whether [offset, offset+size) lies within dataSize bytes.
// offset+size is never computed, so hostile values cannot wrap.
func inBounds(offset, size, dataSize int64) bool {
	return offset >= 0 && size >= 0 && size <= dataSize && offset <= dataSize-size
}

// ValidateTensorOffsets checks that every tensor lies inside a data section of
// dataSize bytes and that no two tensors share a byte.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Kind:   KindTooMany,
			Detail: fmt.Sprintf("%d tensors, max %d", len(tensors), MaxTensorCount),
		}
	}

	order := make([]int, len(tensors))
	for i, t := range tensors {
		if !inBounds(t.Offset, t.Size, dataSize) {
			return &ValidationError{
				Kind:   KindOutOfBounds,
				Tensor: t.Name,
				Detail: fmt.Sprintf("%d bytes at offset %d, data section is %d bytes", t.Size, t.Offset, dataSize),
			}
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return tensors[order[a]].Offset < tensors[order[b]].Offset
	})

	var end int64
	var prev string
	for _, i := range order {
		t := tensors[i]
		if t.Offset < end {
			return &ValidationError{
				Kind:   KindOverlap,
				Tensor: t.Name,
				Detail: fmt.Sprintf("starts at %d inside %q, which ends at %d", t.Offset, prev, end),
			}
		}
		end, prev = t.Offset+t.Size, t.Name
	}
	return nil
}

// ValidateTensorName accepts parameter names such as "dense_0.kernel". Names
// must be non-empty and free of path syntax, whitespace and control characters.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Kind: KindBadName, Detail: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Kind:   KindBadName,
			Tensor: name[:32] + "...",
			Detail: fmt.Sprintf("%d bytes, max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Kind: KindBadName, Tensor: name, Detail: `contains ".."`}
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return &ValidationError{Kind: KindBadName, Tensor: name, Detail: fmt.Sprintf("contains %q", r)}
		}
	}
	return nil
}

// ValidateTensorMeta checks that an entry is float64 data whose byte size
// matches its shape.
func ValidateTensorMeta(t TensorMeta) error {
	if t.DType != DTypeFloat64 {
		return &ValidationError{Kind: KindDType, Tensor: t.Name, Detail: fmt.Sprintf("%q, want %q", t.DType, DTypeFloat64)}
	}
	if len(t.Shape) == 0 {
		return &ValidationError{Kind: KindShape, Tensor: t.Name, Detail: "no dimensions"}
	}

	const maxElems = math.MaxInt64 / float64Size
	elems := int64(1)
	for _, d := range t.Shape {
		if d <= 0 {
			return &ValidationError{Kind: KindShape, Tensor: t.Name, Detail: fmt.Sprintf("dimension %d in %v", d, t.Shape)}
		}
		if int64(d) > maxElems/elems {
			return &ValidationError{Kind: KindShape, Tensor: t.Name, Detail: fmt.Sprintf("%v has too many elements", t.Shape)}
		}
		elems *= int64(d)
	}

	if want := elems * float64Size; want != t.Size {
		return &ValidationError{
			Kind:   KindSize,
			Tensor: t.Name,
			Detail: fmt.Sprintf("shape %v needs %d bytes, entry declares %d", t.Shape, want, t.Size),
		}
	}
	return nil
}

// ValidateHeader validates h against a data section of dataSize bytes.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Kind:   KindTooMany,
			Detail: fmt.Sprintf("%d tensors, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return &ValidationError{Kind: KindDuplicate, Tensor: t.Name, Detail: "listed more than once"}
		}
		seen[t.Name] = struct{}{}
		if err := ValidateTensorMeta(t); err != nil {
			return err
		}
	}

	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}
