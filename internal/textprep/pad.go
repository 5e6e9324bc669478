package textprep

import (
	"fmt"

	"github.com/born-ml/embednet/internal/tensor"
)

// Side selects where padding is inserted or truncation removes tokens.
type Side int

const (
	// Pre pads (or truncates) at the start of a sequence.
	Pre Side = iota
	// Post pads (or truncates) at the end of a sequence.
	Post
)

// ParseSide parses "pre" or "post".
func ParseSide(s string) (Side, error) {
	switch s {
	case "pre":
		return Pre, nil
	case "post":
		return Post, nil
	}
	return 0, fmt.Errorf("padding side must be \"pre\" or \"post\", got %q", s)
}

// Pad returns seq fitted to exactly length ids.
//
// Shorter sequences are filled with PadID on the padding side; longer ones
// lose ids from the truncating side.
func Pad(seq []int, length int, padding, truncating Side) []int {
	if len(seq) > length {
		if truncating == Pre {
			seq = seq[len(seq)-length:]
		} else {
			seq = seq[:length]
		}
	}
	out := make([]int, length) // zero is PadID
	if padding == Pre {
		copy(out[length-len(seq):], seq)
	} else {
		copy(out, seq)
	}
	return out
}

// PadSequences pads every sequence and packs them into a (n, length) tensor
// of float ids ready for an embedding layer.
func PadSequences(seqs [][]int, length int, padding, truncating Side) (*tensor.Tensor, error) {
	if length <= 0 {
		return nil, fmt.Errorf("pad: length must be > 0, got %d", length)
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("pad: no sequences")
	}
	out := tensor.Zeros(tensor.Shape{len(seqs), length})
	for i, seq := range seqs {
		row := out.Row(i)
		for j, id := range Pad(seq, length, padding, truncating) {
			row[j] = float64(id)
		}
	}
	return out, nil
}
