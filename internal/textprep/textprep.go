// Package textprep turns raw text into the padded id sequences the
// classifier consumes.
//
// Text is split into BPE tokens with tiktoken-go. BPE ids are sparse and large
// (cl100k_base has ~100k entries), so Fit remaps the tokens actually present in
// a corpus onto contiguous ids 1..N. Id 0 is reserved for padding.
package textprep

import (
	"fmt"

	"github.com/born-ml/embednet/internal/tensor"
	"github.com/pkoukk/tiktoken-go"
)

// PadID is the id written into padded positions.
const PadID = 0

// Encoder splits text into BPE token ids. *tiktoken.Tiktoken implements it.
type Encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// NewTikToken loads a tiktoken encoding such as "cl100k_base".
func NewTikToken(encodingName string) (Encoder, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return enc, nil
}

// Vocabulary maps BPE tokens seen during Fit onto contiguous ids.
type Vocabulary struct {
	enc     Encoder
	toID    map[int]int // BPE token -> contiguous id
	fromID  []int       // contiguous id -> BPE token; index 0 unused
	maxSize int
}

// NewVocabulary creates an empty vocabulary over enc. maxSize caps the number
// of ids including the padding id (0 means unlimited).
func NewVocabulary(enc Encoder, maxSize int) *Vocabulary {
	return &Vocabulary{
		enc:     enc,
		toID:    make(map[int]int),
		fromID:  []int{-1},
		maxSize: maxSize,
	}
}

// Fit assigns ids to every new BPE token in texts, in first-seen order.
// Once maxSize is reached further tokens are ignored.
func (v *Vocabulary) Fit(texts []string) {
	for _, text := range texts {
		for _, tok := range v.enc.Encode(text, nil, nil) {
			if _, ok := v.toID[tok]; ok {
				continue
			}
			if v.maxSize > 0 && len(v.fromID) >= v.maxSize {
				return
			}
			v.toID[tok] = len(v.fromID)
			v.fromID = append(v.fromID, tok)
		}
	}
}

// Size returns the embedding table size needed for these ids (tokens + pad).
func (v *Vocabulary) Size() int {
	return len(v.fromID)
}

// Encode maps text to contiguous ids. Tokens not seen during Fit are dropped.
func (v *Vocabulary) Encode(text string) []int {
	bpe := v.enc.Encode(text, nil, nil)
	ids := make([]int, 0, len(bpe))
	for _, tok := range bpe {
		if id, ok := v.toID[tok]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Decode maps contiguous ids back to text. Padding and unknown ids are skipped.
func (v *Vocabulary) Decode(ids []int) string {
	bpe := make([]int, 0, len(ids))
	for _, id := range ids {
		if id > PadID && id < len(v.fromID) {
			bpe = append(bpe, v.fromID[id])
		}
	}
	return v.enc.Decode(bpe)
}

// EncodeBatch encodes and pads texts into a (len(texts), length) id tensor.
func (v *Vocabulary) EncodeBatch(texts []string, length int, padding, truncating Side) (*tensor.Tensor, error) {
	seqs := make([][]int, len(texts))
	for i, text := range texts {
		seqs[i] = v.Encode(text)
	}
	return PadSequences(seqs, length, padding, truncating)
}
