package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "EMBN"
	FormatVersion   = 1
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Size of the binary prefix before the JSON header
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // Checksum position in the fixed header

	// DTypeFloat64 is the only element type the engine produces.
	DTypeFloat64 = "float64"
	float64Size  = 8
)

// Flags for the .embn format.
const (
	FlagHasMetadata uint32 = 1 << 0 // custom metadata included
	FlagHasTraining uint32 = 1 << 1 // training summary included
)

// LibraryVersion is recorded in every file header.
const LibraryVersion = "0.1.0"

// Header is the JSON header of an .embn file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	LibraryVersion string            `json:"library_version"`
	ModelType      string            `json:"model_type"` // e.g. "recommender", "classifier"
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	Training       *TrainingMeta     `json:"training,omitempty"`
}

// TrainingMeta summarizes the run that produced the parameters.
type TrainingMeta struct {
	Epochs    int     `json:"epochs"`
	BatchSize int     `json:"batch_size"`
	Loss      string  `json:"loss"`       // Loss name, e.g. "mse"
	FinalLoss float64 `json:"final_loss"` // Training loss of the last epoch
	Optimizer string  `json:"optimizer"`  // e.g. "adam"
	LR        float64 `json:"lr"`
	Seed      int64   `json:"seed"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // Parameter name (e.g., "dense_1.kernel")
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Meta carries the caller-supplied parts of a header.
type Meta struct {
	ModelType string
	Metadata  map[string]string
	Training  *TrainingMeta
}

// alignedHeaderEnd returns the offset of the data section for a JSON header
// of n bytes.
func alignedHeaderEnd(n uint64) int64 {
	//nolint:gosec // G115: n is bounded by MaxHeaderSize
	pos := int64(FixedHeaderSize) + int64(n)
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
