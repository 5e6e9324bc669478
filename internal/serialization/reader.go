package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/embednet/internal/tensor"
)

// ReaderOptions configures Read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Load reads an .embn file with strict validation.
func Load(path string) (map[string]*tensor.Tensor, Header, error) {
	return LoadWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// LoadWithOptions reads an .embn file with custom options.
func LoadWithOptions(path string, opts ReaderOptions) (map[string]*tensor.Tensor, Header, error) {
	//nolint:gosec // G304: path comes from the caller by design of the API
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	state, header, err := Read(bufio.NewReader(f), opts)
	if err != nil {
		return nil, Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return state, header, nil
}

// ReadHeader reads only the fixed and JSON headers from r.
func ReadHeader(r io.Reader) (Header, error) {
	header, _, _, err := readHeaders(r)
	return header, err
}

// Read decodes an .embn stream into a state dictionary.
func Read(r io.Reader, opts ReaderOptions) (map[string]*tensor.Tensor, Header, error) {
	header, dataSize, checksum, err := readHeaders(r)
	if err != nil {
		return nil, Header{}, err
	}
	if dataSize > math.MaxInt64/2 {
		return nil, Header{}, fmt.Errorf("%w: data size %d", ErrTruncated, dataSize)
	}
	//nolint:gosec // G115: bounded above
	if err := ValidateHeader(&header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, Header{}, fmt.Errorf("validation failed: %w", err)
	}

	//nolint:gosec // G115: bounded above
	data, err := io.ReadAll(io.LimitReader(r, int64(dataSize)))
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if uint64(len(data)) != dataSize {
		return nil, Header{}, fmt.Errorf("%w: got %d bytes, expected %d", ErrTruncated, len(data), dataSize)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), checksum); err != nil {
			return nil, Header{}, err
		}
	}

	state := make(map[string]*tensor.Tensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		if !inBounds(meta.Offset, meta.Size, int64(len(data))) {
			return nil, Header{}, &ValidationError{
				Kind:   KindOutOfBounds,
				Tensor: meta.Name,
				Detail: fmt.Sprintf("%d bytes at offset %d, data section is %d bytes", meta.Size, meta.Offset, len(data)),
			}
		}
		values := decodeFloat64s(data[meta.Offset : meta.Offset+meta.Size])
		t, err := tensor.FromSlice(values, tensor.Shape(meta.Shape))
		if err != nil {
			return nil, Header{}, fmt.Errorf("tensor %s: %w", meta.Name, err)
		}
		state[meta.Name] = t
	}
	return state, header, nil
}

func readHeaders(r io.Reader) (header Header, dataSize uint64, checksum [ChecksumSize]byte, err error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err = io.ReadFull(r, fixed); err != nil {
		return header, 0, checksum, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return header, 0, checksum, fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, fixed[0:4], MagicBytes)
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return header, 0, checksum, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize = binary.LittleEndian.Uint64(fixed[24:32])
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return header, 0, checksum, ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err = io.ReadFull(r, headerBytes); err != nil {
		return header, 0, checksum, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err = json.Unmarshal(headerBytes, &header); err != nil {
		return header, 0, checksum, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	padding := alignedHeaderEnd(headerSize) - int64(FixedHeaderSize) - int64(headerSize) //nolint:gosec // bounded above
	if padding > 0 {
		if _, err = io.CopyN(io.Discard, r, padding); err != nil {
			return header, 0, checksum, fmt.Errorf("failed to read padding: %w", err)
		}
	}
	return header, dataSize, checksum, nil
}

func decodeFloat64s(b []byte) []float64 {
	out := make([]float64, len(b)/float64Size)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*float64Size:]))
	}
	return out
}
