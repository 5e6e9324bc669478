package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/born-ml/embednet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumCoversDataSection(t *testing.T) {
	state := map[string]*tensor.Tensor{
		"a.weight": tensor.MustFromSlice([]float64{1, -2.5, 3e10}, tensor.Shape{3}),
		"b.bias":   tensor.MustFromSlice([]float64{0.5}, tensor.Shape{1, 1}),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, state, Meta{ModelType: "toy"}))
	raw := buf.Bytes()

	dataSize := binary.LittleEndian.Uint64(raw[24:32])
	data := raw[len(raw)-int(dataSize):]

	// Sorted name order: a.weight then b.bias.
	assert.Equal(t, appendFloat64s(nil, []float64{1, -2.5, 3e10, 0.5}), data)

	var stored [ChecksumSize]byte
	copy(stored[:], raw[ChecksumOffset:ChecksumOffset+ChecksumSize])
	assert.Equal(t, ComputeChecksum(data), stored)

	streamed, err := ComputeChecksumReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, stored, streamed)
}

func TestChecksumIgnoresHeaderMetadata(t *testing.T) {
	state := map[string]*tensor.Tensor{"w": tensor.MustFromSlice([]float64{4, 2}, tensor.Shape{2})}

	var a, b bytes.Buffer
	require.NoError(t, Write(&a, state, Meta{ModelType: "recommender"}))
	require.NoError(t, Write(&b, state, Meta{ModelType: "classifier", Metadata: map[string]string{"k": "v"}}))

	assert.Equal(t,
		a.Bytes()[ChecksumOffset:ChecksumOffset+ChecksumSize],
		b.Bytes()[ChecksumOffset:ChecksumOffset+ChecksumSize])
}

func TestValidateChecksum_Mismatch(t *testing.T) {
	good := ComputeChecksum(appendFloat64s(nil, []float64{1}))
	bad := ComputeChecksum(appendFloat64s(nil, []float64{-1}))

	require.NoError(t, ValidateChecksum(good, good))

	err := ValidateChecksum(bad, good)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Contains(t, err.Error(), hex.EncodeToString(good[:8]))
	assert.Contains(t, err.Error(), hex.EncodeToString(bad[:8]))
}
