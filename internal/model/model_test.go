package model

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownTypes(t *testing.T) {
	for _, tag := range []string{TypeViTH, TypeViTL, TypeViTB} {
		t.Run(tag, func(t *testing.T) {
			spec, err := Lookup(tag)
			require.NoError(t, err)
			assert.Equal(t, tag, spec.Type)
			assert.Equal(t, EncoderInputSize, spec.InputSize)
			assert.Equal(t, []int64{1, 256, 64, 64}, spec.EmbeddingShape)
			assert.Equal(t, 256*64*64, spec.EmbeddingLen())
		})
	}
}

func TestLookup_DefaultIsViTH(t *testing.T) {
	spec, err := Lookup(TypeDefault)
	require.NoError(t, err)
	assert.Equal(t, TypeViTH, spec.Type)
}

func TestLookup_UnknownType(t *testing.T) {
	_, err := Lookup("vit_x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "vit_x")
}

func TestLookup_ReturnsCopyOfShape(t *testing.T) {
	spec, err := Lookup(TypeViTB)
	require.NoError(t, err)
	spec.EmbeddingShape[0] = 99

	again, err := Lookup(TypeViTB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.EmbeddingShape[0])
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"default", "vit_b", "vit_h", "vit_l"}, Types())
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		name    string
		want    Device
		wantErr bool
	}{
		{"cpu", CPU, false},
		{"CPU", CPU, false},
		{"cuda", Device{Kind: DeviceCUDA}, false},
		{"cuda:1", Device{Kind: DeviceCUDA, Index: 1}, false},
		{" cuda:0 ", Device{Kind: DeviceCUDA}, false},
		{"cuda:-1", Device{}, true},
		{"cuda:x", Device{}, true},
		{"cpu:0", Device{}, true},
		{"mps", Device{}, true},
		{"", Device{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDevice(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrDevice))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeviceString(t *testing.T) {
	assert.Equal(t, "cpu", CPU.String())
	assert.Equal(t, "cuda:2", Device{Kind: DeviceCUDA, Index: 2}.String())
	assert.False(t, CPU.IsAccelerator())
	assert.True(t, Device{Kind: DeviceCUDA}.IsAccelerator())
}

func TestError_KeepsKindAndCause(t *testing.T) {
	err := IOError("open checkpoint", os.ErrNotExist)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrDecode))
	assert.Equal(t, "open checkpoint: io error: file does not exist", err.Error())

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "open checkpoint", e.Op)
}

func TestEmbeddingBytes(t *testing.T) {
	e := &Embedding{Shape: []int64{3}, Data: []float32{1, -2.5, 0}}
	b := e.Bytes()
	require.Len(t, b, 3*ElementSize)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, float32(-2.5), math.Float32frombits(binary.LittleEndian.Uint32(b[4:])))
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(b[8:])))
}

func TestMetadataApply(t *testing.T) {
	base, err := Lookup(TypeViTH)
	require.NoError(t, err)

	t.Run("empty keeps spec", func(t *testing.T) {
		got, err := Metadata{}.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("overrides", func(t *testing.T) {
		got, err := Metadata{
			InputName:      "input_image",
			OutputName:     "features",
			InputSize:      512,
			EmbeddingShape: []int64{1, 256, 32, 32},
			PixelMean:      []float32{1, 2, 3},
			PixelStd:       []float32{4, 5, 6},
		}.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, "input_image", got.InputName)
		assert.Equal(t, "features", got.OutputName)
		assert.Equal(t, 512, got.InputSize)
		assert.Equal(t, 256*32*32, got.EmbeddingLen())
		assert.Equal(t, [3]float32{1, 2, 3}, got.PixelMean)
		assert.Equal(t, [3]float32{4, 5, 6}, got.PixelStd)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, m := range []Metadata{
			{InputSize: -1},
			{EmbeddingShape: []int64{1, 0}},
			{PixelMean: []float32{1, 2}},
			{PixelStd: []float32{1, 0, 1}},
		} {
			_, err := m.Apply(base)
			assert.Error(t, err)
		}
	})
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, "model/sam_vit_h.yaml", SidecarPath("model/sam_vit_h.onnx"))
	assert.Equal(t, "model/encoder.yaml", SidecarPath("model/encoder"))
}

func TestApplySidecar(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "sam.onnx")
	base, err := Lookup(TypeViTB)
	require.NoError(t, err)

	got, err := applySidecar(base, ckpt)
	require.NoError(t, err)
	assert.Equal(t, base, got, "missing sidecar leaves spec untouched")

	require.NoError(t, os.WriteFile(SidecarPath(ckpt), []byte("input_name: pixels\ninput_size: 256\n"), 0600))
	got, err = applySidecar(base, ckpt)
	require.NoError(t, err)
	assert.Equal(t, "pixels", got.InputName)
	assert.Equal(t, 256, got.InputSize)
	assert.Equal(t, base.OutputName, got.OutputName)

	require.NoError(t, os.WriteFile(SidecarPath(ckpt), []byte("input_size: [oops"), 0600))
	_, err = applySidecar(base, ckpt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
}

func TestLoader_UnknownTypeBeforeIO(t *testing.T) {
	l := &Loader{}
	_, err := l.Load("nope", filepath.Join(t.TempDir(), "missing.onnx"), CPU)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrIO))
}

func TestLoader_MissingCheckpoint(t *testing.T) {
	l := &Loader{}
	_, err := l.Load(TypeViTH, filepath.Join(t.TempDir(), "missing.onnx"), CPU)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRegistry_Custom(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{Type: "tiny", EmbeddingShape: []int64{2, 2}})
	r.Alias("small", "tiny")

	spec, err := r.Lookup("small")
	require.NoError(t, err)
	assert.Equal(t, "tiny", spec.Type)
	assert.Equal(t, []string{"small", "tiny"}, r.Tags())

	_, err = r.Lookup(TypeViTH)
	assert.True(t, errors.Is(err, ErrConfiguration))
}
