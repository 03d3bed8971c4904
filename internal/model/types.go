package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Spec describes the image encoder behind a model type.
type Spec struct {
	Type           string
	Name           string
	InputName      string
	OutputName     string
	InputSize      int
	PixelMean      [3]float32
	PixelStd       [3]float32
	EmbeddingShape []int64
}

// EmbeddingLen is the number of elements in one embedding.
func (s Spec) EmbeddingLen() int {
	return shapeLen(s.EmbeddingShape)
}

// Metadata is the optional YAML sidecar stored next to a checkpoint.
// Zero values leave the registry spec untouched.
type Metadata struct {
	InputName      string    `yaml:"input_name"`
	OutputName     string    `yaml:"output_name"`
	InputSize      int       `yaml:"input_size"`
	EmbeddingShape []int64   `yaml:"embedding_shape"`
	PixelMean      []float32 `yaml:"pixel_mean"`
	PixelStd       []float32 `yaml:"pixel_std"`
}

// Apply returns spec with every field set in m overriding it.
func (m Metadata) Apply(spec Spec) (Spec, error) {
	if m.InputName != "" {
		spec.InputName = m.InputName
	}
	if m.OutputName != "" {
		spec.OutputName = m.OutputName
	}
	if m.InputSize < 0 {
		return spec, fmt.Errorf("input_size must be positive, got %d", m.InputSize)
	}
	if m.InputSize > 0 {
		spec.InputSize = m.InputSize
	}
	if len(m.EmbeddingShape) > 0 {
		if shapeLen(m.EmbeddingShape) <= 0 {
			return spec, fmt.Errorf("invalid embedding_shape %v", m.EmbeddingShape)
		}
		spec.EmbeddingShape = append([]int64(nil), m.EmbeddingShape...)
	}
	if len(m.PixelMean) > 0 {
		if len(m.PixelMean) != 3 {
			return spec, fmt.Errorf("pixel_mean needs 3 values, got %d", len(m.PixelMean))
		}
		copy(spec.PixelMean[:], m.PixelMean)
	}
	if len(m.PixelStd) > 0 {
		if len(m.PixelStd) != 3 {
			return spec, fmt.Errorf("pixel_std needs 3 values, got %d", len(m.PixelStd))
		}
		for _, v := range m.PixelStd {
			if v == 0 {
				return spec, fmt.Errorf("pixel_std must not contain zero")
			}
		}
		copy(spec.PixelStd[:], m.PixelStd)
	}
	return spec, nil
}

// Embedding is a dense float32 tensor produced by the image encoder.
type Embedding struct {
	Shape []int64
	Data  []float32
}

// ElementSize is the byte width of one embedding element.
const ElementSize = 4

// Len returns the number of elements.
func (e *Embedding) Len() int {
	return len(e.Data)
}

// Bytes returns the raw little-endian float32 representation.
func (e *Embedding) Bytes() []byte {
	buf := make([]byte, len(e.Data)*ElementSize)
	for i, v := range e.Data {
		binary.LittleEndian.PutUint32(buf[i*ElementSize:], math.Float32bits(v))
	}
	return buf
}

func shapeLen(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0
		}
		n *= int(d)
	}
	return n
}
