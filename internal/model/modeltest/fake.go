// Package modeltest provides in-memory encoders for tests that must not
// depend on the onnxruntime shared library.
package modeltest

import (
	"sync"

	"github.com/Brownie44l1/sam-embed/internal/model"
)

// SmallSpec is a SAM-like spec with a tiny input and embedding.
func SmallSpec() model.Spec {
	spec, _ := model.Lookup(model.TypeViTB)
	spec.InputSize = 16
	spec.EmbeddingShape = []int64{1, 4, 2, 2}
	return spec
}

// Encoder records calls and returns a deterministic embedding.
type Encoder struct {
	mu sync.Mutex

	SpecValue   model.Spec
	DeviceValue model.Device
	// Err is returned by Encode when set.
	Err error
	// OutputLen overrides the number of values returned by Encode.
	OutputLen int

	Calls     int
	Closed    bool
	LastInput []float32
}

// NewEncoder returns a fake encoder for spec.
func NewEncoder(spec model.Spec) *Encoder {
	return &Encoder{SpecValue: spec, DeviceValue: model.CPU}
}

func (e *Encoder) Spec() model.Spec     { return e.SpecValue }
func (e *Encoder) Device() model.Device { return e.DeviceValue }

func (e *Encoder) Encode(input []float32) (*model.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Calls++
	e.LastInput = input
	if e.Err != nil {
		return nil, e.Err
	}

	n := e.SpecValue.EmbeddingLen()
	if e.OutputLen > 0 {
		n = e.OutputLen
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i%7) * 0.5
	}
	return &model.Embedding{
		Shape: append([]int64(nil), e.SpecValue.EmbeddingShape...),
		Data:  data,
	}, nil
}

func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	return nil
}

// Loader hands out fresh fake encoders and remembers each of them.
type Loader struct {
	mu sync.Mutex

	Spec model.Spec
	// Err is returned by Load when set.
	Err error
	// EncodeErr is installed on every encoder created.
	EncodeErr error

	Encoders []*Encoder
}

// NewLoader returns a loader producing encoders for spec.
func NewLoader(spec model.Spec) *Loader {
	return &Loader{Spec: spec}
}

// Load satisfies model.LoadFunc.
func (l *Loader) Load(modelType, checkpoint string, device model.Device) (model.Encoder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return nil, l.Err
	}
	enc := NewEncoder(l.Spec)
	enc.DeviceValue = device
	enc.Err = l.EncodeErr
	l.Encoders = append(l.Encoders, enc)
	return enc, nil
}

// Loads reports how many encoders were created.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Encoders)
}

// AllClosed reports whether every created encoder was closed.
func (l *Loader) AllClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Encoders {
		if !e.Closed {
			return false
		}
	}
	return true
}
