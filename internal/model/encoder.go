package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

// Encoder runs a loaded image encoder on a preprocessed NCHW input.
type Encoder interface {
	Spec() Spec
	Device() Device
	Encode(input []float32) (*Embedding, error)
	Close() error
}

// LoadFunc instantiates the encoder for a model type from a checkpoint.
type LoadFunc func(modelType, checkpoint string, device Device) (Encoder, error)

// Loader builds ONNX Runtime backed encoders.
type Loader struct {
	// LibraryPath points at the onnxruntime shared library; empty uses
	// the platform default.
	LibraryPath string
	Registry    *Registry
}

// Load resolves modelType, reads the checkpoint and binds a session to
// device. The returned encoder must be closed by the caller.
func (l *Loader) Load(modelType, checkpoint string, device Device) (Encoder, error) {
	registry := l.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	spec, err := registry.Lookup(modelType)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(checkpoint); err != nil {
		return nil, IOError("open checkpoint", err)
	}
	spec, err = applySidecar(spec, checkpoint)
	if err != nil {
		return nil, err
	}

	if err := InitRuntime(l.LibraryPath); err != nil {
		return nil, IOError("load runtime", err)
	}

	options, err := sessionOptions(device)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(checkpoint,
		[]string{spec.InputName}, []string{spec.OutputName}, options)
	if err != nil {
		return nil, IOError("load checkpoint "+checkpoint, err)
	}

	return &ONNXEncoder{
		session: session,
		spec:    spec,
		device:  device,
	}, nil
}

// SidecarPath returns where the metadata file for checkpoint lives.
func SidecarPath(checkpoint string) string {
	return strings.TrimSuffix(checkpoint, filepath.Ext(checkpoint)) + ".yaml"
}

func applySidecar(spec Spec, checkpoint string) (Spec, error) {
	path := SidecarPath(checkpoint)
	if path == checkpoint {
		return spec, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return spec, nil
	}
	if err != nil {
		return spec, IOError("read metadata", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return spec, IOError("parse metadata "+path, err)
	}
	spec, err = meta.Apply(spec)
	if err != nil {
		return spec, IOError("apply metadata "+path, err)
	}
	return spec, nil
}

// ONNXEncoder is an Encoder backed by an onnxruntime session.
type ONNXEncoder struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	spec    Spec
	device  Device
}

func (e *ONNXEncoder) Spec() Spec     { return e.spec }
func (e *ONNXEncoder) Device() Device { return e.device }

// Encode runs one forward pass. input must hold 3*InputSize*InputSize values.
func (e *ONNXEncoder) Encode(input []float32) (*Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("encoder is closed")
	}

	size := int64(e.spec.InputSize)
	if int64(len(input)) != 3*size*size {
		return nil, fmt.Errorf("input has %d values, expected %d", len(input), 3*size*size)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(e.spec.EmbeddingShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	err = e.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor})
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := outputTensor.GetData()
	data := make([]float32, len(out))
	copy(data, out)

	return &Embedding{
		Shape: append([]int64(nil), e.spec.EmbeddingShape...),
		Data:  data,
	}, nil
}

// Close releases the session. The process-wide environment stays up.
func (e *ONNXEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
