// Package pipeline runs one embedding computation: load the model, ingest
// the image, bind it to a predictor and read back the embedding.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/sam-embed/internal/imageio"
	"github.com/Brownie44l1/sam-embed/internal/model"
	"github.com/Brownie44l1/sam-embed/internal/predictor"
	"github.com/Brownie44l1/sam-embed/internal/telemetry"
)

// Source produces the image for one run.
type Source interface {
	Decode() (*imageio.Image, error)
}

// File is an image read from disk.
type File string

func (f File) Decode() (*imageio.Image, error) { return imageio.ReadFile(string(f)) }

// Bytes is an encoded image held in memory.
type Bytes []byte

func (b Bytes) Decode() (*imageio.Image, error) { return imageio.DecodeBytes(b) }

// Config describes a pipeline.
type Config struct {
	ModelType  string
	Checkpoint string
	Device     model.Device

	// Load defaults to an onnxruntime Loader using the default registry.
	Load model.LoadFunc
	// Status receives the human progress lines; nil discards them.
	Status  io.Writer
	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
}

// Pipeline computes embeddings. Every call to Embed loads a fresh model
// and releases it before returning; nothing is shared between calls.
type Pipeline struct {
	modelType  string
	checkpoint string
	device     model.Device
	load       model.LoadFunc
	status     io.Writer
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
}

// New validates cfg. An unknown model type fails here, before any I/O.
func New(cfg Config) (*Pipeline, error) {
	if _, err := model.Lookup(cfg.ModelType); err != nil {
		return nil, err
	}
	load := cfg.Load
	if load == nil {
		load = (&model.Loader{}).Load
	}
	status := cfg.Status
	if status == nil {
		status = io.Discard
	}
	return &Pipeline{
		modelType:  cfg.ModelType,
		checkpoint: cfg.Checkpoint,
		device:     cfg.Device,
		load:       load,
		status:     status,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Device returns the compute device the pipeline loads models onto.
func (p *Pipeline) Device() model.Device { return p.device }

// ModelType returns the configured model type tag.
func (p *Pipeline) ModelType() string { return p.modelType }

// Embed computes the embedding of the image produced by src.
func (p *Pipeline) Embed(ctx context.Context, src Source) (*model.Embedding, error) {
	start := time.Now()
	emb, err := p.embed(ctx, src)
	elapsed := time.Since(start)
	p.metrics.RecordEmbedding(ctx, p.modelType, elapsed, err)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("model_type", p.modelType).
		Str("device", p.device.String()).
		Ints64("shape", emb.Shape).
		Dur("elapsed", elapsed).
		Msg("Embedding computed")
	return emb, nil
}

func (p *Pipeline) embed(ctx context.Context, src Source) (*model.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmt.Fprintln(p.status, "Loading model...")
	p.logger.Debug().
		Str("model_type", p.modelType).
		Str("checkpoint", p.checkpoint).
		Str("device", p.device.String()).
		Msg("Loading model")

	encoder, err := p.load(p.modelType, p.checkpoint, p.device)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := encoder.Close(); cerr != nil {
			p.logger.Warn().Err(cerr).Msg("Failed to release model")
		}
	}()

	fmt.Fprintln(p.status, "Processing...")
	img, err := src.Decode()
	if err != nil {
		return nil, err
	}
	p.logger.Debug().
		Str("format", img.Format).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("Image decoded")

	pred := predictor.New(encoder)
	if err := pred.SetImage(img); err != nil {
		return nil, err
	}
	return pred.ImageEmbedding()
}
