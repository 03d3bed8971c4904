// Package predictor binds a loaded image encoder to one image and
// exposes the resulting embedding.
package predictor

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/sam-embed/internal/imageio"
	"github.com/Brownie44l1/sam-embed/internal/model"
)

// ErrImageNotSet is returned by ImageEmbedding before SetImage succeeded.
var ErrImageNotSet = errors.New("an image must be set before the embedding can be read")

// Predictor holds the embedding of the most recently set image.
type Predictor struct {
	encoder      model.Encoder
	embedding    *model.Embedding
	originalSize Size
	inputSize    Size
}

// New wraps encoder. The predictor does not take ownership of it.
func New(encoder model.Encoder) *Predictor {
	return &Predictor{encoder: encoder}
}

// SetImage preprocesses img and runs the encoder on it.
func (p *Predictor) SetImage(img *imageio.Image) error {
	p.Reset()

	spec := p.encoder.Spec()
	input, inputSize := Preprocess(img, spec)

	emb, err := p.encoder.Encode(input)
	if err != nil {
		return fmt.Errorf("compute image embedding: %w", err)
	}
	if want := spec.EmbeddingLen(); emb.Len() != want {
		return fmt.Errorf("encoder returned %d values, expected %d for shape %v", emb.Len(), want, spec.EmbeddingShape)
	}

	p.embedding = emb
	p.originalSize = Size{Height: img.Height, Width: img.Width}
	p.inputSize = inputSize
	return nil
}

// ImageEmbedding returns the embedding computed by SetImage.
func (p *Predictor) ImageEmbedding() (*model.Embedding, error) {
	if p.embedding == nil {
		return nil, ErrImageNotSet
	}
	return p.embedding, nil
}

// OriginalSize is the size of the image passed to SetImage.
func (p *Predictor) OriginalSize() Size { return p.originalSize }

// InputSize is the resized size before padding.
func (p *Predictor) InputSize() Size { return p.inputSize }

// Reset drops the stored embedding.
func (p *Predictor) Reset() {
	p.embedding = nil
	p.originalSize = Size{}
	p.inputSize = Size{}
}
