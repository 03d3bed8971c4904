package pipeline

import (
	"context"

	"github.com/Brownie44l1/sam-embed/internal/output"
)

// EmbedFile computes the embedding of the image at inputPath and saves it
// as <stem>_embedding.npy under outputDir. Nothing is written on failure.
func (p *Pipeline) EmbedFile(ctx context.Context, inputPath, outputDir string) (string, error) {
	emb, err := p.Embed(ctx, File(inputPath))
	if err != nil {
		return "", err
	}
	return output.SaveNPY(outputDir, inputPath, emb)
}

// EmbedBase64 computes the embedding of an uploaded image and returns it
// in the form served by the HTTP API.
func (p *Pipeline) EmbedBase64(ctx context.Context, data []byte) ([]string, error) {
	emb, err := p.Embed(ctx, Bytes(data))
	if err != nil {
		return nil, err
	}
	return output.EncodeBase64(emb), nil
}
