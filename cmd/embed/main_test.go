package main

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/sam-embed/internal/model"
	"github.com/Brownie44l1/sam-embed/internal/model/modeltest"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 6, 4))))
}

func execute(t *testing.T, loader *modeltest.Loader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(loader.Load)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRun_WritesEmbedding(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dogs.png")
	writePNG(t, input)
	outDir := filepath.Join(dir, "embeddings")
	loader := modeltest.NewLoader(modeltest.SmallSpec())

	stdout, err := execute(t, loader,
		"--input", input,
		"--output", outDir,
		"--model-type", "vit_b",
		"--checkpoint", "sam_vit_b.onnx",
		"--device", "cpu",
	)
	require.NoError(t, err)
	assert.Equal(t, "Loading model...\nProcessing...\nDone!\n", stdout)

	_, err = os.Stat(filepath.Join(outDir, "dogs_embedding.npy"))
	assert.NoError(t, err)
	require.Equal(t, 1, loader.Loads())
	assert.Equal(t, model.CPU, loader.Encoders[0].Device())
	assert.True(t, loader.AllClosed())
}

func TestRun_UnknownModelType(t *testing.T) {
	loader := modeltest.NewLoader(modeltest.SmallSpec())
	stdout, err := execute(t, loader,
		"--input", "missing.png",
		"--output", t.TempDir(),
		"--model-type", "vit_x",
		"--checkpoint", "missing.onnx",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
	assert.Contains(t, err.Error(), "vit_x")
	assert.Empty(t, stdout)
	assert.Zero(t, loader.Loads())
}

func TestRun_InvalidDevice(t *testing.T) {
	_, err := execute(t, modeltest.NewLoader(modeltest.SmallSpec()),
		"--input", "a.png",
		"--output", t.TempDir(),
		"--model-type", "default",
		"--checkpoint", "c.onnx",
		"--device", "tpu",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDevice))
}

func TestRun_MissingRequiredFlags(t *testing.T) {
	_, err := execute(t, modeltest.NewLoader(modeltest.SmallSpec()), "--input", "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRun_CorruptImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(input, []byte("not a jpeg"), 0600))

	stdout, err := execute(t, modeltest.NewLoader(modeltest.SmallSpec()),
		"--input", input,
		"--output", dir,
		"--model-type", "vit_b",
		"--checkpoint", "c.onnx",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDecode))
	assert.NotContains(t, stdout, "Done!")

	_, err = os.Stat(filepath.Join(dir, "broken_embedding.npy"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
