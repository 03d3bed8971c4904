// Package checkpoint makes sure a model checkpoint is present on disk,
// fetching it once from a remote URL when it is not.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/sam-embed/internal/model"
	"github.com/Brownie44l1/sam-embed/internal/telemetry"
)

// DefaultURL is the upstream SAM ViT-H release.
const DefaultURL = "https://dl.fbaipublicfiles.com/segment_anything/sam_vit_h_4b8939.pth"

// Downloader fetches missing checkpoints.
type Downloader struct {
	client   *http.Client
	progress io.Writer
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithProgress draws the progress bar on w. nil disables it.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) { d.progress = w }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// WithMetrics records downloaded bytes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Downloader) { d.metrics = m }
}

// NewDownloader creates a Downloader drawing progress on stderr.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client:   &http.Client{Timeout: 0},
		progress: os.Stderr,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ensure fetches url into path unless path already exists. It reports
// whether a download took place. The file is not verified.
func (d *Downloader) Ensure(ctx context.Context, path, url string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, model.IOError("stat checkpoint", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return false, model.IOError("create checkpoint directory", err)
	}

	d.logger.Info().Str("url", url).Str("path", path).Msg("Checkpoint not found, downloading")
	start := time.Now()

	n, err := d.fetch(ctx, path, url)
	d.metrics.RecordDownload(ctx, n)
	if err != nil {
		return false, model.IOError("download checkpoint", err)
	}

	d.logger.Info().
		Str("path", path).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("Checkpoint downloaded")
	return true, nil
}

func (d *Downloader) fetch(ctx context.Context, path, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	tmp := fmt.Sprintf("%s.%s.part", path, uuid.NewString())
	f, err := os.Create(tmp) // #nosec G304 -- tmp is derived from the configured checkpoint path
	if err != nil {
		return 0, err
	}

	bar := newProgressBar(d.progress, resp.ContentLength)
	n, err := io.Copy(io.MultiWriter(f, bar), resp.Body)
	bar.finish()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return n, err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return n, err
	}
	return n, nil
}
