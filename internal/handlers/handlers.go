package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// FormField is the multipart field carrying the uploaded image.
const FormField = "file"

// Embedder computes the base64 embedding of an encoded image.
type Embedder interface {
	EmbedBase64(ctx context.Context, data []byte) ([]string, error)
}

type Handler struct {
	embedder  Embedder
	maxUpload int64
	logger    zerolog.Logger
}

func NewHandler(embedder Embedder, maxUpload int64, logger zerolog.Logger) *Handler {
	return &Handler{
		embedder:  embedder,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, map[string]string{"status": "healthy"})
}

// Embedding answers POST /api/embedding with a one-element JSON array
// holding the base64 encoded embedding of the uploaded image.
func (h *Handler) Embedding(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	data, status, err := h.readUpload(r)
	if err != nil {
		h.logger.Warn().Err(err).Int("status", status).Msg("Rejected upload")
		http.Error(w, err.Error(), status)
		return
	}

	h.logger.Debug().Int("bytes", len(data)).Msg("Received image")

	result, err := h.embedder.EmbedBase64(r.Context(), data)
	if err != nil {
		h.logger.Error().Err(err).Msg("Embedding failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, result)
}

var (
	errNoFile    = errors.New("no image file provided, use 'file' as the form field name")
	errBadForm   = errors.New("failed to parse form")
	errReadBody  = errors.New("failed to read request body")
	errTooLarge  = errors.New("uploaded image is too large")
	errEmptyBody = errors.New("request body is empty")
)

// readUpload returns the image bytes from a multipart form field, or the
// raw body for any other content type.
func (h *Handler) readUpload(r *http.Request) ([]byte, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			if isTooLarge(err) {
				return nil, http.StatusRequestEntityTooLarge, errTooLarge
			}
			return nil, http.StatusBadRequest, errBadForm
		}
		file, header, err := r.FormFile(FormField)
		if err != nil {
			return nil, http.StatusBadRequest, errNoFile
		}
		defer file.Close()

		h.logger.Debug().Str("filename", header.Filename).Int64("size", header.Size).Msg("Received file")

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, http.StatusBadRequest, errReadBody
		}
		return data, http.StatusOK, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, errTooLarge
		}
		return nil, http.StatusBadRequest, errReadBody
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, errEmptyBody
	}
	return data, http.StatusOK, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
