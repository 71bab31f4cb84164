package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

// MaxSize is the largest accepted upload.
const MaxSize = 5 << 20

var (
	ErrFileRejected = errors.New("file rejected")
	ErrNotFound     = errors.New("document not found")
)

// contentTypes lists the accepted extensions and the sniffed types each may carry.
var contentTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
}

// Upload is a supporting document as received from the client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Stored describes a document after it was written to the blob store.
type Stored struct {
	Name        string
	Key         string
	ContentType string
	Size        int64
}

// Download is a stored document read back for a client.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}

// BlobStore persists document bytes by key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Handler struct {
	store BlobStore
}

func NewHandler(store BlobStore) *Handler {
	return &Handler{store: store}
}

func rejected(msg string) error {
	return fmt.Errorf("%w: %s", ErrFileRejected, msg)
}

// Validate checks size and extension and returns the content type to record.
func Validate(u Upload) (string, error) {
	if len(u.Data) == 0 {
		return "", rejected("File is empty.")
	}
	if len(u.Data) > MaxSize {
		return "", rejected("File size must be less than 5MB.")
	}
	ext := strings.ToLower(filepath.Ext(u.Name))
	allowed, ok := contentTypes[ext]
	if !ok {
		return "", rejected("Only PDF, DOCX, XLSX, JPG, and PNG files are allowed.")
	}

	detected := detectMIME(u.Data)
	if detected == "application/octet-stream" {
		declared, _, _ := strings.Cut(u.ContentType, ";")
		declared = strings.ToLower(strings.TrimSpace(declared))
		for _, ct := range allowed {
			if declared == ct {
				return declared, nil
			}
		}
		return allowed[0], nil
	}
	for _, ct := range allowed {
		if detected == ct {
			return detected, nil
		}
	}
	return "", rejected("File content does not match its extension.")
}

func detectMIME(data []byte) string {
	mt, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if mt != "application/octet-stream" && mt != "application/zip" && !strings.HasPrefix(mt, "text/") {
		return mt
	}
	detected, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	if strings.HasPrefix(detected, "text/") {
		return "application/octet-stream"
	}
	return detected
}

func (h *Handler) ValidateAndStore(ctx context.Context, u Upload) (*Stored, error) {
	contentType, err := Validate(u)
	if err != nil {
		return nil, err
	}

	key := ulid.Make().String() + strings.ToLower(filepath.Ext(u.Name))
	if err := h.store.Put(ctx, key, u.Data, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return &Stored{
		Name:        filepath.Base(u.Name),
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(u.Data)),
	}, nil
}

func (h *Handler) Open(ctx context.Context, key string) ([]byte, error) {
	return h.store.Get(ctx, key)
}

func (h *Handler) Discard(ctx context.Context, key string) error {
	return h.store.Delete(ctx, key)
}
