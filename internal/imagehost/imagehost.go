// Package imagehost stores submission photos and returns their public URLs.
package imagehost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/metrics"
)

// Source opens an attachment by its transport reference (a Telegram file ID).
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, ref string) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return f(ctx, ref)
}

// Host uploads an attachment owned by a chat and returns where it can be viewed.
type Host interface {
	Upload(ctx context.Context, ownerID int64, ref, contentType string) (string, error)
}

// Supabase uploads into a public Supabase Storage bucket under
// <owner>/<uuid><ext>.
type Supabase struct {
	url    string
	key    string
	bucket string
	source Source
}

// NewSupabase returns a Host writing into bucket of the project at url.
func NewSupabase(url, key, bucket string, source Source) *Supabase {
	return &Supabase{url: strings.TrimRight(url, "/"), key: key, bucket: bucket, source: source}
}

// client is built per upload: the storage client sets upload headers on its
// shared transport.
func (h *Supabase) client() *storage.Client {
	return storage.NewClient(h.url+"/storage/v1", h.key, map[string]string{"apikey": h.key})
}

// Upload copies the attachment into the bucket and returns its public URL.
func (h *Supabase) Upload(ctx context.Context, ownerID int64, ref, contentType string) (_ string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpload(err == nil, time.Since(start)) }()

	body, err := h.source.Open(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer body.Close()

	contentType = normalizeContentType(contentType)
	path := ObjectPath(ownerID, uuid.NewString(), contentType)
	upsert := false

	client := h.client()
	_, err = client.UploadFile(h.bucket, path, body, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		logger.Images.LogAttrs(ctx, slog.LevelWarn, "upload failed",
			slog.String("event", "images.upload"),
			slog.String("status", logger.Status(err)),
			slog.String("bucket", h.bucket),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return "", fmt.Errorf("upload %s: %w", path, err)
	}

	url := client.GetPublicUrl(h.bucket, path).SignedURL
	logger.Images.LogAttrs(ctx, slog.LevelInfo, "image uploaded",
		slog.String("event", "images.upload"),
		slog.String("status", logger.Status(nil)),
		slog.String("path", path),
		slog.Duration("duration", logger.Took(start)),
	)
	return url, nil
}

// ObjectPath builds the bucket-relative object name.
func ObjectPath(ownerID int64, name, contentType string) string {
	return strconv.FormatInt(ownerID, 10) + "/" + name + extension(contentType)
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !strings.HasPrefix(ct, "image/") {
		return "image/jpeg"
	}
	return ct
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}

// FileRefs keeps the transport reference itself as the image URL. It backs
// local runs without a storage bucket.
type FileRefs struct{}

// Upload returns "tg-file:<ref>".
func (FileRefs) Upload(_ context.Context, _ int64, ref, _ string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("empty attachment reference")
	}
	return "tg-file:" + ref, nil
}
