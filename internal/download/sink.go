package download

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// FileSink writes documents into Dir. The file appears under its final
// name only once it is fully written.
type FileSink struct {
	Dir string
}

func (s FileSink) Deliver(ctx context.Context, filename string, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".statement-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return "", err
	}

	target := filepath.Join(s.Dir, filepath.Base(filename))
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return "", fmt.Errorf("publish export: %w", err)
	}
	return target, nil
}

// ResponseSink streams the document as an HTTP attachment. Headers are
// committed on the first call, so it suits single-attempt delivery.
type ResponseSink struct {
	W http.ResponseWriter
}

func (s ResponseSink) Deliver(ctx context.Context, filename string, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h := s.W.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(blob)))
	h.Set("Cache-Control", "no-store")
	s.W.WriteHeader(http.StatusOK)
	if _, err := s.W.Write(blob); err != nil {
		return "", fmt.Errorf("network write failed: %w", err)
	}
	return filename, nil
}
