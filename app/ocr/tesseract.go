package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

// Tesseract runs tesseract cli binary on the image
type Tesseract struct {
	bin     string
	lang    string
	timeout time.Duration
	path    string // resolved binary, empty if not installed
}

// NewTesseract makes tesseract engine. Binary is resolved once, missing binary makes engine unavailable.
func NewTesseract(bin, lang string, timeout time.Duration) *Tesseract {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	res := &Tesseract{bin: bin, lang: lang, timeout: timeout}
	path, err := exec.LookPath(bin)
	if err != nil {
		log.Printf("[WARN] tesseract binary %q not found, ocr disabled: %v", bin, err)
		return res
	}
	res.path = path
	return res
}

// Name of the engine
func (t *Tesseract) Name() string { return "tesseract" }

// Available if binary found
func (t *Tesseract) Available() bool { return t.path != "" }

// Extract writes image to temp file and runs tesseract with stdout output
func (t *Tesseract) Extract(ctx context.Context, up Upload) (string, error) {
	if !t.Available() {
		return "", fmt.Errorf("tesseract binary %q not found", t.bin)
	}

	ext := ".png"
	if up.ContentType == mimeJPEG {
		ext = ".jpg"
	}
	tmp, err := os.CreateTemp("", "jobbridge-ocr-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint
	if _, err = tmp.Write(up.Data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, filepath.Clean(tmp.Name()), "stdout", "-l", t.lang) // nolint gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	st := time.Now()
	if err = cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tesseract timed out after %v", t.timeout)
		}
		return "", fmt.Errorf("tesseract failed: %w, %s", err, strings.TrimSpace(stderr.String()))
	}
	log.Printf("[DEBUG] tesseract recognized %d bytes from %q in %v", stdout.Len(), up.Name, time.Since(st))
	return strings.TrimSpace(stdout.String()), nil
}
