// Package ocr extracts text from uploaded documents. Images go through a pluggable OCR engine,
// PDF and DOCX documents through their text layer. Any extraction failure degrades to a fixed
// demo text instead of an error.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg decoder
	_ "image/png"  // register png decoder
	"net/http"
	"path/filepath"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobbridge/app/web/enums"
)

// Engine recognizes text in images
type Engine interface {
	Name() string
	Available() bool
	Extract(ctx context.Context, up Upload) (string, error)
}

// Upload is a user supplied document
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result of text extraction
type Result struct {
	Text    string           `json:"text"`
	Source  enums.TextSource `json:"source"`
	Engine  string           `json:"engine,omitempty"`
	MIME    string           `json:"mime,omitempty"`
	Width   int              `json:"width,omitempty"`
	Height  int              `json:"height,omitempty"`
	Warning string           `json:"warning,omitempty"`
}

// errors returned by Extract
var (
	ErrEmptyUpload = errors.New("uploaded file is empty")
	ErrUnsupported = errors.New("unsupported document type")
)

const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Service picks extraction method by the sniffed document type
type Service struct {
	engine       Engine
	fallbackText string
}

// NewService makes extraction service. Nil engine treated as unavailable OCR.
func NewService(engine Engine, fallbackText string) *Service {
	if engine == nil {
		engine = None{}
	}
	return &Service{engine: engine, fallbackText: fallbackText}
}

// EngineName returns configured OCR engine name
func (s *Service) EngineName() string { return s.engine.Name() }

// EngineAvailable tells if OCR engine can be used
func (s *Service) EngineAvailable() bool { return s.engine.Available() }

// Extract returns text of the upload. Nil upload gives empty result, unknown types ErrUnsupported.
// OCR or document parsing failures substitute the fallback text with a warning.
func (s *Service) Extract(ctx context.Context, up *Upload) (Result, error) {
	if up == nil {
		return Result{Source: enums.TextSourceNone}, nil
	}
	if len(up.Data) == 0 {
		return Result{}, ErrEmptyUpload
	}

	mime := DetectMIME(up.Name, up.Data)
	switch mime {
	case mimePNG, mimeJPEG:
		res := Result{MIME: mime, Engine: s.engine.Name()}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(up.Data)); err == nil {
			res.Width, res.Height = cfg.Width, cfg.Height
		}
		return s.recognize(ctx, Upload{Name: up.Name, ContentType: mime, Data: up.Data}, res), nil
	case mimePDF, mimeDOCX, mimeText:
		res := Result{MIME: mime, Source: enums.TextSourceDocument}
		text, err := documentText(mime, up.Data)
		if err != nil {
			log.Printf("[WARN] failed to read text layer of %q: %v", up.Name, err)
			return s.fallback(res, "Could not read the document text, showing sample text."), nil
		}
		if strings.TrimSpace(text) == "" {
			return s.fallback(res, "Document has no text layer, showing sample text."), nil
		}
		res.Text = text
		return res, nil
	default:
		return Result{MIME: mime}, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
}

func (s *Service) recognize(ctx context.Context, up Upload, res Result) Result {
	if !s.engine.Available() {
		return s.fallback(res, fmt.Sprintf("OCR engine %q is not available, showing sample text.", s.engine.Name()))
	}
	text, err := s.engine.Extract(ctx, up)
	if err != nil {
		log.Printf("[WARN] ocr %s failed for %q: %v", s.engine.Name(), up.Name, err)
		return s.fallback(res, "OCR failed, showing sample text.")
	}
	res.Text = text
	res.Source = enums.TextSourceOcr
	return res
}

func (s *Service) fallback(res Result, warning string) Result {
	res.Text = s.fallbackText
	res.Source = enums.TextSourceFallback
	res.Warning = warning
	return res
}

// DetectMIME sniffs content type. DOCX is a zip container and recognized by file extension.
func DetectMIME(name string, data []byte) string {
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx > 0 {
		mime = mime[:idx]
	}
	if mime == "application/zip" && strings.EqualFold(filepath.Ext(name), ".docx") {
		return mimeDOCX
	}
	return mime
}
