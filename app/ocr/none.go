package ocr

import (
	"context"
	"errors"
)

// None is a disabled OCR engine, every image gets the fallback text
type None struct{}

// Name of the engine
func (None) Name() string { return "none" }

// Available always false
func (None) Available() bool { return false }

// Extract always fails
func (None) Extract(context.Context, Upload) (string, error) {
	return "", errors.New("ocr is disabled")
}
