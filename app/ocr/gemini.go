package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultVisionModel = "gemini-2.0-flash"
	visionPrompt       = "Transcribe all text visible in this document image. " +
		"Return plain text only, keep line breaks, do not add comments."
)

// generateContenter is the subset of genai.Models used for image transcription
type generateContenter interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini transcribes images with a Gemini multimodal model
type Gemini struct {
	models  generateContenter
	model   string
	timeout time.Duration
}

// NewGemini makes vision engine for the client. Empty model uses gemini-2.0-flash.
func NewGemini(client *genai.Client, model string, timeout time.Duration) (*Gemini, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultVisionModel
	}
	return &Gemini{models: client.Models, model: model, timeout: timeout}, nil
}

// Name of the engine
func (g *Gemini) Name() string { return "gemini:" + g.model }

// Available if client is set
func (g *Gemini) Available() bool { return g.models != nil }

// Extract sends image inline with transcription prompt and joins text parts of the response
func (g *Gemini) Extract(ctx context.Context, up Upload) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(visionPrompt),
		genai.NewPartFromBytes(up.Data, up.ContentType),
	}, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.TrimSpace(part.Text))
		}
	}
	return sb.String(), nil
}
