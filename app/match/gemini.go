package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultEmbeddingModel = "text-embedding-004"

// embedContenter is the subset of genai.Models used for embeddings
type embedContenter interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Gemini embeds text with a Gemini embedding model
type Gemini struct {
	models embedContenter
	model  string
}

// NewGemini makes Gemini embedder for the given client. Empty model uses text-embedding-004.
func NewGemini(client *genai.Client, model string) (*Gemini, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	return &Gemini{models: client.Models, model: model}, nil
}

// Name of the embedder
func (g *Gemini) Name() string { return "gemini:" + g.model }

// Embed returns embedding vector for text
func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	resp, err := g.models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api returned empty embedding")
	}

	values := resp.Embeddings[0].Values
	res := make([]float64, len(values))
	for i, v := range values {
		res[i] = float64(v)
	}
	return res, nil
}
