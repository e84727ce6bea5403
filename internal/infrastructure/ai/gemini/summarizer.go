// Package gemini implements insight.Summarizer on the Google GenAI SDK.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-3-flash-preview"

// generator is the subset of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Summarizer sends a single-turn text prompt to a Gemini model.
type Summarizer struct {
	models generator
	model  string
	logger logging.Logger
}

// New creates a Summarizer.  apiKey is required.
func New(ctx context.Context, apiKey, model string, logger logging.Logger) (*Summarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return newWithGenerator(client.Models, model, logger), nil
}

func newWithGenerator(g generator, model string, logger logging.Logger) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Summarizer{models: g, model: model, logger: logger.Named("gemini")}
}

// Model returns the configured model name.
func (s *Summarizer) Model() string { return s.model }

// Summarize returns the concatenated text parts of the first candidate.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	text := resp.Text()
	s.logger.Debug("content generated",
		logging.String("model", s.model),
		logging.Int("prompt_chars", len(prompt)),
		logging.Int("response_chars", len(text)))
	return text, nil
}
