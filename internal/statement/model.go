package statement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerscan/statement-tools/internal/config"
	"github.com/ledgerscan/statement-tools/internal/logger"
)

// ErrEmptyModelResponse is returned when the model produced no candidates.
var ErrEmptyModelResponse = errors.New("empty response from model")

const (
	truncatedPlaceholder = "(Gemini output truncated due to token limit)"
	noContentPlaceholder = "(No content returned from Gemini)"
)

// Part is one piece of a prompt: text, or raw bytes with a MIME type.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

type Generation struct {
	Text        string
	TotalTokens int32
	// Truncated is set when generation stopped at the output token limit.
	Truncated bool
}

// Model provides an interface for generative extraction calls.
// This interface enables mocking and testing without network access.
type Model interface {
	Generate(ctx context.Context, parts []Part) (Generation, error)
}

// GeminiModel is the concrete implementation of Model backed by the Gemini API.
type GeminiModel struct {
	client       *genai.Client
	name         string
	config       *genai.GenerateContentConfig
	tokenWarning int32
}

// NewGeminiModel creates a Gemini API client from the configured key and
// sampling settings.
func NewGeminiModel(ctx context.Context, cfg config.GeminiConfig) (*GeminiModel, error) {
	return newGeminiModel(ctx, cfg, genai.HTTPOptions{})
}

func newGeminiModel(ctx context.Context, cfg config.GeminiConfig, httpOpts genai.HTTPOptions) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}

	return &GeminiModel{
		client: client,
		name:   cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(cfg.Temperature),
			TopK:             genai.Ptr(cfg.TopK),
			TopP:             genai.Ptr(cfg.TopP),
			MaxOutputTokens:  cfg.MaxOutputTokens,
			ResponseMIMEType: "application/json",
		},
		tokenWarning: cfg.TokenWarning,
	}, nil
}

// Name returns the model identifier sent with each request.
func (m *GeminiModel) Name() string {
	return m.name
}

func (m *GeminiModel) Generate(ctx context.Context, parts []Part) (Generation, error) {
	log := logger.FromContext(ctx)

	gparts := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			gparts = append(gparts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		gparts = append(gparts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(gparts, genai.RoleUser)}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, m.config)
	if err != nil {
		return Generation{}, fmt.Errorf("GeminiModel.Generate: generate content: %w", err)
	}

	var gen Generation
	if resp.UsageMetadata != nil {
		gen.TotalTokens = resp.UsageMetadata.TotalTokenCount
	}
	if m.tokenWarning > 0 && gen.TotalTokens > m.tokenWarning {
		log.Warn().
			Int32("tokens_used", gen.TotalTokens).
			Str("model", m.name).
			Msg("Large token usage; consider gemini-2.5-pro for large statements")
	}

	if len(resp.Candidates) == 0 {
		return gen, fmt.Errorf("GeminiModel.Generate: %w", ErrEmptyModelResponse)
	}

	gen.Truncated = resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens
	gen.Text = strings.TrimSpace(resp.Text())
	if gen.Text == "" {
		if gen.Truncated {
			log.Warn().Msg("Gemini hit the MAX_TOKENS limit with no output")
			gen.Text = truncatedPlaceholder
		} else {
			log.Warn().Str("finish_reason", string(resp.Candidates[0].FinishReason)).Msg("Gemini returned no parts")
			gen.Text = noContentPlaceholder
		}
	}
	return gen, nil
}

var _ Model = (*GeminiModel)(nil)
