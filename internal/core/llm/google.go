package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/platform/config"
)

const googleRateLimiterBurst = 5

type googleProvider struct {
	cfg         *config.Config
	client      *genai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewGoogleProvider creates the Gemini fallback provider.
func NewGoogleProvider(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &googleProvider{
		cfg:         cfg,
		client:      client,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), googleRateLimiterBurst),
	}, nil
}

func (p *googleProvider) Name() ProviderName {
	return ProviderGoogle
}

func (p *googleProvider) IsAvailable() bool {
	return p.cfg.GoogleAPIKey != ""
}

func (p *googleProvider) Priority() int {
	return PriorityFallback
}

func (p *googleProvider) Complete(ctx context.Context, prompt string, params Params) (Result, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: rate limiter: %v", coreerrors.ErrTransient, err)
	}

	modelName := params.Model
	if modelName == "" {
		modelName = p.cfg.GoogleModel
	}

	model := p.client.GenerativeModel(modelName)
	model.SetTemperature(params.Temperature)

	if params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(params.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(sanitizeUTF8(prompt)))
	if err != nil {
		return Result{}, classifyGoogleError(err)
	}

	text := collectText(resp)
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: empty gemini response", coreerrors.ErrMalformed)
	}

	result := Result{
		Text:     text,
		Provider: ProviderGoogle,
		Model:    modelName,
	}

	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return result, nil
}

func (p *googleProvider) SupportsEmbeddings() bool {
	return false
}

func (p *googleProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, coreerrors.ErrEmbeddingsUnsupported
}

func collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}

		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}

	return sb.String()
}

// classifyGoogleError maps API errors onto the closed completion error set.
func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
				return fmt.Errorf("%w: %v", coreerrors.ErrQuotaExceeded, err)
			}

			return fmt.Errorf("%w: %v", coreerrors.ErrRateLimited, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", coreerrors.ErrTransient, err)
		default:
			return fmt.Errorf("%w: %v", coreerrors.ErrMalformed, err)
		}
	}

	return fmt.Errorf("%w: %v", coreerrors.ErrTransient, err)
}

// sanitizeUTF8 removes invalid UTF-8 sequences. The protobuf transport
// requires valid UTF-8 and upstream records occasionally contain stray bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			builder.WriteRune(utf8.RuneError)
			i++

			continue
		}

		builder.WriteRune(r)
		i += size
	}

	return builder.String()
}

var _ Provider = (*googleProvider)(nil)
