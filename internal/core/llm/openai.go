package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/platform/config"
)

const (
	rateLimiterBurst = 5
	quotaErrorCode   = "insufficient_quota"
)

type openaiProvider struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates the primary completion provider.
func NewOpenAIProvider(cfg *config.Config, logger *zerolog.Logger) Provider {
	return &openaiProvider{
		cfg:         cfg,
		client:      openai.NewClient(cfg.OpenAIAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), rateLimiterBurst),
	}
}

func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

func (p *openaiProvider) IsAvailable() bool {
	return p.cfg.OpenAIAPIKey != "" && p.cfg.OpenAIAPIKey != apiKeyMock
}

func (p *openaiProvider) Priority() int {
	return PriorityPrimary
}

func (p *openaiProvider) Complete(ctx context.Context, prompt string, params Params) (Result, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: rate limiter: %v", coreerrors.ErrTransient, err)
	}

	model := params.Model
	if model == "" {
		model = p.cfg.OpenAIModel
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Result{}, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Result{}, fmt.Errorf("%w: empty completion choices", coreerrors.ErrMalformed)
	}

	return Result{
		Text:             resp.Choices[0].Message.Content,
		Provider:         ProviderOpenAI,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *openaiProvider) SupportsEmbeddings() bool {
	return true
}

func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", coreerrors.ErrTransient, err)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", coreerrors.ErrMalformed)
	}

	return resp.Data[0].Embedding, nil
}

// classifyOpenAIError maps SDK errors onto the closed completion error set.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			if code, ok := apiErr.Code.(string); ok && code == quotaErrorCode {
				return fmt.Errorf("%w: %v", coreerrors.ErrQuotaExceeded, err)
			}

			return fmt.Errorf("%w: %v", coreerrors.ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", coreerrors.ErrTransient, err)
		default:
			return fmt.Errorf("%w: %v", coreerrors.ErrMalformed, err)
		}
	}

	// Network failures and timeouts arrive as request errors or plain
	// context errors.
	return fmt.Errorf("%w: %v", coreerrors.ErrTransient, err)
}

var _ Provider = (*openaiProvider)(nil)
