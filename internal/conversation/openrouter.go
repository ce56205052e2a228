// Package conversation answers utterances the intent cascade could not
// match, using an OpenAI-compatible chat completion API (OpenRouter by
// default).
package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/resilience"
)

var (
	// ErrNoCredential is returned when no usable API key is configured.
	ErrNoCredential = errors.New("conversation: no api key configured")
	// ErrEmptyReply is returned when the model produced no choices.
	ErrEmptyReply = errors.New("conversation: empty reply")
)

// DefaultBaseURL is the OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// placeholderKey is what the sample environment ships with.
const placeholderKey = "PLACEHOLDER_API_KEY"

// Config configures a Client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client is a ports.ConversationalFallback backed by a chat completion API.
type Client struct {
	client    oai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	hasKey    bool
	breaker   *resilience.CircuitBreaker
	retry     *resilience.RetryConfig
	logger    zerolog.Logger
}

// NewClient creates a completion client. A missing key is not an error
// here; Complete reports ErrNoCredential so the cascade can degrade.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	key := strings.TrimSpace(cfg.APIKey)
	client := oai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	)

	return &Client{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		hasKey:    key != "" && key != placeholderKey,
		breaker:   resilience.NewCircuitBreaker("fallback", 5, 30*time.Second),
		retry: &resilience.RetryConfig{
			MaxAttempts:       2,
			InitialBackoff:    250 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		logger: logger.With().Str("component", "conversation").Logger(),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends one utterance to the model and returns its reply. An empty
// string with a nil error means the model answered with no content.
func (c *Client) Complete(ctx context.Context, utterance string, lang domain.Language) (string, error) {
	if !c.hasKey {
		observability.RecordFallback("no_credential", 0)
		return "", ErrNoCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(SystemPrompt(lang)),
			oai.UserMessage(utterance),
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(c.maxTokens))
	}

	start := time.Now()
	var reply string
	err := c.breaker.Call(func() error {
		return resilience.Retry(ctx, func(ctx context.Context) error {
			resp, err := c.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return fmt.Errorf("chat completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return ErrEmptyReply
			}
			reply = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		}, c.retry, resilience.IsRetryableNetworkError)
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrEmptyReply):
		observability.RecordFallback("empty", elapsed)
		return "", nil
	case err != nil:
		observability.RecordFallback("error", elapsed)
		return "", fmt.Errorf("conversation: %w", err)
	}

	observability.RecordFallback("success", elapsed)
	c.logger.Debug().
		Str("model", c.model).
		Str("language", string(lang)).
		Dur("latency", elapsed).
		Msg("Fallback reply received")
	return reply, nil
}

// SystemPrompt fixes the reply language and persona.
func SystemPrompt(lang domain.Language) string {
	name := "English"
	if lang == domain.LanguageHindi {
		name = "Hindi"
	}
	return "You are JARVIS, an AI assistant. Respond briefly in " + name +
		". Keep it cool, slightly robotic but helpful. Max 2 sentences."
}

// HealthCheck reports whether the fallback can be used at all. It does not
// spend tokens.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.hasKey {
		return ErrNoCredential
	}
	if c.breaker.GetState() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	return nil
}
