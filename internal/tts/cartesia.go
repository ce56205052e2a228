// Package tts synthesizes replies with Cartesia and streams the PCM to the
// connected client.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/resilience"
)

const (
	// DefaultBaseURL is the Cartesia REST endpoint.
	DefaultBaseURL = "https://api.cartesia.ai"
	// APIVersion is sent as the Cartesia-Version header.
	APIVersion = "2024-06-10"

	chunkSize = 4096
)

// errPartialAudio marks failures after audio has been delivered. Those are
// never retried, since a retry would replay the start of the reply.
var errPartialAudio = errors.New("tts: stream interrupted after audio was sent")

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cartesia API returned status %d: %s", e.Code, e.Body)
}

// Config configures the Cartesia speaker.
type Config struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	Voices     map[domain.Language]string // English is used when a language has no voice
	SampleRate int
	Timeout    time.Duration
	Retry      *resilience.RetryConfig
}

// Request is the body of a /tts/bytes call.
type Request struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        Voice        `json:"voice"`
	OutputFormat OutputFormat `json:"output_format"`
	Language     string       `json:"language"`
}

// Voice selects a voice by id.
type Voice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// OutputFormat requests raw 16-bit PCM.
type OutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Speaker is a ports.OutputPort that speaks through Cartesia. When synthesis
// fails the text is handed to the fallback output, if any.
type Speaker struct {
	cfg        Config
	httpClient *http.Client
	out        ports.AudioOutput
	fallback   ports.OutputPort
	breaker    *resilience.CircuitBreaker

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

var _ ports.OutputPort = (*Speaker)(nil)

// NewSpeaker creates a speaker writing audio to out.
func NewSpeaker(cfg Config, out ports.AudioOutput, fallback ports.OutputPort, breaker *resilience.CircuitBreaker, logger zerolog.Logger) *Speaker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("cartesia", 5, 30*time.Second)
	}
	return &Speaker{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		out:        out,
		fallback:   fallback,
		breaker:    breaker,
		logger:     logger.With().Str("component", "tts").Logger(),
	}
}

// Speak cancels the utterance in progress and starts synthesizing text.
func (s *Speaker) Speak(text string, lang domain.Language) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.out.CancelAudio()
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.synthesize(ctx, text, lang)
	}()
}

// Stop cancels the utterance in progress.
func (s *Speaker) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.out.CancelAudio()
	}
}

// Close stops speaking and waits for in-flight synthesis to finish.
func (s *Speaker) Close() error {
	s.Stop()
	s.wg.Wait()
	return nil
}

func (s *Speaker) synthesize(ctx context.Context, text string, lang domain.Language) {
	start := time.Now()
	err := s.breaker.Call(func() error {
		return resilience.Retry(ctx, func(ctx context.Context) error {
			return s.stream(ctx, text, lang)
		}, s.cfg.Retry, isRetryable)
	})
	if ctx.Err() != nil {
		s.logger.Debug().Msg("Synthesis superseded")
		return
	}

	observability.RecordTTS(err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn().Err(err).Str("language", string(lang)).Msg("Synthesis failed")
		observability.RecordError("tts_synthesis", "tts")
		if s.fallback != nil && !errors.Is(err, errPartialAudio) {
			s.fallback.Speak(text, lang)
		}
		return
	}
	s.logger.Debug().Dur("latency", time.Since(start)).Msg("Synthesis complete")
}

func (s *Speaker) voice(lang domain.Language) string {
	if id := s.cfg.Voices[lang]; id != "" {
		return id
	}
	return s.cfg.Voices[domain.LanguageEnglish]
}

// stream performs one synthesis request and forwards the audio as it arrives.
func (s *Speaker) stream(ctx context.Context, text string, lang domain.Language) error {
	body, err := json.Marshal(Request{
		ModelID:    s.cfg.ModelID,
		Transcript: text,
		Voice:      Voice{Mode: "id", ID: s.voice(lang)},
		OutputFormat: OutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: s.cfg.SampleRate,
		},
		Language: string(lang),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.BaseURL, "/")+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.cfg.APIKey)
	req.Header.Set("Cartesia-Version", APIVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	sent := 0
	buf := make([]byte, chunkSize)
	for {
		n, readErr := io.ReadFull(resp.Body, buf)
		n &^= 1
		if n > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := s.out.WriteAudio(append([]byte(nil), buf[:n]...), s.cfg.SampleRate); err != nil {
				return fmt.Errorf("%w: %v", errPartialAudio, err)
			}
			sent += n
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			if sent == 0 {
				return errors.New("cartesia returned empty audio")
			}
			return nil
		case sent > 0:
			return fmt.Errorf("%w: %v", errPartialAudio, readErr)
		default:
			return fmt.Errorf("failed to read audio: %w", readErr)
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, errPartialAudio) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	return resilience.IsRetryableNetworkError(err)
}
