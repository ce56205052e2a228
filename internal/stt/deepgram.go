// Package stt transcribes microphone audio streamed by the browser with
// Deepgram's live API.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/audio"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/resilience"
)

const (
	// deepgramSampleRate is the rate audio is sent to Deepgram at.
	deepgramSampleRate = 16000
	// maxPendingBytes caps audio buffered while the connection opens (2s).
	maxPendingBytes = deepgramSampleRate * 2 * 2
)

var errStreamClosed = errors.New("deepgram connection closed")

// Stream is an open live transcription connection.
type Stream interface {
	Write(p []byte) (int, error)
	Finish()
}

// Dialer opens a live transcription connection delivering events to cb.
type Dialer func(ctx context.Context, opts *interfaces.LiveTranscriptionOptions, cb msginterfaces.LiveMessageCallback) (Stream, error)

// DialDeepgram returns a Dialer for the Deepgram live API.
func DialDeepgram(apiKey string) Dialer {
	return func(ctx context.Context, opts *interfaces.LiveTranscriptionOptions, cb msginterfaces.LiveMessageCallback) (Stream, error) {
		client, err := listenClient.NewWSUsingCallback(ctx, apiKey, &interfaces.ClientOptions{EnableKeepAlive: true}, opts, cb)
		if err != nil {
			return nil, fmt.Errorf("failed to create Deepgram client: %w", err)
		}
		if !client.Connect() {
			return nil, errors.New("failed to connect to Deepgram")
		}
		return client, nil
	}
}

// Config configures Deepgram capture.
type Config struct {
	Model           string
	InputSampleRate int           // rate of the PCM the browser streams
	NoSpeechTimeout time.Duration // silence allowed before a no-speech error
	UtteranceEndMs  int
	VAD             *audio.VADConfig
	Reconnect       *resilience.ReconnectConfig
}

// Capture is a ports.CapturePort backed by Deepgram. The browser streams
// raw PCM through control while a session is open.
type Capture struct {
	cfg     Config
	control ports.CaptureControl
	dial    Dialer
	breaker *resilience.CircuitBreaker

	mu      sync.Mutex
	current *session

	logger zerolog.Logger
}

var _ ports.CapturePort = (*Capture)(nil)

type session struct {
	id      string
	sink    ports.CaptureSink
	cancel  context.CancelFunc
	stream  Stream
	pending []byte
	vad     *audio.VADDetector
	timer   *time.Timer
	finals  []string
	heard   bool
}

type result struct {
	text        string
	isFinal     bool
	speechFinal bool
}

// NewCapture creates a Deepgram capture port.
func NewCapture(cfg Config, control ports.CaptureControl, dial Dialer, breaker *resilience.CircuitBreaker, logger zerolog.Logger) *Capture {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.InputSampleRate <= 0 {
		cfg.InputSampleRate = deepgramSampleRate
	}
	if cfg.NoSpeechTimeout <= 0 {
		cfg.NoSpeechTimeout = 8 * time.Second
	}
	if cfg.UtteranceEndMs <= 0 {
		cfg.UtteranceEndMs = 1000
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("deepgram", 5, 30*time.Second)
	}
	return &Capture{
		cfg:     cfg,
		control: control,
		dial:    dial,
		breaker: breaker,
		logger:  logger.With().Str("component", "stt").Logger(),
	}
}

// Start opens a session: the browser is asked to stream audio and the
// Deepgram connection is opened in the background.
func (c *Capture) Start(ctx context.Context, opts ports.CaptureOptions, sink ports.CaptureSink) error {
	_ = c.Stop()

	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:     uuid.New().String(),
		sink:   sink,
		cancel: cancel,
		vad:    audio.NewVADDetector(c.cfg.VAD),
	}

	c.mu.Lock()
	c.current = sess
	sess.timer = time.AfterFunc(c.cfg.NoSpeechTimeout, func() { c.expire(sess) })
	c.mu.Unlock()

	if err := c.control.BeginStreaming(opts.Language); err != nil {
		c.end(sess)
		return fmt.Errorf("failed to begin streaming: %w", err)
	}

	c.logger.Debug().Str("session_id", sess.id).Str("language", string(opts.Language)).Msg("Capture session started")
	go c.connect(sessCtx, sess, opts.Language)
	return nil
}

// Stop closes the open session without notifying its sink.
func (c *Capture) Stop() error {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()

	if sess != nil {
		c.end(sess)
	}
	return nil
}

// Feed receives a frame of little-endian 16-bit PCM from the browser.
func (c *Capture) Feed(pcm []byte) {
	samples, err := audio.DecodePCM16(pcm)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Dropping malformed audio frame")
		return
	}
	samples = audio.Resample(samples, c.cfg.InputSampleRate, deepgramSampleRate)

	c.mu.Lock()
	sess := c.current
	if sess == nil {
		c.mu.Unlock()
		return
	}
	for _, ev := range sess.vad.Write(samples) {
		if ev == audio.VADSpeechStarted {
			sess.timer.Reset(c.cfg.NoSpeechTimeout)
		}
	}

	data := audio.EncodePCM16(samples)
	if sess.stream == nil {
		if len(sess.pending)+len(data) <= maxPendingBytes {
			sess.pending = append(sess.pending, data...)
		}
		c.mu.Unlock()
		return
	}
	_, err = sess.stream.Write(data)
	c.mu.Unlock()

	if err != nil {
		c.fail(sess, fmt.Errorf("failed to send audio to Deepgram: %w", err))
	}
}

func (c *Capture) options(lang domain.Language) *interfaces.LiveTranscriptionOptions {
	return &interfaces.LiveTranscriptionOptions{
		Model:          c.cfg.Model,
		Language:       lang.Tag(),
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: strconv.Itoa(c.cfg.UtteranceEndMs),
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     deepgramSampleRate,
	}
}

func (c *Capture) connect(ctx context.Context, sess *session, lang domain.Language) {
	handler := &callbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		capture:                c,
		session:                sess,
	}

	err := resilience.Reconnect(ctx, func(ctx context.Context) error {
		return c.breaker.Call(func() error {
			stream, err := c.dial(ctx, c.options(lang), handler)
			if err != nil {
				observability.IncrementCircuitBreakerFailures("deepgram")
				return err
			}
			return c.attach(sess, stream)
		})
	}, c.cfg.Reconnect, c.logger)
	observability.UpdateCircuitBreakerState("deepgram", int(c.breaker.GetState()))

	if err != nil && ctx.Err() == nil {
		c.fail(sess, err)
	}
}

// attach installs stream on sess and flushes buffered audio.
func (c *Capture) attach(sess *session, stream Stream) error {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		stream.Finish()
		return nil
	}
	sess.stream = stream
	pending := sess.pending
	sess.pending = nil
	var err error
	if len(pending) > 0 {
		_, err = stream.Write(pending)
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to flush audio: %w", err)
	}
	c.logger.Debug().Str("session_id", sess.id).Msg("Deepgram connected")
	return nil
}

// end closes sess if it is still current and reports whether it was.
func (c *Capture) end(sess *session) bool {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return false
	}
	c.current = nil
	sess.timer.Stop()
	stream := sess.stream
	c.mu.Unlock()

	sess.cancel()
	if stream != nil {
		stream.Finish()
	}
	c.control.EndStreaming()
	return true
}

func (c *Capture) fail(sess *session, err error) {
	if !c.end(sess) {
		return
	}
	c.logger.Warn().Err(err).Str("session_id", sess.id).Msg("Capture session failed")
	observability.RecordError("deepgram", "stt")
	sess.sink.OnError(string(domain.CaptureErrorNetwork))
}

func (c *Capture) expire(sess *session) {
	c.mu.Lock()
	heard := sess.heard
	c.mu.Unlock()
	if heard || !c.end(sess) {
		return
	}
	sess.sink.OnError(string(domain.CaptureErrorNoSpeech))
}

func (c *Capture) onResult(sess *session, r result) {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	if r.text != "" {
		sess.heard = true
		sess.timer.Stop()
	}
	if r.isFinal && r.text != "" {
		sess.finals = append(sess.finals, r.text)
	}
	text := strings.Join(sess.finals, " ")
	if !r.isFinal && r.text != "" {
		text = strings.TrimSpace(text + " " + r.text)
	}
	done := r.isFinal && r.speechFinal && len(sess.finals) > 0
	c.mu.Unlock()

	if done {
		c.complete(sess, text)
		return
	}
	if text != "" {
		sess.sink.OnTranscript(domain.Transcript{Text: text, CapturedAt: time.Now()})
	}
}

func (c *Capture) onUtteranceEnd(sess *session) {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	text := strings.Join(sess.finals, " ")
	c.mu.Unlock()

	if text != "" {
		c.complete(sess, text)
		return
	}
	if c.end(sess) {
		sess.sink.OnEnd()
	}
}

// complete delivers the final transcript and ends the session, the way a
// single-utterance recognizer does.
func (c *Capture) complete(sess *session, text string) {
	if !c.end(sess) {
		return
	}
	c.logger.Debug().Str("session_id", sess.id).Str("text", text).Msg("Final transcription")
	sess.sink.OnTranscript(domain.Transcript{Text: text, IsFinal: true, CapturedAt: time.Now()})
	sess.sink.OnEnd()
}

// callbackHandler routes the events of one connection to its session.
type callbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	capture *Capture
	session *session
}

// Message handles transcription results.
func (h *callbackHandler) Message(msg *msginterfaces.MessageResponse) error {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return nil
	}
	h.capture.onResult(h.session, result{
		text:        strings.TrimSpace(msg.Channel.Alternatives[0].Transcript),
		isFinal:     msg.IsFinal,
		speechFinal: msg.SpeechFinal,
	})
	return nil
}

// UtteranceEnd closes the utterance after trailing silence.
func (h *callbackHandler) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error {
	h.capture.onUtteranceEnd(h.session)
	return nil
}

// Error fails the session.
func (h *callbackHandler) Error(er *msginterfaces.ErrorResponse) error {
	h.capture.fail(h.session, fmt.Errorf("deepgram error: %+v", er))
	return nil
}

// Close fails the session if the connection closed while it was open.
func (h *callbackHandler) Close(*msginterfaces.CloseResponse) error {
	h.capture.fail(h.session, errStreamClosed)
	return nil
}
