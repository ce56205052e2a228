// Package bridge connects browser clients to the assistant over a WebSocket.
//
// The browser owns the microphone and the speakers. The hub forwards capture
// commands to it and turns the events it sends back into capture sink calls,
// and broadcasts everything the assistant says or shows to every client.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/effects"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

// ErrNoClient is returned when an operation needs a connected browser.
var ErrNoClient = errors.New("bridge: no client connected")

var (
	_ ports.CapturePort    = (*Hub)(nil)
	_ ports.OutputPort     = (*Hub)(nil)
	_ ports.Observer       = (*Hub)(nil)
	_ ports.HistorySink    = (*Hub)(nil)
	_ ports.AudioOutput    = (*Hub)(nil)
	_ ports.CaptureControl = (*Hub)(nil)
	_ effects.Opener       = (*Hub)(nil)
)

// Controller is the part of the interaction loop driven by clients.
type Controller interface {
	Toggle()
	SetLanguage(lang domain.Language)
	Status() domain.Status
}

// Hub tracks connected clients. The most recently connected client is the
// capture source.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	primary *Client
	ctrl    Controller

	// sink receives events of the open recognizer session, if any.
	sink ports.CaptureSink
	// audio receives binary frames while streaming.
	audio     func(pcm []byte)
	streaming bool

	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "bridge").Logger(),
	}
}

// SetController attaches the loop that toggle and language messages drive.
func (h *Hub) SetController(ctrl Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = ctrl
}

// SetAudioSink sets the receiver of binary audio frames streamed by the
// primary client.
func (h *Hub) SetAudioSink(fn func(pcm []byte)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audio = fn
}

// Connected reports the number of connected clients.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Ready reports whether a client is connected, for readiness checks.
func (h *Hub) Ready(context.Context) (bool, error) {
	if h.Connected() == 0 {
		return false, ErrNoClient
	}
	return true, nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.primary = c
	ctrl := h.ctrl
	h.mu.Unlock()

	h.logger.Info().Str("session_id", c.id).Int("clients", h.Connected()).Msg("Client connected")
	if ctrl != nil {
		status := ctrl.Status()
		c.sendJSON(Message{Type: TypeState, Status: &status})
	}
}

// unregister removes c. If c was capturing, the open session fails with a
// network error.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	var sink ports.CaptureSink
	if h.primary == c {
		h.primary = nil
		for other := range h.clients {
			h.primary = other
		}
		sink = h.sink
		h.sink = nil
		h.streaming = false
	}
	h.mu.Unlock()

	h.logger.Info().Str("session_id", c.id).Msg("Client disconnected")
	if sink != nil {
		sink.OnError(string(domain.CaptureErrorNetwork))
	}
}

// Start asks the primary client to begin speech recognition.
func (h *Hub) Start(_ context.Context, opts ports.CaptureOptions, sink ports.CaptureSink) error {
	h.mu.Lock()
	c := h.primary
	if c == nil {
		h.mu.Unlock()
		return ErrNoClient
	}
	h.sink = sink
	h.mu.Unlock()

	return c.sendJSON(Message{Type: TypeCaptureStart, Mode: ModeRecognize, Lang: opts.Language, LangTag: opts.Language.Tag()})
}

// Stop asks the primary client to end speech recognition.
func (h *Hub) Stop() error {
	h.mu.Lock()
	c := h.primary
	h.sink = nil
	h.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.sendJSON(Message{Type: TypeCaptureStop})
}

// BeginStreaming asks the primary client to stream microphone audio.
func (h *Hub) BeginStreaming(lang domain.Language) error {
	h.mu.Lock()
	c := h.primary
	if c == nil {
		h.mu.Unlock()
		return ErrNoClient
	}
	h.streaming = true
	h.mu.Unlock()

	return c.sendJSON(Message{Type: TypeCaptureStart, Mode: ModeStream, Lang: lang, LangTag: lang.Tag()})
}

// EndStreaming asks the primary client to stop streaming audio.
func (h *Hub) EndStreaming() {
	h.mu.Lock()
	c := h.primary
	h.streaming = false
	h.mu.Unlock()

	if c != nil {
		_ = c.sendJSON(Message{Type: TypeCaptureStop})
	}
}

// Speak asks every client to speak text.
func (h *Hub) Speak(text string, lang domain.Language) {
	h.broadcast(Message{Type: TypeSpeak, Text: text, Lang: lang, LangTag: lang.Tag()})
}

// WriteAudio sends synthesized PCM to every client.
func (h *Hub) WriteAudio(pcm []byte, sampleRate int) error {
	clients := h.snapshot()
	if len(clients) == 0 {
		return ErrNoClient
	}
	var errs []error
	for _, c := range clients {
		if c.lastSampleRate() != sampleRate {
			if err := c.sendJSON(Message{Type: TypeAudioFormat, SampleRate: sampleRate}); err != nil {
				errs = append(errs, err)
				continue
			}
			c.setSampleRate(sampleRate)
		}
		if err := c.sendBinary(pcm); err != nil {
			errs = append(errs, err)
			continue
		}
		c.metrics.RecordAudioBytes("out", int64(len(pcm)))
	}
	return errors.Join(errs...)
}

// CancelAudio asks every client to drop queued audio.
func (h *Hub) CancelAudio() {
	h.broadcast(Message{Type: TypeAudioCancel})
}

// Open asks every client to open rawURL.
func (h *Hub) Open(rawURL string) error {
	if h.Connected() == 0 {
		return ErrNoClient
	}
	h.broadcast(Message{Type: TypeOpen, URL: rawURL})
	return nil
}

// StateChanged broadcasts the loop status.
func (h *Hub) StateChanged(status domain.Status) {
	h.broadcast(Message{Type: TypeState, Status: &status})
}

// TranscriptChanged broadcasts the displayed transcript.
func (h *Hub) TranscriptChanged(text string) {
	h.broadcast(Message{Type: TypeTranscript, Text: text})
}

// VolumeChanged broadcasts the output volume.
func (h *Hub) VolumeChanged(level int) {
	h.broadcast(Message{Type: TypeVolume, Level: &level})
}

// Append broadcasts a history entry.
func (h *Hub) Append(_ context.Context, result domain.CommandResult) error {
	h.broadcast(Message{Type: TypeHistory, Entry: &result})
	return nil
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode message")
		return
	}
	for _, c := range h.snapshot() {
		if err := c.send(outbound{text: true, data: data}); err != nil {
			h.logger.Debug().Err(err).Str("session_id", c.id).Msg("Dropped message")
		}
	}
}

// handle dispatches one client message.
func (h *Hub) handle(c *Client, msg Message) {
	h.mu.RLock()
	ctrl := h.ctrl
	sink := h.sink
	primary := h.primary == c
	h.mu.RUnlock()

	switch msg.Type {
	case TypeToggle:
		if ctrl != nil {
			ctrl.Toggle()
		}

	case TypeLanguage:
		lang, ok := domain.ParseLanguage(string(msg.Lang))
		if !ok {
			c.logger.Warn().Str("lang", string(msg.Lang)).Msg("Unsupported language")
			return
		}
		if ctrl != nil {
			ctrl.SetLanguage(lang)
		}

	case TypeTranscript:
		if !primary || sink == nil {
			return
		}
		sink.OnTranscript(domain.Transcript{Text: msg.Text, IsFinal: msg.IsFinal, CapturedAt: time.Now()})

	case TypeCaptureEnd:
		if !primary || sink == nil {
			return
		}
		sink.OnEnd()

	case TypeCaptureError:
		if !primary || sink == nil {
			return
		}
		sink.OnError(msg.Error)

	default:
		c.logger.Warn().Str("type", msg.Type).Msg("Unknown client message")
	}
}

// handleAudio forwards a binary frame from c.
func (h *Hub) handleAudio(c *Client, pcm []byte) {
	h.mu.RLock()
	fn := h.audio
	ok := h.primary == c && h.streaming
	h.mu.RUnlock()

	if !ok || fn == nil {
		return
	}
	c.metrics.RecordAudioBytes("in", int64(len(pcm)))
	fn(pcm)
}
