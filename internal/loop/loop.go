// Package loop drives the listen, interpret, act and speak cycle.
//
// All loop state is owned by the goroutine running Run. Capture callbacks,
// cascade completions, timers and user commands are posted to it as events,
// and every asynchronous continuation carries the activation epoch it was
// started under so that a deactivation always wins over in-flight work.
package loop

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

// Interpreter turns an utterance into a result. It must always return.
type Interpreter interface {
	Interpret(ctx context.Context, raw string) domain.CommandResult
}

// Config holds loop timings and initial values.
type Config struct {
	SettleDelay    time.Duration
	RestartBackoff time.Duration
	Language       domain.Language
	InitialVolume  int
	VolumeStep     int
	HistoryTimeout time.Duration
}

// Deps are the collaborators of the loop. Observer may be nil.
type Deps struct {
	Capture     ports.CapturePort
	Output      ports.OutputPort
	Interpreter Interpreter
	History     ports.HistorySink
	Effects     ports.Effects
	Observer    ports.Observer
}

// Loop is the interaction state machine.
type Loop struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger

	events  chan event
	done    chan struct{}
	running atomic.Bool

	// session identifies the open capture session. Sinks of older sessions
	// drop their events.
	session atomic.Uint64

	// Owned by the Run goroutine.
	ctx           context.Context
	active        bool
	processing    bool
	state         domain.SessionState
	epoch         uint64
	captureOpen   bool
	cancelCascade context.CancelFunc
	language      domain.Language
	volume        int

	mu     sync.RWMutex
	status domain.Status
}

// New creates a loop. Call Run to start it.
func New(deps Deps, cfg Config, logger zerolog.Logger) *Loop {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = 100 * time.Millisecond
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageEnglish
	}
	if cfg.VolumeStep <= 0 {
		cfg.VolumeStep = 10
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 5 * time.Second
	}

	l := &Loop{
		deps:     deps,
		cfg:      cfg,
		logger:   logger.With().Str("component", "loop").Logger(),
		events:   make(chan event, 64),
		done:     make(chan struct{}),
		state:    domain.SessionStateIdle,
		language: cfg.Language,
		volume:   cfg.InitialVolume,
	}
	l.status = domain.Status{State: domain.SessionStateIdle, Language: l.language, Volume: l.volume}
	return l
}

// Run processes events until ctx is done. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		panic("loop: Run called twice")
	}
	defer close(l.done)

	l.ctx = ctx
	l.appendHistory(domain.CommandResult{
		ID:              uuid.New().String(),
		Transcript:      "System Init...",
		Action:          domain.ActionSystem,
		Response:        "JARVIS Online. Waiting for activation.",
		Language:        domain.LanguageEnglish,
		Timestamp:       time.Now(),
		IsSystemMessage: true,
	})
	l.publish()
	l.logger.Info().Str("language", string(l.language)).Msg("Interaction loop started")

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil
		case ev := <-l.events:
			ev.apply(l)
		}
	}
}

// Toggle flips the activation flag.
func (l *Loop) Toggle() {
	l.post(toggleEvent{})
}

// SetLanguage sets the language used for capture and system messages.
func (l *Loop) SetLanguage(lang domain.Language) {
	l.post(languageEvent{lang: lang})
}

// ToggleLanguage switches between English and Hindi.
func (l *Loop) ToggleLanguage() {
	l.post(languageEvent{toggle: true})
}

// Status returns a snapshot of the loop state.
func (l *Loop) Status() domain.Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

func (l *Loop) post(ev event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

func (l *Loop) after(d time.Duration, ev event) {
	time.AfterFunc(d, func() { l.post(ev) })
}

// publish copies loop state into the snapshot and notifies the observer.
func (l *Loop) publish() {
	status := domain.Status{State: l.state, Active: l.active, Language: l.language, Volume: l.volume}
	l.mu.Lock()
	l.status = status
	l.mu.Unlock()

	if l.deps.Observer != nil {
		l.deps.Observer.StateChanged(status)
	}
}

func (l *Loop) showTranscript(text string) {
	if l.deps.Observer != nil {
		l.deps.Observer.TranscriptChanged(text)
	}
}

func (l *Loop) setState(state domain.SessionState) {
	if l.state != state {
		l.logger.Debug().Str("from", string(l.state)).Str("to", string(state)).Msg("State transition")
	}
	l.state = state
	observability.SetSessionState(string(state))
	l.publish()
}

func (l *Loop) toggle() {
	if l.active {
		l.deactivate()
		l.logger.Info().Msg("Deactivated")
		return
	}

	l.active = true
	l.epoch++
	observability.RecordActivation(true)
	l.logger.Info().Msg("Activated")
	l.startCapture()
}

// deactivate clears the activation flag and the processing guard, cancels
// in-flight work and closes capture.
func (l *Loop) deactivate() {
	l.active = false
	l.epoch++
	l.processing = false
	observability.RecordActivation(false)

	if l.cancelCascade != nil {
		l.cancelCascade()
		l.cancelCascade = nil
	}
	l.stopCapture()
	l.setState(domain.SessionStateIdle)
}

func (l *Loop) startCapture() {
	if l.captureOpen {
		l.stopCapture()
	}

	id := l.session.Add(1)
	sink := &sessionSink{loop: l, id: id}
	err := l.deps.Capture.Start(l.ctx, ports.CaptureOptions{Language: l.language}, sink)
	observability.RecordCaptureStart(err == nil)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Capture start failed")
		l.fail(string(domain.CaptureErrorStartFailed))
		return
	}

	l.captureOpen = true
	l.showTranscript("")
	l.setState(domain.SessionStateListening)
}

func (l *Loop) stopCapture() {
	l.session.Add(1)
	if !l.captureOpen {
		return
	}
	l.captureOpen = false
	if err := l.deps.Capture.Stop(); err != nil {
		l.logger.Debug().Err(err).Msg("Capture stop failed")
	}
}

func (l *Loop) transcript(t domain.Transcript) {
	if !l.active {
		return
	}
	if !t.IsFinal {
		l.showTranscript(t.Text)
		return
	}
	if strings.TrimSpace(t.Text) == "" {
		return
	}
	if l.processing {
		observability.RecordDroppedFinal()
		l.logger.Debug().Msg("Final transcript dropped while processing")
		return
	}

	l.processing = true
	l.showTranscript(t.Text)
	l.setState(domain.SessionStateProcessing)

	epoch := l.epoch
	ctx, cancel := context.WithCancel(l.ctx)
	l.cancelCascade = cancel
	interpreter := l.deps.Interpreter
	go func() {
		result := interpreter.Interpret(ctx, t.Text)
		l.post(cascadeDone{epoch: epoch, result: result})
	}()
}

func (l *Loop) completed(ev cascadeDone) {
	if ev.epoch != l.epoch || !l.active {
		observability.RecordSuppressedResult()
		l.logger.Debug().Str("action", string(ev.result.Action)).Msg("Result suppressed after deactivation")
		return
	}
	if l.cancelCascade != nil {
		l.cancelCascade()
		l.cancelCascade = nil
	}

	result := ev.result
	l.applyEffects(result)
	l.appendHistory(result)

	l.setState(domain.SessionStateSpeaking)
	l.deps.Output.Speak(result.SpeechText(), result.Language)
	l.after(l.cfg.SettleDelay, settled{epoch: l.epoch})
}

func (l *Loop) applyEffects(result domain.CommandResult) {
	switch result.Action {
	case domain.ActionVolumeUp, domain.ActionVolumeDown:
		delta := l.cfg.VolumeStep
		if p, ok := result.Payload.(domain.VolumePayload); ok && p.Delta != 0 {
			delta = p.Delta
		}
		if result.Action == domain.ActionVolumeDown && delta > 0 {
			delta = -delta
		}
		l.volume = l.deps.Effects.AdjustVolume(delta)
		l.publish()
	default:
		if result.Action.OpensExternal() && result.ExternalURL != "" {
			if err := l.deps.Effects.OpenExternal(result.ExternalURL); err != nil {
				l.logger.Warn().Err(err).Str("url", result.ExternalURL).Msg("Failed to open external resource")
			}
		}
	}
}

func (l *Loop) settle(ev settled) {
	if ev.epoch != l.epoch {
		return
	}
	l.processing = false
	if l.active {
		l.startCapture()
		return
	}
	l.setState(domain.SessionStateIdle)
}

func (l *Loop) captureEnded(ev captureEnd) {
	if ev.session != l.session.Load() {
		return
	}
	l.captureOpen = false
	if !l.active || l.processing {
		return
	}
	l.after(l.cfg.RestartBackoff, restart{epoch: l.epoch})
}

func (l *Loop) restart(ev restart) {
	if ev.epoch != l.epoch || !l.active || l.processing || l.captureOpen {
		return
	}
	l.startCapture()
}

func (l *Loop) captureFailed(ev captureError) {
	if ev.session != l.session.Load() || !l.active {
		return
	}
	l.captureOpen = false

	code := domain.NormalizeCaptureError(ev.code)
	kind := code.Kind()
	observability.RecordCaptureError(string(code), string(kind))

	if kind == domain.ErrorKindCaptureTransient {
		if !l.processing {
			l.startCapture()
		}
		return
	}
	l.fail(ev.code)
}

// fail handles a fatal capture error: the loop stops and must be
// re-activated by the user.
func (l *Loop) fail(raw string) {
	code := domain.NormalizeCaptureError(raw)
	if raw == string(domain.CaptureErrorStartFailed) {
		observability.RecordCaptureError(string(code), string(domain.ErrorKindCaptureFatal))
	}
	l.deactivate()

	message := CriticalMessage(raw, l.language)
	result := domain.CommandResult{
		ID:              uuid.New().String(),
		Action:          domain.ActionError,
		Response:        message,
		Language:        l.language,
		Payload:         domain.FailurePayload{Code: domain.FailureCapture, Kind: domain.ErrorKindCaptureFatal, Subject: raw},
		Timestamp:       time.Now(),
		IsSystemMessage: true,
	}

	l.logger.Error().Str("code", raw).Str("message", message).Msg("Capture failed")
	observability.RecordError("capture_"+string(code), "loop")
	l.showTranscript(message)
	l.deps.Output.Speak(message, l.language)
	l.appendHistory(result)
}

func (l *Loop) setLanguage(ev languageEvent) {
	lang := ev.lang
	if ev.toggle {
		lang = l.language.Toggle()
	}
	if lang != domain.LanguageEnglish && lang != domain.LanguageHindi {
		return
	}
	l.language = lang
	l.logger.Info().Str("language", string(lang)).Msg("Language changed")
	l.publish()
}

func (l *Loop) appendHistory(result domain.CommandResult) {
	if l.deps.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), l.cfg.HistoryTimeout)
	defer cancel()
	if err := l.deps.History.Append(ctx, result); err != nil {
		l.logger.Warn().Err(err).Str("id", result.ID).Msg("History append failed")
	}
}

func (l *Loop) shutdown() {
	if l.cancelCascade != nil {
		l.cancelCascade()
		l.cancelCascade = nil
	}
	l.active = false
	l.epoch++
	l.stopCapture()
	l.state = domain.SessionStateIdle
	l.publish()
	l.logger.Info().Msg("Interaction loop stopped")
}
