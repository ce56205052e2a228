package loop

import (
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

type event interface {
	apply(l *Loop)
}

type toggleEvent struct{}

func (toggleEvent) apply(l *Loop) { l.toggle() }

type languageEvent struct {
	lang   domain.Language
	toggle bool
}

func (e languageEvent) apply(l *Loop) { l.setLanguage(e) }

type transcriptEvent struct {
	session    uint64
	transcript domain.Transcript
}

func (e transcriptEvent) apply(l *Loop) {
	if e.session != l.session.Load() {
		return
	}
	l.transcript(e.transcript)
}

type captureEnd struct {
	session uint64
}

func (e captureEnd) apply(l *Loop) { l.captureEnded(e) }

type captureError struct {
	session uint64
	code    string
}

func (e captureError) apply(l *Loop) { l.captureFailed(e) }

type cascadeDone struct {
	epoch  uint64
	result domain.CommandResult
}

func (e cascadeDone) apply(l *Loop) { l.completed(e) }

type settled struct {
	epoch uint64
}

func (e settled) apply(l *Loop) { l.settle(e) }

type restart struct {
	epoch uint64
}

func (e restart) apply(l *Loop) { l.restart(e) }

// sessionSink is handed to the capture port for one session.
type sessionSink struct {
	loop *Loop
	id   uint64
}

func (s *sessionSink) stale() bool {
	return s.loop.session.Load() != s.id
}

func (s *sessionSink) OnTranscript(t domain.Transcript) {
	if s.stale() {
		return
	}
	s.loop.post(transcriptEvent{session: s.id, transcript: t})
}

func (s *sessionSink) OnEnd() {
	if s.stale() {
		return
	}
	s.loop.post(captureEnd{session: s.id})
}

func (s *sessionSink) OnError(code string) {
	if s.stale() {
		return
	}
	s.loop.post(captureError{session: s.id, code: code})
}
