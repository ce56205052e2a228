package ports

import (
	"context"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

// CaptureOptions configures one capture session.
type CaptureOptions struct {
	Language domain.Language
}

// CaptureSink receives the events of a capture session. A session emits
// zero or more interim transcripts then one final transcript, or ends, or
// fails with a code from the fixed capture error set.
type CaptureSink interface {
	OnTranscript(t domain.Transcript)
	OnEnd()
	OnError(code string)
}

// CapturePort opens and closes speech-to-text sessions.
type CapturePort interface {
	Start(ctx context.Context, opts CaptureOptions, sink CaptureSink) error
	Stop() error
}

// OutputPort speaks text. Speak cancels any utterance in progress.
type OutputPort interface {
	Speak(text string, lang domain.Language)
}

// ContactDirectory resolves a spoken name to a phone number.
type ContactDirectory interface {
	Lookup(name string) (string, bool)
}

// ConversationalFallback answers utterances no matcher understood.
type ConversationalFallback interface {
	Complete(ctx context.Context, utterance string, lang domain.Language) (string, error)
}

// HistorySink consumes results in order. The core never reads it back.
type HistorySink interface {
	Append(ctx context.Context, result domain.CommandResult) error
}

// Effects are the side effects a result can request.
type Effects interface {
	AdjustVolume(delta int) int
	OpenExternal(url string) error
}

// Observer is notified of display-only changes.
type Observer interface {
	StateChanged(status domain.Status)
	TranscriptChanged(text string)
}

// AudioOutput plays synthesized PCM audio.
type AudioOutput interface {
	WriteAudio(pcm []byte, sampleRate int) error
	CancelAudio()
}

// CaptureControl tells a remote client to begin or end streaming microphone audio.
type CaptureControl interface {
	BeginStreaming(lang domain.Language) error
	EndStreaming()
}
