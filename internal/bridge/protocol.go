package bridge

import (
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

// Client to server message types.
const (
	TypeToggle       = "toggle"
	TypeLanguage     = "language"
	TypeTranscript   = "transcript"
	TypeCaptureEnd   = "capture_end"
	TypeCaptureError = "capture_error"
)

// Server to client message types.
const (
	TypeState        = "state"
	TypeHistory      = "history"
	TypeSpeak        = "speak"
	TypeOpen         = "open"
	TypeVolume       = "volume"
	TypeCaptureStart = "capture_start"
	TypeCaptureStop  = "capture_stop"
	TypeAudioFormat  = "audio_format"
	TypeAudioCancel  = "audio_cancel"
)

// Capture modes sent with capture_start.
const (
	// ModeRecognize asks the browser to run its own speech recognizer and
	// send transcript events.
	ModeRecognize = "recognize"
	// ModeStream asks the browser to stream raw 16-bit PCM as binary frames.
	ModeStream = "stream"
)

// Message is the JSON envelope exchanged over the socket. Only the fields
// relevant to Type are set.
type Message struct {
	Type       string                `json:"type"`
	Text       string                `json:"text,omitempty"`
	IsFinal    bool                  `json:"isFinal,omitempty"`
	Error      string                `json:"error,omitempty"`
	Lang       domain.Language       `json:"lang,omitempty"`
	LangTag    string                `json:"langTag,omitempty"`
	Mode       string                `json:"mode,omitempty"`
	URL        string                `json:"url,omitempty"`
	Level      *int                  `json:"level,omitempty"`
	SampleRate int                   `json:"sampleRate,omitempty"`
	Status     *domain.Status        `json:"status,omitempty"`
	Entry      *domain.CommandResult `json:"entry,omitempty"`
}
