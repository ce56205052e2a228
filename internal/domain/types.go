package domain

import "time"

// Language is the reply language of an utterance.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage maps a user-supplied code to a Language.
func ParseLanguage(code string) (Language, bool) {
	switch code {
	case "en", "en-US", "en-IN", "english":
		return LanguageEnglish, true
	case "hi", "hi-IN", "hindi":
		return LanguageHindi, true
	}
	return "", false
}

// Tag returns the BCP 47 tag used by capture and output engines.
func (l Language) Tag() string {
	if l == LanguageHindi {
		return "hi-IN"
	}
	return "en-US"
}

// Toggle returns the other supported language.
func (l Language) Toggle() Language {
	if l == LanguageHindi {
		return LanguageEnglish
	}
	return LanguageHindi
}

// SessionState is the interaction loop state.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateListening  SessionState = "listening"
	SessionStateProcessing SessionState = "processing"
	SessionStateSpeaking   SessionState = "speaking"
)

// Transcript is a single capture event.
type Transcript struct {
	Text       string    `json:"text"`
	IsFinal    bool      `json:"isFinal"`
	CapturedAt time.Time `json:"capturedAt"`
}

// CaptureError identifies a capture session failure.
type CaptureError string

const (
	CaptureErrorNotAllowed   CaptureError = "not-allowed"
	CaptureErrorNotSupported CaptureError = "not-supported"
	CaptureErrorNetwork      CaptureError = "network"
	CaptureErrorAudioCapture CaptureError = "audio-capture"
	CaptureErrorStartFailed  CaptureError = "start-failed"
	CaptureErrorNoSpeech     CaptureError = "no-speech"
	CaptureErrorOther        CaptureError = "other"
)

// NormalizeCaptureError maps a raw engine code onto the fixed set.
func NormalizeCaptureError(code string) CaptureError {
	switch c := CaptureError(code); c {
	case CaptureErrorNotAllowed, CaptureErrorNotSupported, CaptureErrorNetwork,
		CaptureErrorAudioCapture, CaptureErrorStartFailed, CaptureErrorNoSpeech:
		return c
	}
	return CaptureErrorOther
}

// ErrorKind is the failure taxonomy shared by the cascade and the loop.
type ErrorKind string

const (
	ErrorKindSecurity         ErrorKind = "security"
	ErrorKindValidation       ErrorKind = "validation"
	ErrorKindTransport        ErrorKind = "transport"
	ErrorKindCaptureTransient ErrorKind = "capture_transient"
	ErrorKindCaptureFatal     ErrorKind = "capture_fatal"
)

// Kind classifies a capture error. Only no-speech is transient.
func (c CaptureError) Kind() ErrorKind {
	if c == CaptureErrorNoSpeech {
		return ErrorKindCaptureTransient
	}
	return ErrorKindCaptureFatal
}

// Status summarizes the loop for status endpoints.
type Status struct {
	State    SessionState `json:"state"`
	Active   bool         `json:"active"`
	Language Language     `json:"language"`
	Volume   int          `json:"volume"`
}
