package domain

import "time"

// ActionType identifies what a CommandResult asks the loop to do.
type ActionType string

const (
	ActionSecurityAlert ActionType = "SECURITY_ALERT"
	ActionHelp          ActionType = "HELP"
	ActionGreeting      ActionType = "GREETING"
	ActionIdentity      ActionType = "IDENTITY"
	ActionNavigation    ActionType = "NAVIGATION"
	ActionYouTube       ActionType = "YOUTUBE"
	ActionWhatsApp      ActionType = "WHATSAPP"
	ActionTime          ActionType = "TIME"
	ActionDate          ActionType = "DATE"
	ActionWeather       ActionType = "WEATHER"
	ActionCalculator    ActionType = "CALCULATOR"
	ActionVolumeUp      ActionType = "VOLUME_UP"
	ActionVolumeDown    ActionType = "VOLUME_DOWN"
	ActionConversation  ActionType = "CONVERSATION"
	ActionUnknown       ActionType = "UNKNOWN"
	ActionError         ActionType = "ERROR"
	ActionSystem        ActionType = "SYSTEM"
)

// OpensExternal reports whether results of this type may carry an external URL.
func (a ActionType) OpensExternal() bool {
	return a == ActionNavigation || a == ActionYouTube || a == ActionWhatsApp
}

// CommandResult is produced once per utterance or system event and is not
// modified after it leaves the producer.
type CommandResult struct {
	ID              string     `json:"id"`
	Transcript      string     `json:"transcript"`
	Action          ActionType `json:"actionType"`
	Response        string     `json:"response"`
	SpokenResponse  string     `json:"spokenResponse,omitempty"`
	Language        Language   `json:"language"`
	ExternalURL     string     `json:"externalUrl,omitempty"`
	Payload         Payload    `json:"payload,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	IsSystemMessage bool       `json:"isSystemMessage"`
}

// SpeechText is the text handed to the output port.
func (r CommandResult) SpeechText() string {
	if r.SpokenResponse != "" {
		return r.SpokenResponse
	}
	return r.Response
}

// Payload is the closed set of per-action result data.
type Payload interface {
	isPayload()
}

// NavigationPayload carries the normalized site of a NAVIGATION result.
type NavigationPayload struct {
	Site string `json:"site"`
}

// YouTubePayload carries the search query of a YOUTUBE result.
type YouTubePayload struct {
	Query string `json:"query"`
}

// WhatsAppPayload carries the resolved recipient of a WHATSAPP result.
type WhatsAppPayload struct {
	Recipient string `json:"recipient"`
	Number    string `json:"number"`
	Message   string `json:"message"`
}

// ClockPayload carries the wall-clock instant used by TIME and DATE.
type ClockPayload struct {
	At time.Time `json:"at"`
}

// WeatherPayload carries mock weather data.
type WeatherPayload struct {
	Location     string `json:"location"`
	TemperatureC int    `json:"temperatureC"`
	Condition    string `json:"condition"`
	Mock         bool   `json:"mock"`
}

// CalculationPayload carries a single binary operation.
type CalculationPayload struct {
	Left     float64 `json:"left"`
	Operator string  `json:"operator"`
	Right    float64 `json:"right"`
	Value    float64 `json:"value"`
}

// VolumePayload carries the requested volume change.
type VolumePayload struct {
	Delta int `json:"delta"`
}

// ConversationPayload records which model produced a CONVERSATION reply.
type ConversationPayload struct {
	Model string `json:"model"`
}

// Failure codes carried by FailurePayload.
const (
	FailureContactNotFound = "contact_not_found"
	FailureInvalidNumber   = "invalid_number"
	FailureDivisionByZero  = "division_by_zero"
	FailureCapture         = "capture"
)

// FailurePayload describes an ERROR result.
type FailurePayload struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Subject string    `json:"subject,omitempty"`
}

func (NavigationPayload) isPayload()   {}
func (YouTubePayload) isPayload()      {}
func (WhatsAppPayload) isPayload()     {}
func (ClockPayload) isPayload()        {}
func (WeatherPayload) isPayload()      {}
func (CalculationPayload) isPayload()  {}
func (VolumePayload) isPayload()       {}
func (ConversationPayload) isPayload() {}
func (FailurePayload) isPayload()      {}
