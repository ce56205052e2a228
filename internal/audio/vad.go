package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech detection
	SilenceFrames   int     // Consecutive silent frames that end an utterance
	FrameSize       int     // Samples per frame
}

// DefaultVADConfig returns 20ms frames at 16kHz and 200ms of trailing silence.
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,
		FrameSize:       320,
	}
}

// VADEvent is reported when the speech state of the stream changes.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADSpeechStarted
	VADSpeechEnded
)

// VADDetector performs energy-based Voice Activity Detection over a stream
// of samples of any chunk size.
type VADDetector struct {
	config         *VADConfig
	pending        []int16
	silenceCounter int
	isSpeaking     bool
	heardSpeech    bool
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	if config.FrameSize <= 0 {
		config.FrameSize = DefaultVADConfig().FrameSize
	}
	return &VADDetector{config: config}
}

// ProcessFrame classifies one frame and reports a state change, if any.
func (v *VADDetector) ProcessFrame(samples []int16) VADEvent {
	if CalculateRMS(samples) > v.config.EnergyThreshold {
		v.silenceCounter = 0
		v.heardSpeech = true
		if !v.isSpeaking {
			v.isSpeaking = true
			return VADSpeechStarted
		}
		return VADNone
	}

	v.silenceCounter++
	if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
		v.isSpeaking = false
		v.silenceCounter = 0
		return VADSpeechEnded
	}
	return VADNone
}

// Write splits samples into frames, carrying the remainder over to the next
// call, and returns the events in order.
func (v *VADDetector) Write(samples []int16) []VADEvent {
	v.pending = append(v.pending, samples...)

	var events []VADEvent
	size := v.config.FrameSize
	for len(v.pending) >= size {
		if ev := v.ProcessFrame(v.pending[:size]); ev != VADNone {
			events = append(events, ev)
		}
		v.pending = v.pending[size:]
	}
	if len(v.pending) == 0 {
		v.pending = nil
	}
	return events
}

// Reset resets the VAD detector state
func (v *VADDetector) Reset() {
	v.pending = nil
	v.silenceCounter = 0
	v.isSpeaking = false
	v.heardSpeech = false
}

// IsSpeaking returns whether speech is currently detected
func (v *VADDetector) IsSpeaking() bool {
	return v.isSpeaking
}

// HeardSpeech reports whether any speech frame was seen since the last Reset.
func (v *VADDetector) HeardSpeech() bool {
	return v.heardSpeech
}
