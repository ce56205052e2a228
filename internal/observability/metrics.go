package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jarvis_active_sessions",
		Help: "Number of connected client sessions",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jarvis_session_duration_seconds",
		Help:    "Bridge client session duration in seconds",
		Buckets: []float64{1, 10, 60, 300, 900, 3600},
	})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jarvis_session_state",
		Help: "Current interaction loop state (1 for the active state)",
	}, []string{"state"})

	activations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_activation_toggles_total",
		Help: "Total activation toggles",
	}, []string{"active"})

	volumeLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jarvis_volume_level",
		Help: "Current output volume (0-100)",
	})

	// Cascade metrics
	utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_utterances_total",
		Help: "Total utterances interpreted, by resulting action and language",
	}, []string{"action", "language"})

	cascadeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jarvis_cascade_latency_seconds",
		Help:    "Intent cascade latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"matcher"})

	droppedFinals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jarvis_dropped_final_transcripts_total",
		Help: "Final transcripts dropped because an utterance was already being processed",
	})

	suppressedResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jarvis_suppressed_results_total",
		Help: "Cascade results discarded because the loop was deactivated",
	})

	// Fallback metrics
	fallbackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_fallback_requests_total",
		Help: "Total conversational fallback requests",
	}, []string{"status"})

	fallbackLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jarvis_fallback_latency_seconds",
		Help:    "Conversational fallback latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Capture metrics
	captureSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_capture_sessions_total",
		Help: "Capture sessions started, by outcome",
	}, []string{"status"})

	captureErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_capture_errors_total",
		Help: "Capture errors by code and kind",
	}, []string{"code", "kind"})

	// TTS metrics
	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_tts_requests_total",
		Help: "Total TTS requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jarvis_tts_latency_seconds",
		Help:    "TTS processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// History metrics
	historyAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_history_appends_total",
		Help: "History sink appends",
	}, []string{"sink", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jarvis_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

var knownStates = []string{"idle", "listening", "processing", "speaking"}

// Metrics tracks a single bridge client session.
type Metrics struct {
	sessionID string
	startTime time.Time
	mu        sync.Mutex
	ended     bool
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records a client connecting
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
}

// RecordSessionEnd records a client disconnecting. Repeated calls are ignored.
func (m *Metrics) RecordSessionEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended {
		return
	}
	m.ended = true
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	RecordError(errorType, component)
}

// RecordAudioBytes records audio bytes processed
func (m *Metrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordFallback records one conversational fallback call
func RecordFallback(status string, elapsed time.Duration) {
	fallbackRequests.WithLabelValues(status).Inc()
	if elapsed > 0 {
		fallbackLatency.Observe(elapsed.Seconds())
	}
}

// RecordTTS records one speech synthesis request
func RecordTTS(success bool, elapsed time.Duration) {
	ttsRequests.WithLabelValues(statusLabel(success)).Inc()
	ttsLatency.Observe(elapsed.Seconds())
}

// RecordError records an error outside of a session
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordUtterance records one interpreted utterance
func RecordUtterance(action, language, matcher string, elapsed time.Duration) {
	utterances.WithLabelValues(action, language).Inc()
	cascadeLatency.WithLabelValues(matcher).Observe(elapsed.Seconds())
}

// RecordDroppedFinal records a final transcript dropped by the processing guard
func RecordDroppedFinal() {
	droppedFinals.Inc()
}

// RecordSuppressedResult records a result discarded after deactivation
func RecordSuppressedResult() {
	suppressedResults.Inc()
}

// RecordActivation records an activation toggle
func RecordActivation(active bool) {
	label := "false"
	if active {
		label = "true"
	}
	activations.WithLabelValues(label).Inc()
}

// SetSessionState marks state as the current loop state
func SetSessionState(state string) {
	for _, s := range knownStates {
		v := 0.0
		if s == state {
			v = 1
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

// SetVolume records the current output volume
func SetVolume(level int) {
	volumeLevel.Set(float64(level))
}

// RecordCaptureStart records a capture session start attempt
func RecordCaptureStart(success bool) {
	captureSessions.WithLabelValues(statusLabel(success)).Inc()
}

// RecordCaptureError records a capture error
func RecordCaptureError(code, kind string) {
	captureErrors.WithLabelValues(code, kind).Inc()
}

// RecordHistoryAppend records a history sink write
func RecordHistoryAppend(sink string, success bool) {
	historyAppends.WithLabelValues(sink, statusLabel(success)).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
