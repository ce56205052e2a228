package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

// Run modes.
const (
	ModeServer  = "server"
	ModeConsole = "console"
)

// Capture and output providers.
const (
	ProviderBrowser  = "browser"
	ProviderDeepgram = "deepgram"
	ProviderCartesia = "cartesia"
)

// Config holds all configuration for the assistant
type Config struct {
	// Server configuration
	Port           string   `envconfig:"PORT" default:"8080"`
	GRPCPort       string   `envconfig:"GRPC_PORT" default:"9090"`
	Mode           string   `envconfig:"MODE" default:"server"` // server, console
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`       // WebSocket origins besides the serving host

	// Interaction loop
	DefaultLanguage  string `envconfig:"DEFAULT_LANGUAGE" default:"en"`
	SettleDelayMs    int    `envconfig:"SETTLE_DELAY_MS" default:"2000"`   // Pause after speaking before listening again
	RestartBackoffMs int    `envconfig:"RESTART_BACKOFF_MS" default:"100"` // Delay before reopening an ended capture session
	InitialVolume    int    `envconfig:"INITIAL_VOLUME" default:"50"`
	VolumeStep       int    `envconfig:"VOLUME_STEP" default:"10"`
	Timezone         string `envconfig:"TIMEZONE" default:"Local"` // IANA name used for TIME and DATE replies

	// Contacts
	ContactsFile           string  `envconfig:"CONTACTS_FILE" default:""`
	ContactsFuzzy          bool    `envconfig:"CONTACTS_FUZZY" default:"false"`
	ContactsFuzzyThreshold float64 `envconfig:"CONTACTS_FUZZY_THRESHOLD" default:"0.9"`

	// Conversational fallback (OpenAI-compatible API, OpenRouter by default)
	OpenRouterAPIKey  string `envconfig:"OPENROUTER_API_KEY" default:""`
	OpenRouterBaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	FallbackModel     string `envconfig:"FALLBACK_MODEL" default:"nvidia/nemotron-3-nano-30b-a3b:free"`
	FallbackTimeout   int    `envconfig:"FALLBACK_TIMEOUT" default:"15"` // seconds
	FallbackMaxTokens int    `envconfig:"FALLBACK_MAX_TOKENS" default:"160"`

	// Speech capture
	CaptureProvider   string `envconfig:"CAPTURE_PROVIDER" default:"browser"` // browser, deepgram
	DeepgramAPIKey    string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel     string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	CaptureSampleRate int    `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"` // Rate of PCM streamed by the browser
	NoSpeechTimeoutMs int    `envconfig:"NO_SPEECH_TIMEOUT_MS" default:"8000"`

	// Voice activity detection on streamed audio
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for VAD
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // Frames of silence to mark speech end

	// Speech output
	OutputProvider     string `envconfig:"OUTPUT_PROVIDER" default:"browser"` // browser, cartesia
	CartesiaAPIKey     string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaBaseURL    string `envconfig:"CARTESIA_BASE_URL" default:"https://api.cartesia.ai"`
	CartesiaModelID    string `envconfig:"CARTESIA_MODEL_ID" default:"sonic-multilingual"`
	CartesiaVoiceIDEn  string `envconfig:"CARTESIA_VOICE_ID_EN" default:""`
	CartesiaVoiceIDHi  string `envconfig:"CARTESIA_VOICE_ID_HI" default:""`
	CartesiaSampleRate int    `envconfig:"CARTESIA_SAMPLE_RATE" default:"22050"`

	// History
	HistoryDatabaseURL string `envconfig:"HISTORY_DATABASE_URL" default:""`
	HistoryMemorySize  int    `envconfig:"HISTORY_MEMORY_SIZE" default:"200"`

	// Effects
	OpenOnHost bool `envconfig:"OPEN_ON_HOST" default:"false"` // Also open URLs in the host's browser

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Maximum reconnection attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Reconnection backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFile loads the named env file, then reads the environment. Unlike
// Load, a missing file is an error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks provider credentials and enumerated values.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeServer, ModeConsole:
	default:
		errs = append(errs, fmt.Errorf("MODE must be %q or %q, got %q", ModeServer, ModeConsole, c.Mode))
	}
	if _, ok := domain.ParseLanguage(c.DefaultLanguage); !ok {
		errs = append(errs, fmt.Errorf("DEFAULT_LANGUAGE must be en or hi, got %q", c.DefaultLanguage))
	}

	switch c.CaptureProvider {
	case ProviderBrowser:
	case ProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY is required when CAPTURE_PROVIDER=deepgram"))
		}
	default:
		errs = append(errs, fmt.Errorf("CAPTURE_PROVIDER must be browser or deepgram, got %q", c.CaptureProvider))
	}

	switch c.OutputProvider {
	case ProviderBrowser:
	case ProviderCartesia:
		if c.CartesiaAPIKey == "" {
			errs = append(errs, errors.New("CARTESIA_API_KEY is required when OUTPUT_PROVIDER=cartesia"))
		}
		if c.CartesiaVoiceIDEn == "" {
			errs = append(errs, errors.New("CARTESIA_VOICE_ID_EN is required when OUTPUT_PROVIDER=cartesia"))
		}
	default:
		errs = append(errs, fmt.Errorf("OUTPUT_PROVIDER must be browser or cartesia, got %q", c.OutputProvider))
	}

	if c.InitialVolume < 0 || c.InitialVolume > 100 {
		errs = append(errs, fmt.Errorf("INITIAL_VOLUME must be within [0,100], got %d", c.InitialVolume))
	}
	if c.ContactsFuzzyThreshold <= 0 || c.ContactsFuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("CONTACTS_FUZZY_THRESHOLD must be within (0,1], got %v", c.ContactsFuzzyThreshold))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Language returns the configured default language.
func (c *Config) Language() domain.Language {
	lang, ok := domain.ParseLanguage(c.DefaultLanguage)
	if !ok {
		return domain.LanguageEnglish
	}
	return lang
}

// Location resolves TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SettleDelay is the pause after speaking before capture restarts.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// RestartBackoff is the delay before reopening an ended capture session.
func (c *Config) RestartBackoff() time.Duration {
	return time.Duration(c.RestartBackoffMs) * time.Millisecond
}

// NoSpeechTimeout is how long a capture session may hear nothing.
func (c *Config) NoSpeechTimeout() time.Duration {
	return time.Duration(c.NoSpeechTimeoutMs) * time.Millisecond
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
