package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/audio"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/bridge"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/config"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/console"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/contacts"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/conversation"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/effects"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/history"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/intent"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/loop"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/resilience"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/stt"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/tts"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jarvis: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := cli.StringP("env-file", "e", "", "Env file to load instead of ./.env")
	mode := cli.StringP("mode", "m", "", "Run mode: server or console")
	contactsFile := cli.StringP("contacts", "c", "", "Contact file (YAML)")
	logLevel := cli.StringP("log-level", "l", "", "Log level: debug, info, warn, error")
	cli.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *envFile != "" {
		cfg, err = config.LoadFile(*envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *contactsFile != "" {
		cfg.ContactsFile = *contactsFile
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Console mode owns stdout.
	if cfg.Mode == config.ModeConsole {
		observability.InitLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	} else {
		observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	}
	logger := observability.GetLogger()

	logger.Info().
		Str("mode", cfg.Mode).
		Str("port", cfg.Port).
		Str("language", cfg.DefaultLanguage).
		Str("capture", cfg.CaptureProvider).
		Str("output", cfg.OutputProvider).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("JARVIS starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	err = a.run(ctx)
	if errors.Is(err, console.ErrQuit) || errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info().Msg("JARVIS stopped")
	return err
}

// app holds the wired components of one process.
type app struct {
	cfg     *config.Config
	loop    *loop.Loop
	hub     *bridge.Hub
	console *console.Console
	speaker *tts.Speaker
	memory  *history.MemorySink
	pg      *history.PostgresSink
	checks  map[string]observability.HealthCheckFunc
	logger  zerolog.Logger
}

type volumeObserver interface {
	VolumeChanged(level int)
}

func build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		memory: history.NewMemorySink(cfg.HistoryMemorySize),
		checks: make(map[string]observability.HealthCheckFunc),
		logger: logger,
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	dir, err := loadContacts(cfg, logger)
	if err != nil {
		return nil, err
	}

	fallback := conversation.NewClient(conversation.Config{
		APIKey:    cfg.OpenRouterAPIKey,
		BaseURL:   cfg.OpenRouterBaseURL,
		Model:     cfg.FallbackModel,
		Timeout:   time.Duration(cfg.FallbackTimeout) * time.Second,
		MaxTokens: cfg.FallbackMaxTokens,
	}, logger)
	if cfg.OpenRouterAPIKey != "" {
		a.checks["fallback"] = func(ctx context.Context) (bool, error) {
			if err := fallback.HealthCheck(ctx); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	cascade := intent.NewCascade(dir, fallback,
		intent.WithLocation(loc),
		intent.WithVolumeStep(cfg.VolumeStep),
		intent.WithLogger(logger),
	)

	sinks := history.FanOut{
		{Name: "log", Sink: history.NewLogSink(logger)},
		{Name: "memory", Sink: a.memory},
	}
	if cfg.HistoryDatabaseURL != "" {
		a.pg, err = history.NewPostgresSink(ctx, cfg.HistoryDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		sinks = append(sinks, history.Named{Name: "postgres", Sink: a.pg})
		a.checks["postgres"] = func(ctx context.Context) (bool, error) {
			if err := a.pg.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	var (
		capture  ports.CapturePort
		output   ports.OutputPort
		observer ports.Observer
		volumes  volumeObserver
		openers  []effects.Opener
	)

	switch cfg.Mode {
	case config.ModeConsole:
		a.console = console.New(os.Stdin, os.Stdout, logger)
		capture, output, observer, volumes = a.console, a.console, a.console, a.console
		openers = append(openers, effects.HostBrowser())

	default:
		a.hub = bridge.NewHub(logger)
		a.checks["bridge"] = a.hub.Ready
		sinks = append(sinks, history.Named{Name: "bridge", Sink: a.hub})
		observer, volumes = a.hub, a.hub
		openers = append(openers, a.hub)
		if cfg.OpenOnHost {
			openers = append(openers, effects.HostBrowser())
		}
		capture = a.hub
		output = a.hub

		if cfg.CaptureProvider == config.ProviderDeepgram {
			dg := stt.NewCapture(stt.Config{
				Model:           cfg.DeepgramModel,
				InputSampleRate: cfg.CaptureSampleRate,
				NoSpeechTimeout: cfg.NoSpeechTimeout(),
				VAD: &audio.VADConfig{
					EnergyThreshold: cfg.VADEnergyThreshold,
					SilenceFrames:   cfg.VADSilenceFrames,
				},
				Reconnect: reconnectConfig(cfg),
			}, a.hub, stt.DialDeepgram(cfg.DeepgramAPIKey), breaker(cfg, "deepgram"), logger)
			a.hub.SetAudioSink(dg.Feed)
			capture = dg
		}
		if cfg.OutputProvider == config.ProviderCartesia {
			a.speaker = tts.NewSpeaker(tts.Config{
				APIKey:  cfg.CartesiaAPIKey,
				BaseURL: cfg.CartesiaBaseURL,
				ModelID: cfg.CartesiaModelID,
				Voices: map[domain.Language]string{
					domain.LanguageEnglish: cfg.CartesiaVoiceIDEn,
					domain.LanguageHindi:   cfg.CartesiaVoiceIDHi,
				},
				SampleRate: cfg.CartesiaSampleRate,
				Retry:      retryConfig(cfg),
			}, a.hub, a.hub, breaker(cfg, "cartesia"), logger)
			output = a.speaker
		}
	}

	volume := effects.NewVolume(cfg.InitialVolume, volumes.VolumeChanged)

	a.loop = loop.New(loop.Deps{
		Capture:     capture,
		Output:      output,
		Interpreter: cascade,
		History:     sinks,
		Effects:     effects.New(volume, logger, openers...),
		Observer:    observer,
	}, loop.Config{
		SettleDelay:    cfg.SettleDelay(),
		RestartBackoff: cfg.RestartBackoff(),
		Language:       cfg.Language(),
		InitialVolume:  cfg.InitialVolume,
		VolumeStep:     cfg.VolumeStep,
	}, logger)

	if a.hub != nil {
		a.hub.SetController(a.loop)
	}
	if a.console != nil {
		a.console.SetController(a.loop)
	}
	return a, nil
}

func loadContacts(cfg *config.Config, logger zerolog.Logger) (*contacts.Directory, error) {
	var opts []contacts.Option
	if cfg.ContactsFuzzy {
		opts = append(opts, contacts.WithFuzzyMatching(cfg.ContactsFuzzyThreshold))
	}
	if cfg.ContactsFile == "" {
		return contacts.NewDirectory(nil, opts...), nil
	}

	f, err := contacts.LoadFile(cfg.ContactsFile)
	if err != nil {
		return nil, err
	}
	dir := contacts.NewDirectory(f.Entries(), opts...)
	logger.Info().Str("file", cfg.ContactsFile).Int("contacts", dir.Len()).Msg("Contacts loaded")
	return dir, nil
}

func breaker(cfg *config.Config, name string) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(name, cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)
}

func retryConfig(cfg *config.Config) *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

func reconnectConfig(cfg *config.Config) *resilience.ReconnectConfig {
	return &resilience.ReconnectConfig{
		MaxAttempts: cfg.ReconnectMaxAttempts,
		Backoff:     time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}
}

func (a *app) mux() *http.ServeMux {
	mux := http.NewServeMux()
	if a.hub != nil {
		a.hub.Register(mux, bridge.NewUpgrader(a.cfg.AllowedOrigins), a.memory)
	}
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(a.checks))
	if a.cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		a.logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}
	return mux
}

// run serves HTTP and gRPC health and drives the loop until ctx is done or
// one of them fails.
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	g.Go(func() error {
		a.logger.Info().
			Str("port", a.cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", a.cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	lis, err := net.Listen("tcp", ":"+a.cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc health listen: %w", err)
	}
	grpcHealth := observability.NewGRPCHealth(a.checks, 10*time.Second, a.logger)
	g.Go(func() error {
		return grpcHealth.Serve(ctx, lis)
	})

	g.Go(func() error {
		return a.loop.Run(ctx)
	})
	if a.console != nil {
		g.Go(func() error {
			return a.console.Run(ctx)
		})
	}

	return g.Wait()
}

func (a *app) close() {
	if a.speaker != nil {
		_ = a.speaker.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}
