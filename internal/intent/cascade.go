package intent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/language"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/security"
)

// Utterance is the input every matcher sees.
type Utterance struct {
	// Text is the sanitized utterance with its original casing.
	Text string
	// Lower is Text lowercased.
	Lower    string
	Language domain.Language
	Now      time.Time
}

func (u Utterance) say(en, hi string) string {
	if u.Language == domain.LanguageHindi {
		return hi
	}
	return en
}

// Matcher is one rule of the cascade. Match must not block except for the
// fallback matcher, which may call the network.
type Matcher interface {
	Name() string
	Match(ctx context.Context, u Utterance) (domain.CommandResult, bool)
}

// Cascade interprets utterances with an ordered, first-match-wins matcher list.
type Cascade struct {
	matchers []Matcher
	detector *language.Detector
	now      func() time.Time
	location *time.Location
	logger   zerolog.Logger
}

type settings struct {
	now        func() time.Time
	location   *time.Location
	rng        *rand.Rand
	volumeStep int
	logger     zerolog.Logger
}

// Option configures a Cascade.
type Option func(*settings)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLocation sets the time zone used for TIME and DATE replies.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) { s.location = loc }
}

// WithRand sets the random source of the mock weather matcher.
func WithRand(rng *rand.Rand) Option {
	return func(s *settings) { s.rng = rng }
}

// WithVolumeStep sets the volume delta of VOLUME_UP and VOLUME_DOWN results.
func WithVolumeStep(step int) Option {
	return func(s *settings) { s.volumeStep = step }
}

// WithLogger sets the cascade logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// NewCascade builds the standard matcher chain. contacts and fallback may be nil.
func NewCascade(contacts ports.ContactDirectory, fallback ports.ConversationalFallback, opts ...Option) *Cascade {
	s := settings{
		now:        time.Now,
		location:   time.Local,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		volumeStep: 10,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	matchers := []Matcher{
		securityMatcher{},
		helpMatcher{},
		greetingMatcher{},
		thanksMatcher{},
		identityMatcher{},
		navigationMatcher{},
		youtubeMatcher{},
		whatsappMatcher{contacts: contacts},
		timeMatcher{},
		dateMatcher{},
		weatherMatcher{rng: &lockedRand{rng: s.rng}},
		calculatorMatcher{},
		volumeMatcher{step: s.volumeStep},
		fallbackMatcher{fallback: fallback, logger: s.logger},
	}
	return NewCascadeWith(matchers, opts...)
}

// NewCascadeWith builds a cascade over a custom matcher list.
func NewCascadeWith(matchers []Matcher, opts ...Option) *Cascade {
	s := settings{now: time.Now, location: time.Local, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Cascade{
		matchers: matchers,
		detector: language.NewDetector(),
		now:      s.now,
		location: s.location,
		logger:   s.logger,
	}
}

// Matchers returns matcher names in priority order.
func (c *Cascade) Matchers() []string {
	names := make([]string, len(c.matchers))
	for i, m := range c.matchers {
		names[i] = m.Name()
	}
	return names
}

// Interpret turns a raw utterance into a CommandResult. It always returns a
// well-formed result.
func (c *Cascade) Interpret(ctx context.Context, raw string) domain.CommandResult {
	start := time.Now()
	clean := security.Sanitize(raw)
	u := Utterance{
		Text:     clean,
		Lower:    strings.ToLower(clean),
		Language: c.detector.Detect(clean),
		Now:      c.now().In(c.location),
	}

	result, matched := c.run(ctx, u)

	result.ID = uuid.New().String()
	result.Transcript = clean
	result.Language = u.Language
	result.Timestamp = u.Now
	if !result.Action.OpensExternal() {
		result.ExternalURL = ""
	}

	observability.RecordUtterance(string(result.Action), string(result.Language), matched, time.Since(start))
	c.logger.Debug().
		Str("matcher", matched).
		Str("action", string(result.Action)).
		Str("language", string(result.Language)).
		Msg("Utterance interpreted")
	return result
}

func (c *Cascade) run(ctx context.Context, u Utterance) (domain.CommandResult, string) {
	if u.Text == "" {
		return unknownResult(u), "empty"
	}
	for _, m := range c.matchers {
		if result, ok := c.try(ctx, m, u); ok {
			return result, m.Name()
		}
	}
	return unknownResult(u), "none"
}

func (c *Cascade) try(ctx context.Context, m Matcher, u Utterance) (result domain.CommandResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("matcher", m.Name()).Str("panic", fmt.Sprint(r)).Msg("Matcher panicked")
			observability.RecordError("matcher_panic", "intent")
			result, ok = domain.CommandResult{}, false
		}
	}()
	return m.Match(ctx, u)
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}
