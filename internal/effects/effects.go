// Package effects applies the side effects a command result can request.
package effects

import (
	"errors"
	"net/url"
	"sync"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
)

// ErrUnsafeURL is returned for URLs that are not absolute http(s) links.
var ErrUnsafeURL = errors.New("effects: refusing to open non-http url")

// Opener opens an external resource.
type Opener interface {
	Open(rawURL string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(rawURL string) error

// Open calls f.
func (f OpenerFunc) Open(rawURL string) error { return f(rawURL) }

// Volume is the output volume level, clamped to [0,100].
type Volume struct {
	mu       sync.Mutex
	level    int
	onChange func(level int)
}

// NewVolume creates a volume control at initial, clamped.
func NewVolume(initial int, onChange func(level int)) *Volume {
	v := &Volume{level: clamp(initial), onChange: onChange}
	observability.SetVolume(v.level)
	return v
}

// Adjust changes the level by delta and returns the new level.
func (v *Volume) Adjust(delta int) int {
	v.mu.Lock()
	v.level = clamp(v.level + delta)
	level := v.level
	v.mu.Unlock()

	observability.SetVolume(level)
	if v.onChange != nil {
		v.onChange(level)
	}
	return level
}

// Level returns the current level.
func (v *Volume) Level() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// Effects implements ports.Effects over a Volume and a set of openers.
type Effects struct {
	volume  *Volume
	openers []Opener
	logger  zerolog.Logger
}

// New creates Effects. Every opener is tried; errors are joined.
func New(volume *Volume, logger zerolog.Logger, openers ...Opener) *Effects {
	return &Effects{
		volume:  volume,
		openers: openers,
		logger:  logger.With().Str("component", "effects").Logger(),
	}
}

// AdjustVolume changes the volume by delta.
func (e *Effects) AdjustVolume(delta int) int {
	level := e.volume.Adjust(delta)
	e.logger.Debug().Int("delta", delta).Int("level", level).Msg("Volume adjusted")
	return level
}

// OpenExternal validates rawURL and hands it to every opener.
func (e *Effects) OpenExternal(rawURL string) error {
	if err := checkURL(rawURL); err != nil {
		return err
	}

	var errs []error
	for _, o := range e.openers {
		if err := o.Open(rawURL); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		e.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to open external resource")
		observability.RecordError("open_external", "effects")
		return err
	}
	e.logger.Info().Str("url", rawURL).Msg("Opened external resource")
	return nil
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return ErrUnsafeURL
	}
	return nil
}

// HostBrowser opens URLs in the default browser of the machine running the
// assistant.
func HostBrowser() Opener {
	return OpenerFunc(browser.OpenURL)
}
