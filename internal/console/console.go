// Package console drives the assistant from a terminal: typed lines are
// final transcripts and replies are printed.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

// ErrQuit is returned by Run when the user quits or input ends.
var ErrQuit = errors.New("console: quit")

var (
	_ ports.CapturePort = (*Console)(nil)
	_ ports.OutputPort  = (*Console)(nil)
	_ ports.Observer    = (*Console)(nil)
)

// Controller is the part of the interaction loop the commands drive.
type Controller interface {
	Toggle()
	ToggleLanguage()
	Status() domain.Status
}

const help = `Commands:
  /toggle   activate or deactivate listening
  /lang     switch between English and Hindi
  /status   show the assistant state
  /quit     exit
Anything else is heard as speech while listening.`

// Console implements the capture, output and observer ports over a line
// oriented terminal.
type Console struct {
	in  io.Reader
	out io.Writer

	mu        sync.Mutex
	sink      ports.CaptureSink
	ctrl      Controller
	lastState domain.SessionState
	lastInput string

	logger zerolog.Logger
}

// New creates a console reading in and writing out.
func New(in io.Reader, out io.Writer, logger zerolog.Logger) *Console {
	return &Console{
		in:     in,
		out:    out,
		logger: logger.With().Str("component", "console").Logger(),
	}
}

// SetController attaches the loop the commands drive.
func (c *Console) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrl = ctrl
}

// Run reads lines until ctx is done, input ends or /quit.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	c.printf("JARVIS console. Type /toggle to start listening, /help for commands.\n")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("console: read input: %w", err)
			}
			return ErrQuit
		case line := <-lines:
			if err := c.handleLine(line); err != nil {
				return err
			}
		}
	}
}

func (c *Console) handleLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	c.mu.Lock()
	ctrl := c.ctrl
	c.mu.Unlock()

	if strings.HasPrefix(line, "/") {
		switch strings.ToLower(line) {
		case "/quit", "/exit":
			return ErrQuit
		case "/help":
			c.printf("%s\n", help)
		case "/toggle":
			if ctrl != nil {
				ctrl.Toggle()
			}
		case "/lang":
			if ctrl != nil {
				ctrl.ToggleLanguage()
			}
		case "/status":
			if ctrl != nil {
				s := ctrl.Status()
				c.printf("state=%s active=%t language=%s volume=%d%%\n", s.State, s.Active, s.Language, s.Volume)
			}
		default:
			c.printf("Unknown command %s. Type /help.\n", line)
		}
		return nil
	}

	c.mu.Lock()
	sink := c.sink
	c.sink = nil
	c.lastInput = line
	c.mu.Unlock()

	if sink == nil {
		c.printf("(not listening, type /toggle)\n")
		return nil
	}
	sink.OnTranscript(domain.Transcript{Text: line, IsFinal: true, CapturedAt: time.Now()})
	sink.OnEnd()
	return nil
}

// Start opens a capture session; the next typed line is its final transcript.
func (c *Console) Start(_ context.Context, opts ports.CaptureOptions, sink ports.CaptureSink) error {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()

	c.printf("[%s] > ", opts.Language.Tag())
	return nil
}

// Stop closes the capture session.
func (c *Console) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = nil
	return nil
}

// Speak prints the reply.
func (c *Console) Speak(text string, _ domain.Language) {
	c.printf("JARVIS: %s\n", text)
}

// StateChanged prints activation and state transitions.
func (c *Console) StateChanged(status domain.Status) {
	c.mu.Lock()
	changed := status.State != c.lastState
	c.lastState = status.State
	c.mu.Unlock()

	if changed {
		c.logger.Debug().Str("state", string(status.State)).Bool("active", status.Active).Msg("State changed")
		if status.State == domain.SessionStateIdle {
			c.printf("(idle)\n")
		}
	}
}

// TranscriptChanged prints display text that did not come from the keyboard,
// such as capture error messages.
func (c *Console) TranscriptChanged(text string) {
	c.mu.Lock()
	echo := text == "" || text == c.lastInput
	c.mu.Unlock()

	if !echo {
		c.printf("! %s\n", text)
	}
}

// VolumeChanged prints the new volume level.
func (c *Console) VolumeChanged(level int) {
	c.printf("Volume: %d%%\n", level)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
