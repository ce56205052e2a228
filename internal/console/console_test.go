package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeController struct {
	mu       sync.Mutex
	toggles  int
	switches int
}

func (f *fakeController) Toggle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
}

func (f *fakeController) ToggleLanguage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches++
}

func (f *fakeController) Status() domain.Status {
	return domain.Status{State: domain.SessionStateListening, Active: true, Language: domain.LanguageHindi, Volume: 40}
}

func (f *fakeController) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles, f.switches
}

type recordingSink struct {
	mu          sync.Mutex
	transcripts []domain.Transcript
	ends        int
}

func (r *recordingSink) OnTranscript(t domain.Transcript) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, t)
}

func (r *recordingSink) OnEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
}

func (r *recordingSink) OnError(string) {}

func (r *recordingSink) snapshot() ([]domain.Transcript, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Transcript(nil), r.transcripts...), r.ends
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func runConsole(t *testing.T) (*Console, *io.PipeWriter, *syncBuffer, chan error) {
	t.Helper()
	r, w := io.Pipe()
	out := &syncBuffer{}
	c := New(r, out, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	t.Cleanup(func() { _ = w.Close() })
	return c, w, out, done
}

func TestConsole_LineIsFinalTranscript(t *testing.T) {
	c, w, _, _ := runConsole(t)
	sink := &recordingSink{}
	if err := c.Start(context.Background(), ports.CaptureOptions{Language: domain.LanguageEnglish}, sink); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, _ = io.WriteString(w, "  what time is it  \n")
	waitFor(t, "transcript", func() bool {
		_, ends := sink.snapshot()
		return ends == 1
	})

	transcripts, _ := sink.snapshot()
	if len(transcripts) != 1 || !transcripts[0].IsFinal || transcripts[0].Text != "what time is it" {
		t.Errorf("Expected one final 'what time is it', got %+v", transcripts)
	}

	_, _ = io.WriteString(w, "hello\n")
	time.Sleep(20 * time.Millisecond)
	if transcripts, _ := sink.snapshot(); len(transcripts) != 1 {
		t.Errorf("Expected the session to end after one final, got %+v", transcripts)
	}
}

func TestConsole_NotListening(t *testing.T) {
	_, w, out, _ := runConsole(t)
	_, _ = io.WriteString(w, "hello\n")
	waitFor(t, "hint", func() bool { return strings.Contains(out.String(), "not listening") })
}

func TestConsole_Commands(t *testing.T) {
	c, w, out, done := runConsole(t)
	ctrl := &fakeController{}
	c.SetController(ctrl)

	_, _ = io.WriteString(w, "/toggle\n/lang\n/status\n/bogus\n")
	waitFor(t, "commands", func() bool { return strings.Contains(out.String(), "Unknown command /bogus") })

	toggles, switches := ctrl.counts()
	if toggles != 1 || switches != 1 {
		t.Errorf("Expected one toggle and one language switch, got %d and %d", toggles, switches)
	}
	if !strings.Contains(out.String(), "state=listening active=true language=hi volume=40%") {
		t.Errorf("Expected status line, got %q", out.String())
	}

	_, _ = io.WriteString(w, "/quit\n")
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Expected ErrQuit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for Run to return")
	}
}

func TestConsole_EOFQuits(t *testing.T) {
	_, w, _, done := runConsole(t)
	_ = w.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Expected ErrQuit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for Run to return")
	}
}

func TestConsole_ContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := New(r, &syncBuffer{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for Run to return")
	}
}

func TestConsole_Output(t *testing.T) {
	out := &syncBuffer{}
	c := New(strings.NewReader(""), out, zerolog.Nop())

	c.Speak("Good morning Sir", domain.LanguageEnglish)
	c.VolumeChanged(60)
	c.StateChanged(domain.Status{State: domain.SessionStateListening, Active: true})
	c.StateChanged(domain.Status{State: domain.SessionStateIdle})
	c.TranscriptChanged("ACCESS DENIED. Microphone permissions required.")

	got := out.String()
	for _, want := range []string{"JARVIS: Good morning Sir\n", "Volume: 60%\n", "(idle)\n", "! ACCESS DENIED."} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got %q", want, got)
		}
	}
}

func TestConsole_TypedTranscriptNotEchoed(t *testing.T) {
	out := &syncBuffer{}
	c := New(strings.NewReader(""), out, zerolog.Nop())
	if err := c.handleLine("open youtube"); err != nil {
		t.Fatalf("handleLine: %v", err)
	}
	before := out.String()
	c.TranscriptChanged("open youtube")
	if out.String() != before {
		t.Errorf("Expected typed line not to be echoed, got %q", out.String())
	}
}
