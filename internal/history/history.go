// Package history provides HistorySink implementations. The interaction
// loop only appends; reads are for the HTTP API and tests.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

var (
	_ ports.HistorySink = (*LogSink)(nil)
	_ ports.HistorySink = (*MemorySink)(nil)
	_ ports.HistorySink = (*PostgresSink)(nil)
	_ ports.HistorySink = FanOut(nil)
)

// LogSink writes every result as a structured log line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "history").Logger()}
}

// Append logs result. System messages are logged at their severity.
func (s *LogSink) Append(_ context.Context, result domain.CommandResult) error {
	event := s.logger.Info()
	if result.Action == domain.ActionError && result.IsSystemMessage {
		event = s.logger.Error()
	}
	event.
		Str("id", result.ID).
		Str("action", string(result.Action)).
		Str("language", string(result.Language)).
		Str("transcript", result.Transcript).
		Str("response", result.Response).
		Str("external_url", result.ExternalURL).
		Bool("system", result.IsSystemMessage).
		Msg("History entry")
	return nil
}

// MemorySink keeps the most recent results in a bounded ring.
type MemorySink struct {
	mu      sync.RWMutex
	entries []domain.CommandResult
	next    int
	full    bool
}

// NewMemorySink creates a ring holding up to size results.
func NewMemorySink(size int) *MemorySink {
	if size <= 0 {
		size = 200
	}
	return &MemorySink{entries: make([]domain.CommandResult, size)}
}

// Append stores result, evicting the oldest entry when full.
func (s *MemorySink) Append(_ context.Context, result domain.CommandResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.next] = result
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Snapshot returns the stored results, oldest first.
func (s *MemorySink) Snapshot() []domain.CommandResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.full {
		return append([]domain.CommandResult(nil), s.entries[:s.next]...)
	}
	out := make([]domain.CommandResult, 0, len(s.entries))
	out = append(out, s.entries[s.next:]...)
	return append(out, s.entries[:s.next]...)
}

// Recent returns up to n of the newest results, oldest first.
func (s *MemorySink) Recent(n int) []domain.CommandResult {
	all := s.Snapshot()
	if n > 0 && len(all) > n {
		return all[len(all)-n:]
	}
	return all
}

// Len returns the number of stored results.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.entries)
	}
	return s.next
}

// Named labels a sink for metrics.
type Named struct {
	Name string
	Sink ports.HistorySink
}

// FanOut appends to every sink in order. A failing sink does not stop the
// others; all errors are joined.
type FanOut []Named

// Append appends result to every sink.
func (f FanOut) Append(ctx context.Context, result domain.CommandResult) error {
	var errs []error
	for _, n := range f {
		err := n.Sink.Append(ctx, result)
		observability.RecordHistoryAppend(n.Name, err == nil)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
