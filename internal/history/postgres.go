package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_history (
    seq               BIGSERIAL   PRIMARY KEY,
    id                TEXT        NOT NULL,
    transcript        TEXT        NOT NULL,
    action_type       TEXT        NOT NULL,
    response          TEXT        NOT NULL,
    spoken_response   TEXT        NOT NULL DEFAULT '',
    language          TEXT        NOT NULL,
    external_url      TEXT        NOT NULL DEFAULT '',
    payload           JSONB,
    is_system_message BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS command_history_created_at_idx ON command_history (created_at);
`

// PostgresSink persists results to a command_history table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and creates the history table if needed.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Append inserts result.
func (s *PostgresSink) Append(ctx context.Context, result domain.CommandResult) error {
	const q = `
		INSERT INTO command_history
		    (id, transcript, action_type, response, spoken_response, language,
		     external_url, payload, is_system_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var payload []byte
	if result.Payload != nil {
		raw, err := json.Marshal(result.Payload)
		if err != nil {
			return fmt.Errorf("history: encode payload: %w", err)
		}
		payload = raw
	}
	created := result.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.pool.Exec(ctx, q,
		result.ID,
		result.Transcript,
		string(result.Action),
		result.Response,
		result.SpokenResponse,
		string(result.Language),
		result.ExternalURL,
		payload,
		result.IsSystemMessage,
		created,
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Entry is a stored history row. Payloads come back as raw JSON.
type Entry struct {
	ID              string          `json:"id"`
	Transcript      string          `json:"transcript"`
	Action          string          `json:"actionType"`
	Response        string          `json:"response"`
	SpokenResponse  string          `json:"spokenResponse,omitempty"`
	Language        string          `json:"language"`
	ExternalURL     string          `json:"externalUrl,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	IsSystemMessage bool            `json:"isSystemMessage"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Recent returns up to limit of the newest rows, oldest first.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const q = `
		SELECT id, transcript, action_type, response, spoken_response, language,
		       external_url, payload, is_system_message, created_at
		FROM (
		    SELECT * FROM command_history ORDER BY seq DESC LIMIT $1
		) newest
		ORDER BY seq`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var payload []byte
		err := row.Scan(&e.ID, &e.Transcript, &e.Action, &e.Response, &e.SpokenResponse,
			&e.Language, &e.ExternalURL, &payload, &e.IsSystemMessage, &e.Timestamp)
		e.Payload = payload
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan: %w", err)
	}
	return entries, nil
}

// Ping checks database connectivity.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
