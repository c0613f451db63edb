// Package postgres provides a PostgreSQL implementation of record.Recorder.
// It uses pgx/v5 for connection pooling and JSONB for message storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frage-dev/frage/pkg/api"
	"github.com/frage-dev/frage/pkg/record"
)

// Recorder is a PostgreSQL-backed record.Recorder.
type Recorder struct {
	pool *pgxpool.Pool
}

// Ensure Recorder implements record.Recorder at compile time.
var _ record.Recorder = (*Recorder)(nil)

// New creates a new PostgreSQL recorder with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	r := &Recorder{pool: pool}

	if cfg.MigrateOnStart {
		if err := r.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return r, nil
}

// Save persists an exchange transcript.
func (r *Recorder) Save(ctx context.Context, ex *record.Exchange) error {
	messagesJSON, err := json.Marshal(ex.Messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	var usageIn, usageOut, usageTotal int
	if ex.Usage != nil {
		usageIn = ex.Usage.PromptTokens
		usageOut = ex.Usage.CompletionTokens
		usageTotal = ex.Usage.TotalTokens
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO exchanges (
			id, created_at, model, messages, response, finish_reason,
			usage_prompt_tokens, usage_completion_tokens, usage_total_tokens,
			streamed, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		ex.ID, ex.CreatedAt, ex.Model, messagesJSON, ex.Response,
		nullString(ex.FinishReason),
		usageIn, usageOut, usageTotal,
		ex.Streamed, nullString(ex.Error),
	)

	if err != nil {
		if isDuplicateKey(err) {
			return record.ErrConflict
		}
		return fmt.Errorf("inserting exchange: %w", err)
	}

	return nil
}

// Get retrieves an exchange by ID.
func (r *Recorder) Get(ctx context.Context, id string) (*record.Exchange, error) {
	var ex record.Exchange
	var messagesJSON []byte
	var finishReason, errMsg *string
	var usageIn, usageOut, usageTotal int

	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at, model, messages, response, finish_reason,
		       usage_prompt_tokens, usage_completion_tokens, usage_total_tokens,
		       streamed, error
		FROM exchanges
		WHERE id = $1
	`, id).Scan(
		&ex.ID, &ex.CreatedAt, &ex.Model, &messagesJSON, &ex.Response, &finishReason,
		&usageIn, &usageOut, &usageTotal,
		&ex.Streamed, &errMsg,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exchange: %w", err)
	}

	if err := json.Unmarshal(messagesJSON, &ex.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages: %w", err)
	}

	if finishReason != nil {
		ex.FinishReason = *finishReason
	}
	if errMsg != nil {
		ex.Error = *errMsg
	}
	if usageTotal > 0 || usageIn > 0 || usageOut > 0 {
		ex.Usage = &api.Usage{
			PromptTokens:     usageIn,
			CompletionTokens: usageOut,
			TotalTokens:      usageTotal,
		}
	}

	return &ex, nil
}

// List returns the most recent exchanges, newest first. A limit of 0
// means no limit.
func (r *Recorder) List(ctx context.Context, limit int) ([]*record.Exchange, error) {
	query := `
		SELECT id, created_at, model, messages, response, finish_reason,
		       usage_prompt_tokens, usage_completion_tokens, usage_total_tokens,
		       streamed, error
		FROM exchanges
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var out []*record.Exchange
	for rows.Next() {
		var ex record.Exchange
		var messagesJSON []byte
		var finishReason, errMsg *string
		var usageIn, usageOut, usageTotal int

		if err := rows.Scan(
			&ex.ID, &ex.CreatedAt, &ex.Model, &messagesJSON, &ex.Response, &finishReason,
			&usageIn, &usageOut, &usageTotal,
			&ex.Streamed, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}

		if err := json.Unmarshal(messagesJSON, &ex.Messages); err != nil {
			return nil, fmt.Errorf("unmarshaling messages: %w", err)
		}
		if finishReason != nil {
			ex.FinishReason = *finishReason
		}
		if errMsg != nil {
			ex.Error = *errMsg
		}
		if usageTotal > 0 || usageIn > 0 || usageOut > 0 {
			ex.Usage = &api.Usage{
				PromptTokens:     usageIn,
				CompletionTokens: usageOut,
				TotalTokens:      usageTotal,
			}
		}

		out = append(out, &ex)
	}

	return out, rows.Err()
}

// Delete removes an exchange by ID.
func (r *Recorder) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM exchanges WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting exchange: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrNotFound
	}
	return nil
}

// HealthCheck verifies the database connection.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool.
func (r *Recorder) Close() error {
	r.pool.Close()
	return nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
