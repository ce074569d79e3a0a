package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type pgxDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores contexts in conversation_contexts, one row per
// (session_id, user_id). Updates lock the row with SELECT ... FOR UPDATE.
type PostgresBackend struct {
	db     pgxDB
	tracer trace.Tracer
}

// NewPostgresBackend accepts a *pgxpool.Pool or any compatible handle.
func NewPostgresBackend(db pgxDB, tracer trace.Tracer) *PostgresBackend {
	if db == nil {
		panic("memory: postgres handle cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("clinic.internal.memory.postgres")
	}
	return &PostgresBackend{db: db, tracer: tracer}
}

func (b *PostgresBackend) Load(ctx context.Context, key Key) (*Context, error) {
	ctx, span := b.tracer.Start(ctx, "memory.postgres.load")
	defer span.End()

	var data []byte
	err := b.db.QueryRow(ctx, `
		SELECT context_data FROM conversation_contexts
		WHERE session_id = $1 AND user_id = $2`, key.SessionID, key.UserID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: select context: %w", err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: decode context: %w", err)
	}
	return &c, nil
}

func (b *PostgresBackend) Update(ctx context.Context, key Key, fn func(c *Context) error) (*Context, error) {
	ctx, span := b.tracer.Start(ctx, "memory.postgres.update")
	defer span.End()

	tx, err := b.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// Make sure a row exists to lock; a concurrent creator wins the conflict.
	if _, err := tx.Exec(ctx, `
		INSERT INTO conversation_contexts (session_id, user_id, context_data, created_at, updated_at, expires_at)
		VALUES ($1, $2, '{}'::jsonb, now(), now(), now())
		ON CONFLICT (session_id, user_id) DO NOTHING`, key.SessionID, key.UserID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: ensure row: %w", err)
	}

	var data []byte
	if err := tx.QueryRow(ctx, `
		SELECT context_data FROM conversation_contexts
		WHERE session_id = $1 AND user_id = $2
		FOR UPDATE`, key.SessionID, key.UserID).Scan(&data); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: lock context: %w", err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: decode context: %w", err)
	}
	if err := fn(&c); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("memory: encode context: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE conversation_contexts
		SET context_data = $3, last_message = $4, last_response = $5, message_count = $6,
		    created_at = $7, updated_at = $8, expires_at = $9
		WHERE session_id = $1 AND user_id = $2`,
		key.SessionID, key.UserID, payload, c.LastUserMessage, c.LastResponse, c.MessageCount,
		c.CreatedAt, c.UpdatedAt, c.ExpiresAt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: write context: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: commit: %w", err)
	}
	committed = true
	return &c, nil
}

func (b *PostgresBackend) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := b.tracer.Start(ctx, "memory.postgres.sweep")
	defer span.End()

	tag, err := b.db.Exec(ctx, `DELETE FROM conversation_contexts WHERE expires_at < $1`, now)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("memory: delete expired: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
