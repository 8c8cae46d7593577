// internal/journal/postgres.go
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_events (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data JSONB NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS journal_events_aggregate_idx
	ON journal_events (aggregate_type, aggregate_id, occurred_at);
`

// Postgres appends events to the journal_events table.
type Postgres struct {
	db     *sql.DB
	tracer trace.Tracer
}

// OpenPostgres connects with the pq driver and creates the table if missing.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return NewPostgres(db), nil
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:     db,
		tracer: otel.Tracer("librastore/journal"),
	}
}

// Append writes all events in one transaction.
func (p *Postgres) Append(ctx context.Context, events ...Event) error {
	ctx, span := p.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(attribute.Int("event.count", len(events))),
	)
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return p.fail(span, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journal_events (id, aggregate_type, aggregate_id, event_type, data, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return p.fail(span, fmt.Errorf("prepare statement: %w", err))
	}
	defer stmt.Close()

	for i, e := range events {
		_, err := stmt.ExecContext(ctx, e.ID, e.AggregateType, e.AggregateID, e.Type, []byte(e.Data), e.OccurredAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return p.fail(span, ErrDuplicateEvent)
			}
			return p.fail(span, fmt.Errorf("insert event %d: %w", i, err))
		}
		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.String("event.type", e.Type),
			attribute.String("aggregate.id", e.AggregateID),
		))
	}

	if err := tx.Commit(); err != nil {
		return p.fail(span, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Load returns the events of one aggregate, oldest first.
func (p *Postgres) Load(ctx context.Context, aggregateType, aggregateID string) ([]Event, error) {
	ctx, span := p.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(
			attribute.String("aggregate.type", aggregateType),
			attribute.String("aggregate.id", aggregateID),
		),
	)
	defer span.End()

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, data, occurred_at
		FROM journal_events
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY occurred_at ASC
	`, aggregateType, aggregateID)
	if err != nil {
		return nil, p.fail(span, fmt.Errorf("query events: %w", err))
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Type, &data, &e.OccurredAt); err != nil {
			return nil, p.fail(span, fmt.Errorf("scan event: %w", err))
		}
		e.Data = data
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail(span, fmt.Errorf("iterate events: %w", err))
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
