// Package pgstore provides a PostgreSQL implementation of record.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/argus/internal/explain"
	"github.com/linnemanlabs/argus/internal/record"
)

var tracer = otel.Tracer("github.com/linnemanlabs/argus/internal/record/pgstore")

//go:embed schema.sql
var schema string

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// Store persists alert records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const alertColumns = `id, ts, rule, priority, output, source, fields, explanation, processed, status`

// Insert creates the record. A duplicate id maps to record.ErrDuplicateID.
func (s *Store) Insert(ctx context.Context, r *record.Record) error {
	ctx, span := startSpan(ctx, "pgstore.Insert", "INSERT")
	defer span.End()

	fieldsJSON, err := json.Marshal(r.Fields)
	if err != nil {
		return spanErr(span, fmt.Errorf("marshal fields: %w", err))
	}
	explJSON, err := marshalExplanation(r.Explanation)
	if err != nil {
		return spanErr(span, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (`+alertColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.Timestamp, r.Rule, r.Priority, r.Output, r.Source,
		fieldsJSON, explJSON, r.Processed, string(r.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return spanErr(span, record.ErrDuplicateID)
		}
		return spanErr(span, fmt.Errorf("insert alert: %w", err))
	}
	return nil
}

// Get retrieves a record by id.
func (s *Store) Get(ctx context.Context, id string) (*record.Record, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	r, err := scanAlertRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, spanErr(span, err)
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// SetExplanation replaces the explanation and processed flag for an existing
// record.
func (s *Store) SetExplanation(ctx context.Context, id string, ex *explain.Explanation, processed bool) error {
	ctx, span := startSpan(ctx, "pgstore.SetExplanation", "UPDATE")
	defer span.End()

	explJSON, err := marshalExplanation(ex)
	if err != nil {
		return spanErr(span, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET explanation = $2, processed = $3 WHERE id = $1`,
		id, explJSON, processed,
	)
	if err != nil {
		return spanErr(span, fmt.Errorf("update explanation: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return spanErr(span, record.ErrNotFound)
	}
	return nil
}

// UpdateStatus sets the record status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status record.Status) error {
	ctx, span := startSpan(ctx, "pgstore.UpdateStatus", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return spanErr(span, fmt.Errorf("update status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return spanErr(span, record.ErrNotFound)
	}
	return nil
}

// BulkUpdateStatus updates every listed id and returns how many rows matched.
func (s *Store) BulkUpdateStatus(ctx context.Context, ids []string, status record.Status) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.BulkUpdateStatus", "UPDATE")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $2 WHERE id = ANY($1)`, ids, string(status))
	if err != nil {
		return 0, spanErr(span, fmt.Errorf("bulk update status: %w", err))
	}
	return int(tag.RowsAffected()), nil
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, f record.Filter) ([]*record.Record, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.Rule != "" {
		add("rule = $%d", f.Rule)
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY ts DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("list alerts: %w", err))
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		r, err := scanAlertRow(rows)
		if err != nil {
			return nil, spanErr(span, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate alerts: %w", err))
	}
	return out, nil
}

// CountByStatus returns the number of records per status.
func (s *Store) CountByStatus(ctx context.Context) (map[record.Status]int, error) {
	ctx, span := startSpan(ctx, "pgstore.CountByStatus", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM alerts GROUP BY status`)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("count by status: %w", err))
	}
	defer rows.Close()

	out := make(map[record.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, spanErr(span, fmt.Errorf("scan count: %w", err))
		}
		out[record.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate counts: %w", err))
	}
	return out, nil
}

// Stats aggregates counts by priority and rule since the given time.
func (s *Store) Stats(ctx context.Context, since time.Time) (*record.Stats, error) {
	ctx, span := startSpan(ctx, "pgstore.Stats", "SELECT")
	defer span.End()

	st := &record.Stats{
		ByPriority: make(map[string]int),
		ByRule:     make(map[string]int),
		Since:      since,
	}

	rows, err := s.pool.Query(ctx,
		`SELECT priority, rule, COUNT(*) FROM alerts
		 WHERE ($1::timestamptz IS NULL OR ts >= $1)
		 GROUP BY priority, rule`, nullableTime(since))
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("stats: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var priority, rule string
		var count int
		if err := rows.Scan(&priority, &rule, &count); err != nil {
			return nil, spanErr(span, fmt.Errorf("scan stats: %w", err))
		}
		st.Total += count
		st.ByPriority[priority] += count
		st.ByRule[rule] += count
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate stats: %w", err))
	}
	return st, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func marshalExplanation(ex *explain.Explanation) ([]byte, error) {
	if ex == nil {
		return nil, nil
	}
	b, err := json.Marshal(ex)
	if err != nil {
		return nil, fmt.Errorf("marshal explanation: %w", err)
	}
	return b, nil
}

// scanAlertRow scans a single row into a record.Record. Returns (nil, nil)
// when no row is found.
func scanAlertRow(row pgx.Row) (*record.Record, error) {
	var (
		r          record.Record
		status     string
		fieldsJSON []byte
		explJSON   []byte
	)

	err := row.Scan(
		&r.ID, &r.Timestamp, &r.Rule, &r.Priority, &r.Output, &r.Source,
		&fieldsJSON, &explJSON, &r.Processed, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = record.Status(status)

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &r.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	if len(explJSON) > 0 {
		var ex explain.Explanation
		if err := json.Unmarshal(explJSON, &ex); err != nil {
			return nil, fmt.Errorf("unmarshal explanation: %w", err)
		}
		r.Explanation = &ex
	}
	return &r, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
