package requests

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/skipq/internal/pricing"
)

// Fixed-width UTC timestamps sort lexically, so range queries can compare text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const defaultFeedLimit = 100

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	id,
	created_at,
	title,
	location,
	city,
	description,
	requester_id,
	service_tier,
	estimated_wait_minutes,
	rush,
	jurisdiction,
	status,
	COALESCE(worker_id, ''),
	actual_wait_minutes,
	completed_at,
	estimate_json,
	final_json
`

func (s *Store) Insert(ctx context.Context, r Request) error {
	estimateJSON, err := json.Marshal(r.Estimate)
	if err != nil {
		return fmt.Errorf("encode estimate snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (
			id, created_at, title, location, city, description, requester_id,
			service_tier, estimated_wait_minutes, rush, jurisdiction, status, estimate_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		formatTime(r.CreatedAt),
		r.Title,
		r.Location,
		r.City,
		r.Description,
		r.RequesterID,
		string(r.Tier),
		r.EstimatedWaitMinutes,
		r.Rush,
		r.Jurisdiction,
		string(r.Status),
		string(estimateJSON),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("query request %s: %w", id, err)
	}
	return r, nil
}

// ListOpen returns open requests newest first.
func (s *Store) ListOpen(ctx context.Context, f FeedFilter) ([]Request, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	query := strings.TrimSpace(f.Query)
	search := containsPattern(query)
	city := strings.TrimSpace(f.City)
	citySearch := containsPattern(city)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM requests
		WHERE status = ?
			AND (? = '' OR service_tier = ?)
			AND (? = '' OR city = ? COLLATE NOCASE OR location LIKE ? ESCAPE '\')
			AND (? = '' OR title LIKE ? ESCAPE '\' OR location LIKE ? ESCAPE '\')
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`,
		string(StatusOpen),
		string(f.Tier), string(f.Tier),
		city, city, citySearch,
		query, search, search,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query open requests: %w", err)
	}
	return collect(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere in the
// column. Pair it with ESCAPE '\'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ListCompletedByWorker returns a worker's jobs completed at or after since, newest first.
func (s *Store) ListCompletedByWorker(ctx context.Context, workerID string, since time.Time) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM requests
		WHERE status = ? AND worker_id = ? AND completed_at >= ?
		ORDER BY completed_at DESC, id DESC
	`, string(StatusCompleted), workerID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query completed requests: %w", err)
	}
	return collect(rows)
}

func (s *Store) Accept(ctx context.Context, id, workerID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE requests
		SET status = ?, worker_id = ?
		WHERE id = ? AND status = ?
	`, string(StatusInProgress), workerID, id, string(StatusOpen))
	if err != nil {
		return fmt.Errorf("accept request %s: %w", id, err)
	}
	return s.checkTransition(ctx, result, id)
}

// Complete stores the final fare snapshot. It succeeds at most once per request.
func (s *Store) Complete(ctx context.Context, id string, actualWaitMinutes float64, completedAt time.Time, final pricing.FareBreakdown) error {
	finalJSON, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("encode final snapshot: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE requests
		SET
			status = ?,
			actual_wait_minutes = ?,
			completed_at = ?,
			final_json = ?
		WHERE id = ? AND status = ? AND final_json IS NULL
	`, string(StatusCompleted), actualWaitMinutes, formatTime(completedAt), string(finalJSON), id, string(StatusInProgress))
	if err != nil {
		return fmt.Errorf("complete request %s: %w", id, err)
	}
	return s.checkTransition(ctx, result, id)
}

func (s *Store) Cancel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE requests
		SET status = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(StatusCancelled), id, string(StatusOpen), string(StatusInProgress))
	if err != nil {
		return fmt.Errorf("cancel request %s: %w", id, err)
	}
	return s.checkTransition(ctx, result, id)
}

// checkTransition distinguishes a missing request from one in the wrong status
// when a guarded UPDATE touched no rows.
func (s *Store) checkTransition(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM requests WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check request existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (Request, error) {
	var (
		r            Request
		createdAt    string
		tier         string
		status       string
		actualWait   sql.NullFloat64
		completedAt  sql.NullString
		estimateJSON string
		finalJSON    sql.NullString
	)
	if err := row.Scan(
		&r.ID,
		&createdAt,
		&r.Title,
		&r.Location,
		&r.City,
		&r.Description,
		&r.RequesterID,
		&tier,
		&r.EstimatedWaitMinutes,
		&r.Rush,
		&r.Jurisdiction,
		&status,
		&r.WorkerID,
		&actualWait,
		&completedAt,
		&estimateJSON,
		&finalJSON,
	); err != nil {
		return Request{}, err
	}

	r.Tier = pricing.ServiceTier(tier)
	r.Status = Status(status)

	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return Request{}, fmt.Errorf("parse created_at: %w", err)
	}
	if actualWait.Valid {
		v := actualWait.Float64
		r.ActualWaitMinutes = &v
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return Request{}, fmt.Errorf("parse completed_at: %w", err)
		}
		r.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(estimateJSON), &r.Estimate); err != nil {
		return Request{}, fmt.Errorf("decode estimate snapshot: %w", err)
	}
	if finalJSON.Valid {
		var final pricing.FareBreakdown
		if err := json.Unmarshal([]byte(finalJSON.String), &final); err != nil {
			return Request{}, fmt.Errorf("decode final snapshot: %w", err)
		}
		r.Final = &final
	}
	return r, nil
}

func collect(rows *sql.Rows) ([]Request, error) {
	defer rows.Close()

	out := make([]Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
