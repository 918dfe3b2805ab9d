package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guildops/recruit/internal/db"
)

type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}
	now := time.Now().UTC().UnixMilli()
	q := `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, j.Type, string(j.Payload), "queued", j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().Unix(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// FetchNext claims the next available job respecting priority and schedule.
// The claim flips the status inside the select-then-update so two workers
// never pick up the same row.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	q := `SELECT id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated FROM jobs WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ? ORDER BY priority ASC, scheduled_at ASC LIMIT 1`
	now := time.Now().UTC().Unix()
	row := tx.QueryRowContext(ctx, q, now, now)

	var (
		id          int64
		typ         string
		payload     sql.NullString
		status      string
		attempts    int
		maxAttempts int
		priority    int
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := row.Scan(&id, &typ, &payload, &status, &attempts, &maxAttempts, &priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = 'running', updated = ? WHERE id = ?`, time.Now().UTC().UnixMilli(), id); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	j := &Job{
		ID:          id,
		Type:        typ,
		Status:      "running",
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Priority:    priority,
		ScheduledAt: time.Unix(scheduledAt, 0).UTC(),
		Created:     time.UnixMilli(created).UTC(),
		Updated:     time.UnixMilli(updated).UTC(),
	}
	if payload.Valid {
		j.Payload = []byte(payload.String)
	}
	if nextTry.Valid {
		t := time.Unix(nextTry.Int64, 0).UTC()
		j.NextTryAt = &t
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}

	return j, nil
}

// UpdateJob persists status, attempts and retry schedule after a handler run
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UTC().Unix()
	}
	_, err := r.db.Exec(ctx, `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().UnixMilli(), j.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// MoveToDeadLetter records a permanently failed job and removes it from the
// queue.
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	now := time.Now().UTC().UnixMilli()
	if _, err := r.db.Exec(ctx, `INSERT INTO jobs_dead_letter (job_id, type, payload, attempts, last_error, created) VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, now); err != nil {
		return fmt.Errorf("dead letter insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		return fmt.Errorf("dead letter delete: %w", err)
	}
	return nil
}

// CountByStatus is a test and ops helper.
func (r *Repository) CountByStatus(ctx context.Context, status string) (int, error) {
	var cnt int
	row := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE status = ?`, status)
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}
