package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guildops/recruit/pkg/models"
)

// UpsertReview inserts a review or replaces an existing one in place.
// One reviewer's opinion per (application, phase) is singular and revisable,
// never duplicated.
func (r *SQLiteRepo) UpsertReview(ctx context.Context, rv *models.Review) (int64, error) {
	if rv == nil {
		return 0, fmt.Errorf("review is nil")
	}

	scores := "{}"
	if rv.Scores != nil {
		b, err := json.Marshal(rv.Scores)
		if err != nil {
			return 0, err
		}
		scores = string(b)
	}

	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO reviews (cycle_id, application_id, reviewer_email, phase, scores, recommendation, notes, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (application_id, reviewer_email, phase)
		DO UPDATE SET scores = excluded.scores, recommendation = excluded.recommendation, notes = excluded.notes, updated = excluded.updated`,
		rv.CycleID, rv.ApplicationID, rv.ReviewerEmail, rv.Phase, scores, rv.Recommend, rv.Notes, ts, ts)
	if err != nil {
		return 0, err
	}

	var id int64
	row := r.conn.QueryRow(ctx, `SELECT id FROM reviews WHERE application_id = ? AND reviewer_email = ? AND phase = ?`,
		rv.ApplicationID, rv.ReviewerEmail, rv.Phase)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) ListReviewsByApplication(ctx context.Context, applicationID int64) ([]models.Review, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, cycle_id, application_id, reviewer_email, phase, scores, recommendation, notes, created, updated FROM reviews WHERE application_id = ? ORDER BY created ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var rv models.Review
		var scores string
		if err := rows.Scan(&rv.ID, &rv.CycleID, &rv.ApplicationID, &rv.ReviewerEmail, &rv.Phase, &scores, &rv.Recommend, &rv.Notes, &rv.Created, &rv.Updated); err != nil {
			return nil, err
		}
		if scores != "" {
			if err := json.Unmarshal([]byte(scores), &rv.Scores); err != nil {
				return nil, fmt.Errorf("decode scores: %w", err)
			}
		}

		out = append(out, rv)
	}

	return out, rows.Err()
}
