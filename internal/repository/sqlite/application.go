package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/guildops/recruit/pkg/models"
)

const applicationCols = `id, cycle_id, user_id, track, stage, answers, files, submitted_at, created, updated`

func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}
	if a.Stage == "" {
		a.Stage = models.StageNotStarted
	}

	answers, err := encodeMap(a.Answers)
	if err != nil {
		return 0, err
	}
	files, err := encodeMap(a.Files)
	if err != nil {
		return 0, err
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO applications (cycle_id, user_id, track, stage, answers, files, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CycleID, a.UserID, a.Track, a.Stage, answers, files, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationCols+` FROM applications WHERE id = ?`, id)
	return scanApplicationRow(row)
}

func (r *SQLiteRepo) GetByUser(ctx context.Context, cycleID, userID int64) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationCols+` FROM applications WHERE cycle_id = ? AND user_id = ?`, cycleID, userID)
	return scanApplicationRow(row)
}

func (r *SQLiteRepo) UpdateAnswers(ctx context.Context, id int64, track string, answers map[string]string) error {
	b, err := encodeMap(answers)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, `UPDATE applications SET track = ?, answers = ?, updated = ? WHERE id = ?`, track, b, now(), id)
	return err
}

func (r *SQLiteRepo) UpdateFiles(ctx context.Context, id int64, files map[string]string) error {
	b, err := encodeMap(files)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, `UPDATE applications SET files = ?, updated = ? WHERE id = ?`, b, now(), id)
	return err
}

func (r *SQLiteRepo) SetStage(ctx context.Context, id int64, stage models.Stage, submittedAt *int64) error {
	var res sql.Result
	var err error
	if submittedAt != nil {
		res, err = r.conn.Exec(ctx, `UPDATE applications SET stage = ?, submitted_at = ?, updated = ? WHERE id = ?`, stage, *submittedAt, now(), id)
	} else {
		res, err = r.conn.Exec(ctx, `UPDATE applications SET stage = ?, updated = ? WHERE id = ?`, stage, now(), id)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *SQLiteRepo) ListApplicationsByCycle(ctx context.Context, cycleID int64) ([]models.Application, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+applicationCols+` FROM applications WHERE cycle_id = ? ORDER BY created ASC`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}

		out = append(out, *a)
	}

	return out, rows.Err()
}

func scanApplicationRow(row *sql.Row) (*models.Application, error) {
	a, err := scanApplication(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return a, nil
}

func scanApplication(scan func(...any) error) (*models.Application, error) {
	var a models.Application
	var answers, files string
	var submitted sql.NullInt64
	if err := scan(&a.ID, &a.CycleID, &a.UserID, &a.Track, &a.Stage, &answers, &files, &submitted, &a.Created, &a.Updated); err != nil {
		return nil, err
	}
	if submitted.Valid {
		a.SubmittedAt = &submitted.Int64
	}
	if err := decodeMap(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := decodeMap(files, &a.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}

	return &a, nil
}

func encodeMap(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(s string, dst *map[string]string) error {
	if s == "" {
		*dst = map[string]string{}
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}
