package sqlite

import (
	"context"
	"strings"
)

func (r *SQLiteRepo) AddWhitelisted(ctx context.Context, cycleID int64, emails []string) error {
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO whitelist (cycle_id, email, created) VALUES (?, ?, ?)`, cycleID, email, now()); err != nil {
			return err
		}
	}

	return nil
}

func (r *SQLiteRepo) IsWhitelisted(ctx context.Context, cycleID int64, email string) (bool, error) {
	var cnt int
	row := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM whitelist WHERE cycle_id = ? AND email = ?`, cycleID, strings.ToLower(strings.TrimSpace(email)))
	if err := row.Scan(&cnt); err != nil {
		return false, err
	}

	return cnt > 0, nil
}
