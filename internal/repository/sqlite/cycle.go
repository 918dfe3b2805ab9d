package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guildops/recruit/pkg/models"
)

func (r *SQLiteRepo) CreateCycle(ctx context.Context, c *models.Cycle) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("cycle is nil")
	}
	if c.Settings == "" {
		c.Settings = "{}"
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO cycles (slug, name, is_active, portal_open_at, portal_close_at, application_due_at, settings, created, updated) VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		c.Slug, c.Name, c.PortalOpenAt, c.PortalCloseAt, c.ApplicationDueAt, c.Settings, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) UpdateCycle(ctx context.Context, c *models.Cycle) error {
	if c == nil {
		return fmt.Errorf("cycle is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE cycles SET slug = ?, name = ?, portal_open_at = ?, portal_close_at = ?, application_due_at = ?, settings = ?, updated = ? WHERE id = ?`,
		c.Slug, c.Name, c.PortalOpenAt, c.PortalCloseAt, c.ApplicationDueAt, c.Settings, now(), c.ID)
	return err
}

func (r *SQLiteRepo) GetCycle(ctx context.Context, id int64) (*models.Cycle, error) {
	return r.scanCycle(r.conn.QueryRow(ctx, `SELECT id, slug, name, is_active, portal_open_at, portal_close_at, application_due_at, settings, created, updated FROM cycles WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetActiveCycle(ctx context.Context) (*models.Cycle, error) {
	return r.scanCycle(r.conn.QueryRow(ctx, `SELECT id, slug, name, is_active, portal_open_at, portal_close_at, application_due_at, settings, created, updated FROM cycles WHERE is_active = 1`))
}

// SetActiveCycle demotes every cycle and promotes the given one inside a
// single transaction, so there is no window where zero or two cycles are
// active under concurrent calls.
func (r *SQLiteRepo) SetActiveCycle(ctx context.Context, id int64) error {
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE cycles SET is_active = 0 WHERE is_active = 1`); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE cycles SET is_active = 1, updated = ? WHERE id = ?`, now(), id)
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

	return tx.Commit()
}

func (r *SQLiteRepo) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, slug, name, is_active, portal_open_at, portal_close_at, application_due_at, settings, created, updated FROM cycles ORDER BY created DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Cycle
	for rows.Next() {
		var c models.Cycle
		var active int
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &active, &c.PortalOpenAt, &c.PortalCloseAt, &c.ApplicationDueAt, &c.Settings, &c.Created, &c.Updated); err != nil {
			return nil, err
		}
		c.IsActive = active != 0

		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) scanCycle(row *sql.Row) (*models.Cycle, error) {
	var c models.Cycle
	var active int
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &active, &c.PortalOpenAt, &c.PortalCloseAt, &c.ApplicationDueAt, &c.Settings, &c.Created, &c.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}
	c.IsActive = active != 0

	return &c, nil
}
