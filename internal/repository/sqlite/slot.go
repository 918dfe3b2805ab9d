package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guildops/recruit/pkg/models"
)

const slotCols = `id, cycle_id, kind, host_name, host_email, start_time, end_time, duration_minutes, location, for_track, max_bookings, created, updated`

func (r *SQLiteRepo) CreateSlot(ctx context.Context, s *models.Slot) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("slot is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO slots (cycle_id, kind, host_name, host_email, start_time, end_time, duration_minutes, location, for_track, max_bookings, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.CycleID, s.Kind, s.HostName, s.HostEmail, s.StartTime, s.EndTime, s.DurationMinutes, s.Location, s.ForTrack, s.MaxBookings, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+slotCols+` FROM slots WHERE id = ?`, id)
	var s models.Slot
	if err := scanSlot(row.Scan, &s); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &s, nil
}

func (r *SQLiteRepo) ListByCycle(ctx context.Context, cycleID int64, kind models.SlotKind, withBookings bool) ([]models.Slot, error) {
	q := `SELECT ` + slotCols + ` FROM slots WHERE cycle_id = ?`
	args := []any{cycleID}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY start_time ASC`

	slots, err := r.querySlots(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	if withBookings {
		if err := r.annotateAvailability(ctx, slots); err != nil {
			return nil, err
		}
	}

	return slots, nil
}

func (r *SQLiteRepo) ListByHostEmail(ctx context.Context, hostEmail string, cycleID int64) ([]models.Slot, error) {
	q := `SELECT ` + slotCols + ` FROM slots WHERE host_email = ?`
	args := []any{hostEmail}
	if cycleID > 0 {
		q += ` AND cycle_id = ?`
		args = append(args, cycleID)
	}
	q += ` ORDER BY start_time ASC`

	return r.querySlots(ctx, q, args...)
}

// DeleteSlot refuses to remove a slot that still has confirmed bookings.
func (r *SQLiteRepo) DeleteSlot(ctx context.Context, id int64) error {
	var confirmed int
	row := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status = 'confirmed'`, id)
	if err := row.Scan(&confirmed); err != nil {
		return err
	}
	if confirmed > 0 {
		return fmt.Errorf("slot %d has %d confirmed bookings", id, confirmed)
	}

	res, err := r.conn.Exec(ctx, `DELETE FROM slots WHERE id = ?`, id)
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

func (r *SQLiteRepo) querySlots(ctx context.Context, q string, args ...any) ([]models.Slot, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Slot
	for rows.Next() {
		var s models.Slot
		if err := scanSlot(rows.Scan, &s); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

// annotateAvailability computes live counts from confirmed bookings. The
// slot row carries no counter, so this can never drift from the truth.
func (r *SQLiteRepo) annotateAvailability(ctx context.Context, slots []models.Slot) error {
	for i := range slots {
		var active int
		row := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status = 'confirmed'`, slots[i].ID)
		if err := row.Scan(&active); err != nil {
			return err
		}
		available := slots[i].MaxBookings - active
		if available < 0 {
			available = 0
		}
		slots[i].ActiveBookings = &active
		slots[i].AvailableSpots = &available
	}

	return nil
}

func scanSlot(scan func(...any) error, s *models.Slot) error {
	return scan(&s.ID, &s.CycleID, &s.Kind, &s.HostName, &s.HostEmail, &s.StartTime, &s.EndTime, &s.DurationMinutes, &s.Location, &s.ForTrack, &s.MaxBookings, &s.Created, &s.Updated)
}
