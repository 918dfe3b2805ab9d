package sqlite

import (
	"context"
	"database/sql"

	"github.com/guildops/recruit/pkg/models"
)

// Read-only booking queries. Bookings are created and cancelled exclusively
// by the booking engine (internal/booking), which owns the transactional
// write path.

const bookingCols = `id, cycle_id, slot_id, slot_kind, user_id, applicant_email, applicant_name, status, created, cancelled_at`

func (r *SQLiteRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = ?`, id)
	var b models.Booking
	if err := scanBooking(row.Scan, &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &b, nil
}

func (r *SQLiteRepo) ListByUser(ctx context.Context, cycleID, userID int64) ([]models.Booking, error) {
	return r.queryBookings(ctx, `SELECT `+bookingCols+` FROM bookings WHERE cycle_id = ? AND user_id = ? ORDER BY created DESC`, cycleID, userID)
}

func (r *SQLiteRepo) ListBySlot(ctx context.Context, slotID int64) ([]models.Booking, error) {
	return r.queryBookings(ctx, `SELECT `+bookingCols+` FROM bookings WHERE slot_id = ? ORDER BY created ASC`, slotID)
}

func (r *SQLiteRepo) CountConfirmedBySlot(ctx context.Context, slotID int64) (int, error) {
	var cnt int
	row := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status = 'confirmed'`, slotID)
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *SQLiteRepo) queryBookings(ctx context.Context, q string, args ...any) ([]models.Booking, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := scanBooking(rows.Scan, &b); err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

func scanBooking(scan func(...any) error, b *models.Booking) error {
	var cancelled sql.NullInt64
	if err := scan(&b.ID, &b.CycleID, &b.SlotID, &b.SlotKind, &b.UserID, &b.ApplicantEmail, &b.ApplicantName, &b.Status, &b.Created, &cancelled); err != nil {
		return err
	}
	if cancelled.Valid {
		b.CancelledAt = &cancelled.Int64
	}

	return nil
}
