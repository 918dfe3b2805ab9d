package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guildops/recruit/pkg/models"
)

const referralCols = `id, cycle_id, booking_id, application_id, applicant_email, host_email, signal, notes, created, updated`

// UpsertReferral inserts or replaces the single referral allowed per
// booking. The host-matches-slot check happens in the handler before this
// write; the unique key on booking_id keeps re-submissions singular.
func (r *SQLiteRepo) UpsertReferral(ctx context.Context, ref *models.CoffeeChatReferral) (int64, error) {
	if ref == nil {
		return 0, fmt.Errorf("referral is nil")
	}

	var appID any
	if ref.ApplicationID != nil {
		appID = *ref.ApplicationID
	}

	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO referrals (cycle_id, booking_id, application_id, applicant_email, host_email, signal, notes, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (booking_id)
		DO UPDATE SET signal = excluded.signal, notes = excluded.notes, application_id = excluded.application_id, updated = excluded.updated`,
		ref.CycleID, ref.BookingID, appID, ref.ApplicantEmail, ref.HostEmail, ref.Signal, ref.Notes, ts, ts)
	if err != nil {
		return 0, err
	}

	var id int64
	row := r.conn.QueryRow(ctx, `SELECT id FROM referrals WHERE booking_id = ?`, ref.BookingID)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) GetByBooking(ctx context.Context, bookingID int64) (*models.CoffeeChatReferral, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+referralCols+` FROM referrals WHERE booking_id = ?`, bookingID)
	var ref models.CoffeeChatReferral
	if err := scanReferral(row.Scan, &ref); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &ref, nil
}

func (r *SQLiteRepo) ListReferralsByApplication(ctx context.Context, applicationID int64) ([]models.CoffeeChatReferral, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+referralCols+` FROM referrals WHERE application_id = ? ORDER BY created ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CoffeeChatReferral
	for rows.Next() {
		var ref models.CoffeeChatReferral
		if err := scanReferral(rows.Scan, &ref); err != nil {
			return nil, err
		}

		out = append(out, ref)
	}

	return out, rows.Err()
}

func scanReferral(scan func(...any) error, ref *models.CoffeeChatReferral) error {
	var appID sql.NullInt64
	if err := scan(&ref.ID, &ref.CycleID, &ref.BookingID, &appID, &ref.ApplicantEmail, &ref.HostEmail, &ref.Signal, &ref.Notes, &ref.Created, &ref.Updated); err != nil {
		return err
	}
	if appID.Valid {
		ref.ApplicationID = &appID.Int64
	}

	return nil
}
