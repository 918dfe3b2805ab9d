// Package booking is the scheduling core: it is the only writer of booking
// rows. Capacity and the one-confirmed-booking-per-kind rule are enforced
// inside a single immediate transaction backed by a partial unique index, so
// concurrent requests serialize at the storage layer instead of racing an
// application-level read-then-write.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guildops/recruit/internal/db"
	"github.com/guildops/recruit/internal/questions"
	"github.com/guildops/recruit/pkg/models"
)

// CancelLeadTime is how close to the slot start an applicant may still
// cancel. Admin cancellations are not subject to it.
const CancelLeadTime = 5 * time.Hour

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found or already cancelled")
	ErrSlotFull        = errors.New("slot is full")
	ErrAlreadyBooked   = errors.New("you already have a confirmed booking of this kind for this cycle")
	ErrSlotInPast      = errors.New("slot start time has already passed")
	ErrTooLateToCancel = errors.New("bookings can no longer be cancelled this close to the start time")
	ErrNotWhitelisted  = errors.New("your email is not on the interview list for this cycle")
	ErrNotOwner        = errors.New("booking belongs to another applicant")
)

type Engine struct {
	conn   *db.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

func NewEngine(conn *db.DB, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{conn: conn, logger: logger, nowFn: time.Now}
}

// SetNow overrides the engine clock. Tests only.
func (e *Engine) SetNow(fn func() time.Time) {
	if fn != nil {
		e.nowFn = fn
	}
}

// Book reserves a spot on the slot for the identified applicant.
//
// The capacity count and the insert run inside one immediate transaction:
// SQLite takes the write lock up front, so two concurrent Book calls for the
// same slot observe a linear order at the point capacity is checked. The
// per-user-per-kind rule additionally rests on the bookings_one_per_kind
// partial unique index, which holds even if a racing request slipped past
// the in-transaction check on another connection.
func (e *Engine) Book(ctx context.Context, slotID int64, id models.Identity) (*models.Booking, error) {
	slot, cycleSettings, err := e.loadSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	now := e.nowFn().UTC()

	if models.InterviewKind(slot.Kind) {
		cfg, err := questions.Parse(cycleSettings)
		if err != nil {
			return nil, err
		}
		if cfg.InterviewWhitelist {
			ok, err := e.isWhitelisted(ctx, slot.CycleID, id.Email)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrNotWhitelisted
			}
		}
	}

	tx, err := e.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Take the write lock before reading so the count below cannot go
	// stale between check and insert.
	if _, err := tx.ExecContext(ctx, `UPDATE slots SET updated = updated WHERE id = ?`, slotID); err != nil {
		return nil, err
	}

	var confirmed int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status = 'confirmed'`, slotID)
	if err := row.Scan(&confirmed); err != nil {
		return nil, err
	}
	if confirmed >= slot.MaxBookings {
		return nil, ErrSlotFull
	}

	var existing int
	row = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE cycle_id = ? AND slot_kind = ? AND user_id = ? AND status = 'confirmed'`,
		slot.CycleID, slot.Kind, id.UserID)
	if err := row.Scan(&existing); err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyBooked
	}

	if slot.StartTime <= now.Unix() {
		return nil, ErrSlotInPast
	}

	created := now.UnixMilli()
	res, err := tx.ExecContext(ctx, `INSERT INTO bookings (cycle_id, slot_id, slot_kind, user_id, applicant_email, applicant_name, status, created) VALUES (?, ?, ?, ?, ?, ?, 'confirmed', ?)`,
		slot.CycleID, slot.ID, slot.Kind, id.UserID, id.Email, id.Name, created)
	if err != nil {
		if uniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		return nil, err
	}
	bookingID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.logger.Info("booking confirmed",
		slog.Int64("booking_id", bookingID),
		slog.Int64("slot_id", slot.ID),
		slog.Int64("user_id", id.UserID),
		slog.String("kind", string(slot.Kind)),
	)

	return &models.Booking{
		ID:             bookingID,
		CycleID:        slot.CycleID,
		SlotID:         slot.ID,
		SlotKind:       slot.Kind,
		UserID:         id.UserID,
		ApplicantEmail: id.Email,
		ApplicantName:  id.Name,
		Status:         models.BookingConfirmed,
		Created:        created,
	}, nil
}

// Cancel transitions a confirmed booking to cancelled. Applicant and admin
// cancellation are the same transition with different predicates: the
// applicant must own the booking and be outside the lead-time window, an
// admin may cancel any confirmed booking at any time.
//
// A second Cancel for the same booking finds no confirmed row and fails
// ErrBookingNotFound without touching state, so retries are safe.
func (e *Engine) Cancel(ctx context.Context, bookingID int64, actor models.Identity) (*models.Booking, error) {
	tx, err := e.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b models.Booking
	var startTime int64
	row := tx.QueryRowContext(ctx, `SELECT b.id, b.cycle_id, b.slot_id, b.slot_kind, b.user_id, b.applicant_email, b.applicant_name, b.created, s.start_time
		FROM bookings b JOIN slots s ON s.id = b.slot_id
		WHERE b.id = ? AND b.status = 'confirmed'`, bookingID)
	if err := row.Scan(&b.ID, &b.CycleID, &b.SlotID, &b.SlotKind, &b.UserID, &b.ApplicantEmail, &b.ApplicantName, &b.Created, &startTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	now := e.nowFn().UTC()
	if !actor.IsAdmin {
		if b.UserID != actor.UserID {
			return nil, ErrNotOwner
		}
		if time.Unix(startTime, 0).Sub(now) <= CancelLeadTime {
			return nil, ErrTooLateToCancel
		}
	}

	cancelledAt := now.UnixMilli()
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = 'cancelled', cancelled_at = ? WHERE id = ? AND status = 'confirmed'`, cancelledAt, bookingID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrBookingNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.logger.Info("booking cancelled",
		slog.Int64("booking_id", b.ID),
		slog.Int64("actor_id", actor.UserID),
		slog.Bool("by_admin", actor.IsAdmin),
	)

	b.Status = models.BookingCancelled
	b.CancelledAt = &cancelledAt
	return &b, nil
}

// Availability returns the live confirmed count and remaining spots.
func (e *Engine) Availability(ctx context.Context, slotID int64) (active, available int, err error) {
	slot, _, err := e.loadSlot(ctx, slotID)
	if err != nil {
		return 0, 0, err
	}

	row := e.conn.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status = 'confirmed'`, slotID)
	if err := row.Scan(&active); err != nil {
		return 0, 0, err
	}
	available = slot.MaxBookings - active
	if available < 0 {
		available = 0
	}

	return active, available, nil
}

func (e *Engine) loadSlot(ctx context.Context, slotID int64) (*models.Slot, string, error) {
	row := e.conn.QueryRow(ctx, `SELECT s.id, s.cycle_id, s.kind, s.host_name, s.host_email, s.start_time, s.end_time, s.max_bookings, c.settings
		FROM slots s JOIN cycles c ON c.id = s.cycle_id
		WHERE s.id = ?`, slotID)

	var s models.Slot
	var settings string
	if err := row.Scan(&s.ID, &s.CycleID, &s.Kind, &s.HostName, &s.HostEmail, &s.StartTime, &s.EndTime, &s.MaxBookings, &settings); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", ErrSlotNotFound
		}
		return nil, "", fmt.Errorf("load slot: %w", err)
	}

	return &s, settings, nil
}

func (e *Engine) isWhitelisted(ctx context.Context, cycleID int64, email string) (bool, error) {
	var cnt int
	row := e.conn.QueryRow(ctx, `SELECT COUNT(1) FROM whitelist WHERE cycle_id = ? AND email = ?`, cycleID, strings.ToLower(strings.TrimSpace(email)))
	if err := row.Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func uniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
