package repository

import (
	"context"

	"github.com/guildops/recruit/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Note the deliberate absence of booking mutation methods: bookings change
// status only through the booking engine's transactional Book and Cancel
// paths (internal/booking), never through a repository write.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type CycleRepo interface {
	CreateCycle(ctx context.Context, c *models.Cycle) (int64, error)
	UpdateCycle(ctx context.Context, c *models.Cycle) error
	GetCycle(ctx context.Context, id int64) (*models.Cycle, error)
	// GetActiveCycle returns (nil, nil) when no cycle is active; callers
	// treat that as "portal closed", not an error.
	GetActiveCycle(ctx context.Context) (*models.Cycle, error)
	// SetActiveCycle atomically demotes every cycle and promotes the given
	// one, so a concurrent reader never observes zero or two active cycles.
	SetActiveCycle(ctx context.Context, id int64) error
	ListCycles(ctx context.Context) ([]models.Cycle, error)
}

type SlotRepo interface {
	CreateSlot(ctx context.Context, s *models.Slot) (int64, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	// ListByCycle returns slots for a cycle, optionally filtered by kind.
	// When withBookings is set each slot carries live ActiveBookings and
	// AvailableSpots counted from confirmed bookings.
	ListByCycle(ctx context.Context, cycleID int64, kind models.SlotKind, withBookings bool) ([]models.Slot, error)
	ListByHostEmail(ctx context.Context, hostEmail string, cycleID int64) ([]models.Slot, error)
	// DeleteSlot removes a slot that has no confirmed bookings.
	DeleteSlot(ctx context.Context, id int64) error
}

type BookingRepo interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListByUser(ctx context.Context, cycleID, userID int64) ([]models.Booking, error)
	ListBySlot(ctx context.Context, slotID int64) ([]models.Booking, error)
	CountConfirmedBySlot(ctx context.Context, slotID int64) (int, error)
}

type ApplicationRepo interface {
	CreateApplication(ctx context.Context, a *models.Application) (int64, error)
	GetApplication(ctx context.Context, id int64) (*models.Application, error)
	GetByUser(ctx context.Context, cycleID, userID int64) (*models.Application, error)
	UpdateAnswers(ctx context.Context, id int64, track string, answers map[string]string) error
	UpdateFiles(ctx context.Context, id int64, files map[string]string) error
	SetStage(ctx context.Context, id int64, stage models.Stage, submittedAt *int64) error
	ListApplicationsByCycle(ctx context.Context, cycleID int64) ([]models.Application, error)
}

type ReviewRepo interface {
	// UpsertReview inserts or, on (application_id, reviewer_email, phase)
	// conflict, replaces scores, recommendation and notes in place.
	UpsertReview(ctx context.Context, r *models.Review) (int64, error)
	ListReviewsByApplication(ctx context.Context, applicationID int64) ([]models.Review, error)
}

type ReferralRepo interface {
	// UpsertReferral inserts or, on booking_id conflict, replaces the
	// signal and notes in place. Host authorization is enforced by the
	// caller before the write.
	UpsertReferral(ctx context.Context, r *models.CoffeeChatReferral) (int64, error)
	GetByBooking(ctx context.Context, bookingID int64) (*models.CoffeeChatReferral, error)
	ListReferralsByApplication(ctx context.Context, applicationID int64) ([]models.CoffeeChatReferral, error)
}

type WhitelistRepo interface {
	AddWhitelisted(ctx context.Context, cycleID int64, emails []string) error
	IsWhitelisted(ctx context.Context, cycleID int64, email string) (bool, error)
}
