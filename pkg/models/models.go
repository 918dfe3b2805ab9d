package models

// Domain models matching the database schema in db/migrations/0001_init.sql

type SlotKind string

const (
	SlotCoffeeChat      SlotKind = "coffee_chat"
	SlotInterviewRound1 SlotKind = "interview_round1"
	SlotInterviewRound2 SlotKind = "interview_round2"
)

// ValidSlotKind reports whether k is one of the closed slot kinds.
func ValidSlotKind(k SlotKind) bool {
	switch k {
	case SlotCoffeeChat, SlotInterviewRound1, SlotInterviewRound2:
		return true
	}
	return false
}

// InterviewKind reports whether k is one of the interview rounds, which are
// subject to the admission whitelist when the cycle enables it.
func InterviewKind(k SlotKind) bool {
	return k == SlotInterviewRound1 || k == SlotInterviewRound2
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Stage string

const (
	StageNotStarted  Stage = "not_started"
	StageDraft       Stage = "draft"
	StageSubmitted   Stage = "submitted"
	StageUnderReview Stage = "under_review"
	StageAdvanced    Stage = "advanced"
	StageHeld        Stage = "held"
	StageRejected    Stage = "rejected"
)

func ValidStage(s Stage) bool {
	switch s {
	case StageNotStarted, StageDraft, StageSubmitted, StageUnderReview, StageAdvanced, StageHeld, StageRejected:
		return true
	}
	return false
}

type Recommendation string

const (
	RecommendAdvance Recommendation = "advance"
	RecommendHold    Recommendation = "hold"
	RecommendReject  Recommendation = "reject"
)

type ReferralSignal string

const (
	SignalReferral ReferralSignal = "referral"
	SignalNeutral  ReferralSignal = "neutral"
	SignalDeferral ReferralSignal = "deferral"
)

func ValidSignal(s ReferralSignal) bool {
	return s == SignalReferral || s == SignalNeutral || s == SignalDeferral
}

// Identity is the resolved caller of a request, extracted from the JWT by the
// api middleware. The core trusts it and performs no authentication itself.
type Identity struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type User struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
	Updated      int64  `json:"updated" db:"updated"`
	PasswordHash string `json:"-" db:"password_hash"`
}

// Cycle is a bounded recruitment season. At most one cycle is active at a
// time; activation is a single transactional demote-all-promote-one write.
// Settings holds the per-track question configuration as JSON, validated
// against a schema on write (see internal/questions).
type Cycle struct {
	ID               int64  `json:"id" db:"id"`
	Slug             string `json:"slug" db:"slug"`
	Name             string `json:"name" db:"name"`
	IsActive         bool   `json:"is_active" db:"is_active"`
	PortalOpenAt     int64  `json:"portal_open_at" db:"portal_open_at"`
	PortalCloseAt    int64  `json:"portal_close_at" db:"portal_close_at"`
	ApplicationDueAt int64  `json:"application_due_at" db:"application_due_at"`
	Settings         string `json:"settings,omitempty" db:"settings"`
	Created          int64  `json:"created" db:"created"`
	Updated          int64  `json:"updated" db:"updated"`
}

// Slot is a bookable time window. The number of active bookings is never
// stored on the slot; it is always counted from confirmed bookings so the
// two can't drift.
type Slot struct {
	ID              int64    `json:"id" db:"id"`
	CycleID         int64    `json:"cycle_id" db:"cycle_id"`
	Kind            SlotKind `json:"kind" db:"kind"`
	HostName        string   `json:"host_name" db:"host_name"`
	HostEmail       string   `json:"host_email" db:"host_email"`
	StartTime       int64    `json:"start_time" db:"start_time"`
	EndTime         int64    `json:"end_time" db:"end_time"`
	DurationMinutes int      `json:"duration_minutes" db:"duration_minutes"`
	Location        string   `json:"location,omitempty" db:"location"`
	ForTrack        string   `json:"for_track,omitempty" db:"for_track"`
	MaxBookings     int      `json:"max_bookings" db:"max_bookings"`
	Created         int64    `json:"created" db:"created"`
	Updated         int64    `json:"updated" db:"updated"`

	// Populated on read when the caller asks for live availability.
	ActiveBookings *int `json:"active_bookings,omitempty" db:"-"`
	AvailableSpots *int `json:"available_spots,omitempty" db:"-"`
}

type Booking struct {
	ID             int64         `json:"id" db:"id"`
	CycleID        int64         `json:"cycle_id" db:"cycle_id"`
	SlotID         int64         `json:"slot_id" db:"slot_id"`
	SlotKind       SlotKind      `json:"slot_kind" db:"slot_kind"`
	UserID         int64         `json:"user_id" db:"user_id"`
	ApplicantEmail string        `json:"applicant_email" db:"applicant_email"`
	ApplicantName  string        `json:"applicant_name" db:"applicant_name"`
	Status         BookingStatus `json:"status" db:"status"`
	Created        int64         `json:"created" db:"created"`
	CancelledAt    *int64        `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

type Application struct {
	ID          int64             `json:"id" db:"id"`
	CycleID     int64             `json:"cycle_id" db:"cycle_id"`
	UserID      int64             `json:"user_id" db:"user_id"`
	Track       string            `json:"track" db:"track"`
	Stage       Stage             `json:"stage" db:"stage"`
	Answers     map[string]string `json:"answers" db:"answers"`
	Files       map[string]string `json:"files" db:"files"`
	SubmittedAt *int64            `json:"submitted_at,omitempty" db:"submitted_at"`
	Created     int64             `json:"created" db:"created"`
	Updated     int64             `json:"updated" db:"updated"`
}

// Review is one reviewer's opinion on an application in a given phase.
// It is singular per (application, reviewer, phase) and revisable in place.
type Review struct {
	ID            int64              `json:"id" db:"id"`
	CycleID       int64              `json:"cycle_id" db:"cycle_id"`
	ApplicationID int64              `json:"application_id" db:"application_id"`
	ReviewerEmail string             `json:"reviewer_email" db:"reviewer_email"`
	Phase         string             `json:"phase" db:"phase"`
	Scores        map[string]float64 `json:"scores" db:"scores"`
	Recommend     Recommendation     `json:"recommendation,omitempty" db:"recommendation"`
	Notes         string             `json:"notes,omitempty" db:"notes"`
	Created       int64              `json:"created" db:"created"`
	Updated       int64              `json:"updated" db:"updated"`
}

// CoffeeChatReferral is the host's post-meeting signal attached to a booking.
// One per booking; only the host recorded on the booking's slot may write it.
type CoffeeChatReferral struct {
	ID             int64          `json:"id" db:"id"`
	CycleID        int64          `json:"cycle_id" db:"cycle_id"`
	BookingID      int64          `json:"booking_id" db:"booking_id"`
	ApplicationID  *int64         `json:"application_id,omitempty" db:"application_id"`
	ApplicantEmail string         `json:"applicant_email" db:"applicant_email"`
	HostEmail      string         `json:"host_email" db:"host_email"`
	Signal         ReferralSignal `json:"signal" db:"signal"`
	Notes          string         `json:"notes,omitempty" db:"notes"`
	Created        int64          `json:"created" db:"created"`
	Updated        int64          `json:"updated" db:"updated"`
}

type AuditEvent struct {
	ID           int64  `json:"id" db:"id"`
	ActorID      int64  `json:"actor_id" db:"actor_id"`
	Action       string `json:"action" db:"action"`
	ResourceType string `json:"resource_type" db:"resource_type"`
	ResourceID   int64  `json:"resource_id" db:"resource_id"`
	Meta         string `json:"meta,omitempty" db:"meta"`
	Created      int64  `json:"created" db:"created"`
}
