package sqlite

import (
	"time"

	"github.com/guildops/recruit/internal/db"
	"github.com/guildops/recruit/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn *db.DB
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.CycleRepo = (*SQLiteRepo)(nil)
var _ repository.SlotRepo = (*SQLiteRepo)(nil)
var _ repository.BookingRepo = (*SQLiteRepo)(nil)
var _ repository.ApplicationRepo = (*SQLiteRepo)(nil)
var _ repository.ReviewRepo = (*SQLiteRepo)(nil)
var _ repository.ReferralRepo = (*SQLiteRepo)(nil)
var _ repository.WhitelistRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB) *SQLiteRepo {
	return &SQLiteRepo{conn: conn}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
