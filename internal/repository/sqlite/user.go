package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guildops/recruit/pkg/models"
)

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO users (name, email, is_admin, password_hash, updated) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, boolInt(u.IsAdmin), u.PasswordHash, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, name, email, is_admin, password_hash, updated FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, name, email, is_admin, password_hash, updated FROM users WHERE email = ?`, email))
}

func (r *SQLiteRepo) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var admin int
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &admin, &u.PasswordHash, &u.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}
	u.IsAdmin = admin != 0

	return &u, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
