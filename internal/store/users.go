package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const userSelect = `SELECT id, name, role, pin_hash, avatar, created_at, deleted_at FROM users`

func scanUser(s rowScanner) (*model.User, error) {
	u := &model.User{}
	var deletedAt sql.NullTime
	if err := s.Scan(&u.ID, &u.Name, &u.Role, &u.PINHash, &u.Avatar, &u.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	u.DeletedAt = timePtr(deletedAt)
	return u, nil
}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, q db.Querier, name string, role model.Role, pinHash, avatar string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO users (name, role, pin_hash, avatar) VALUES (?, ?, ?, ?) RETURNING id`,
		name, role, pinHash, avatar,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating user: %w", err)
	}
	return id, nil
}

// GetUser returns a user by ID, including soft-deleted users.
func GetUser(ctx context.Context, q db.Querier, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetActiveUserByName returns the non-deleted user with the given name.
func GetActiveUserByName(ctx context.Context, q db.Querier, name string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		userSelect+` WHERE name = ? AND deleted_at IS NULL`, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by name: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q db.Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		userSelect+` WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of non-deleted users.
func CountUsers(ctx context.Context, q db.Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateUserPIN replaces a user's PIN hash.
func UpdateUserPIN(ctx context.Context, q db.Querier, id int64, pinHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET pin_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		pinHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user pin: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
