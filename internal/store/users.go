package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Sankethhn/Farmlink/internal/model"
)

// CreateUser creates a new user. The email must be unique across all roles.
func CreateUser(ctx context.Context, db *sql.DB, email, passwordHash, fullName, role, phone, address string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, full_name, role, phone, address)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		email, passwordHash, fullName, role, nullable(phone), nullable(address),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	return getUserWhere(ctx, db, `id = ?`, id)
}

// GetUserByEmail returns a user by email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	return getUserWhere(ctx, db, `email = ?`, email)
}

// GetUserByEmailAndRole returns a user matching both email and role,
// as required by the login contract.
func GetUserByEmailAndRole(ctx context.Context, db *sql.DB, email, role string) (*model.User, error) {
	return getUserWhere(ctx, db, `email = ? AND role = ?`, email, role)
}

func getUserWhere(ctx context.Context, db *sql.DB, where string, args ...any) (*model.User, error) {
	u := &model.User{}
	var phone, address sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, full_name, role, phone, address, created_at
		 FROM users WHERE `+where, args...,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &phone, &address, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.Phone = phone.String
	u.Address = address.String
	return u, nil
}

// CountUsers returns the total number of users.
func CountUsers(ctx context.Context, db *sql.DB) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// nullable maps an empty string to NULL for optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
