package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"courseshare/internal/models"
	"courseshare/internal/publicid"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and its 1:1 profile row. Email is stored lower
// cased; lookups are case-insensitive either way via the column collation.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash, firstName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting user create transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new user id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, first_name, created_at) VALUES (?, ?, ?)`,
		userID, strings.TrimSpace(firstName), now,
	); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user create: %w", err)
	}

	return &models.User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		Profile:      &models.Profile{UserID: userID, FirstName: strings.TrimSpace(firstName), CreatedAt: now},
	}, nil
}

// FindActiveByID loads a non-deleted user together with its profile and
// active role names.
func (r *UserRepository) FindActiveByID(ctx context.Context, id publicid.ID) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT id, email, password_hash, last_signed_in_at, created_at, updated_at
         FROM users WHERE id = ? AND `+active("users"),
		int64(id),
	)
}

func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT id, email, password_hash, last_signed_in_at, created_at, updated_at
         FROM users WHERE email = ? AND `+active("users"),
		strings.ToLower(strings.TrimSpace(email)),
	)
}

func (r *UserRepository) ListActive(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, last_signed_in_at, created_at, updated_at
         FROM users WHERE `+active("users")+` ORDER BY email`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var lastSignedIn, updatedAt sql.NullTime

		if err := rows.Scan(&u.ID, &u.Email, &lastSignedIn, &u.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}

		u.LastSignedInAt = nullTimeToPtr(lastSignedIn)
		u.UpdatedAt = nullTimeToPtr(updatedAt)
		users = append(users, &u)
	}

	return users, rows.Err()
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id publicid.ID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND `+active("users"),
		passwordHash, time.Now().UTC(), int64(id),
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return checkRowsAffected(result)
}

// TouchLastSignedIn records a successful sign-in.
func (r *UserRepository) TouchLastSignedIn(ctx context.Context, id publicid.ID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_signed_in_at = ?, updated_at = ? WHERE id = ? AND `+active("users"),
		time.Now().UTC(), time.Now().UTC(), int64(id),
	)
	if err != nil {
		return fmt.Errorf("updating last sign-in: %w", err)
	}
	return checkRowsAffected(result)
}

// SoftDelete deactivates a user. Rows are kept for history.
func (r *UserRepository) SoftDelete(ctx context.Context, id publicid.ID) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+active("users"),
		now, now, int64(id),
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var lastSignedIn, updatedAt sql.NullTime
	var passwordHash sql.NullString

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&passwordHash,
		&lastSignedIn,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.PasswordHash = passwordHash.String
	u.LastSignedInAt = nullTimeToPtr(lastSignedIn)
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	if err := r.loadProfile(ctx, &u); err != nil {
		return nil, err
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *UserRepository) loadProfile(ctx context.Context, u *models.User) error {
	var p models.Profile
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, first_name, last_name, created_at, updated_at
         FROM profiles WHERE user_id = ?`,
		u.ID,
	).Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.CreatedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("querying profile: %w", err)
	}

	p.UpdatedAt = nullTimeToPtr(updatedAt)
	u.Profile = &p
	return nil
}

func (r *UserRepository) loadRoles(ctx context.Context, u *models.User) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT roles.name FROM roles
         JOIN user_roles ON user_roles.role_id = roles.id
         WHERE user_roles.user_id = ? AND `+active("user_roles")+`
         ORDER BY roles.name`,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("querying roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning role: %w", err)
		}
		u.Roles = append(u.Roles, name)
	}

	return rows.Err()
}
