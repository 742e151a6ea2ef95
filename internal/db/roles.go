package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courseshare/internal/publicid"
)

type RoleRepository struct {
	db *DB
}

func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// HasRole reports whether an active user_roles row joins the user to a
// role of the given name. Revoked (soft-deleted) grants do not count.
func (r *RoleRepository) HasRole(ctx context.Context, userID publicid.ID, roleName string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_roles
         JOIN roles ON roles.id = user_roles.role_id
         WHERE user_roles.user_id = ? AND roles.name = ? AND `+active("user_roles"),
		int64(userID), roleName,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking role membership: %w", err)
	}
	return count > 0, nil
}

// Grant links a user to a role. Granting an already-held role is a no-op.
func (r *RoleRepository) Grant(ctx context.Context, userID publicid.ID, roleName string) error {
	held, err := r.HasRole(ctx, userID, roleName)
	if err != nil {
		return err
	}
	if held {
		return nil
	}

	var roleID int64
	err = r.db.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = ?`, roleName).Scan(&roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying role: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, ?)`,
		int64(userID), roleID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("granting role: %w", err)
	}
	return nil
}

// Revoke soft-deletes the active grant so membership history is kept.
func (r *RoleRepository) Revoke(ctx context.Context, userID publicid.ID, roleName string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_roles SET deleted_at = ?
         WHERE user_id = ?
           AND role_id = (SELECT id FROM roles WHERE name = ?)
           AND `+active("user_roles"),
		time.Now().UTC(), int64(userID), roleName,
	)
	if err != nil {
		return fmt.Errorf("revoking role: %w", err)
	}
	return checkRowsAffected(result)
}
