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

type CourseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, ownerID publicid.ID, title, description string) (*models.Course, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (owner_id, title, description, created_at) VALUES (?, ?, ?, ?)`,
		int64(ownerID), strings.TrimSpace(title), description, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new course id: %w", err)
	}

	return &models.Course{
		ID:          id,
		OwnerID:     int64(ownerID),
		Title:       strings.TrimSpace(title),
		Description: description,
		CreatedAt:   now,
	}, nil
}

func (r *CourseRepository) FindActiveByID(ctx context.Context, id publicid.ID) (*models.Course, error) {
	var c models.Course
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, created_at, updated_at
         FROM courses WHERE id = ? AND `+active("courses"),
		int64(id),
	).Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.CreatedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying course: %w", err)
	}

	c.UpdatedAt = nullTimeToPtr(updatedAt)
	return &c, nil
}

func (r *CourseRepository) SoftDelete(ctx context.Context, id publicid.ID) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE courses SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+active("courses"),
		now, now, int64(id),
	)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	return checkRowsAffected(result)
}
