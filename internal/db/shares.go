package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courseshare/internal/models"
)

type ShareRepository struct {
	db *DB
}

func NewShareRepository(db *DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Create stores a share snapshot. Concurrent shares of the same course
// are not coordinated; each insert stands on its own token.
func (r *ShareRepository) Create(ctx context.Context, courseID int64, shareToken, payload string) (*models.SharedCourse, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO shared_courses (course_id, share_token, payload, created_at) VALUES (?, ?, ?, ?)`,
		courseID, shareToken, payload, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating shared course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new shared course id: %w", err)
	}

	return &models.SharedCourse{
		ID:         id,
		CourseID:   courseID,
		ShareToken: shareToken,
		Payload:    payload,
		CreatedAt:  now,
	}, nil
}

func (r *ShareRepository) FindByToken(ctx context.Context, shareToken string) (*models.SharedCourse, error) {
	var s models.SharedCourse

	err := r.db.QueryRowContext(ctx,
		`SELECT id, course_id, share_token, payload, created_at
         FROM shared_courses WHERE share_token = ?`,
		shareToken,
	).Scan(&s.ID, &s.CourseID, &s.ShareToken, &s.Payload, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying shared course: %w", err)
	}

	return &s, nil
}
