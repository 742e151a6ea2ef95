package models

import "time"

type Course struct {
	ID          int64      `json:"-"`
	PublicID    string     `json:"id"`
	OwnerID     int64      `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	DeletedAt   *time.Time `json:"-"`
}

// SharedCourse is a public snapshot of a course. Its ShareToken is minted
// independently of the course's public id so a share link cannot be
// reversed back to the internal key.
type SharedCourse struct {
	ID         int64     `json:"-"`
	CourseID   int64     `json:"-"`
	ShareToken string    `json:"sharedCourseId"`
	Payload    string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}
