package entity

import (
	"time"

	"github.com/google/uuid"
)

// Course represents a course for data transfer between layers.
type Course struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Exam represents one extracted document tied to a course and year.
type Exam struct {
	ID         uuid.UUID `json:"id"`
	CourseID   uuid.UUID `json:"course_id"`
	Name       string    `json:"name"`
	Year       int       `json:"year"`
	SourcePath string    `json:"source_path"`
	CreatedAt  time.Time `json:"created_at"`
}
