// internal/models/lesson.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Level groups lessons in the catalog.
type Level string

const (
	LevelBasic        Level = "basico"
	LevelIntermediate Level = "medio"
	LevelExpert       Level = "experto"
)

// Levels in catalog order.
var Levels = []Level{LevelBasic, LevelIntermediate, LevelExpert}

// Lesson is a catalog entry. Slug is the stable key used when seeding.
type Lesson struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	XP          int       `json:"xp"`
	Level       Level     `json:"level"`
	OrderIndex  int       `json:"order_index"`
}

// LessonProgress records that a user completed a lesson. A user completes each lesson
// at most once; XPEarned was added to their profile's total_xp at that time.
type LessonProgress struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	LessonID    uuid.UUID `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
	XPEarned    int       `json:"xp_earned"`
	LessonTitle *string   `json:"lesson_title"`
}
