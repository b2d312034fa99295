package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/progress"
	"github.com/saberactivo/social/internal/rank"
)

// LessonView is a catalog entry with the caller's completion flag.
type LessonView struct {
	models.Lesson
	Completed bool `json:"completed"`
}

// Catalog is the lesson list with per-level totals.
type Catalog struct {
	Lessons []LessonView            `json:"lessons"`
	Levels  []progress.LevelSummary `json:"levels"`
}

// Completion is the outcome of completing a lesson.
type Completion struct {
	progress.Completion
	Rank rank.Progress `json:"rank"`
}

// Progress is the caller's completion history.
type Progress struct {
	Completions []models.LessonProgress `json:"completions"`
	TotalXP     int                     `json:"total_xp"`
	Rank        rank.Progress           `json:"rank"`
}

func (c *Client) Lessons(ctx context.Context) (*Catalog, error) {
	var out Catalog
	if err := c.do(ctx, http.MethodGet, "/lessons", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteLesson marks id as done. Awarded is false when it was already completed.
func (c *Client) CompleteLesson(ctx context.Context, id uuid.UUID) (*Completion, error) {
	var out Completion
	if err := c.do(ctx, http.MethodPost, "/lessons/"+id.String()+"/complete", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Progress(ctx context.Context) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, "/progress", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ranking(ctx context.Context) (*progress.Ranking, error) {
	var out progress.Ranking
	if err := c.do(ctx, http.MethodGet, "/ranking", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
