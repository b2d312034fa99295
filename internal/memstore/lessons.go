// internal/memstore/lessons.go
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
)

// UpsertLesson stores l keyed by slug, keeping the id of an existing lesson.
func (s *Store) UpsertLesson(_ context.Context, l *models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.lessons {
		if existing.Slug == l.Slug {
			l.ID = id
			break
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.lessons[l.ID] = *l
	return nil
}

func (s *Store) ListLessons(_ context.Context) ([]models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

func (s *Store) GetLesson(_ context.Context, id uuid.UUID) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, fmt.Errorf("lesson %s: %w", id, apperr.ErrNotFound)
	}
	return &l, nil
}

// CompleteLesson records the completion and raises the profile's total_xp under one
// lock. A repeated completion returns the first row and awards nothing.
func (s *Store) CompleteLesson(_ context.Context, userID, lessonID uuid.UUID, xp int) (*models.LessonProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.completions {
		if p.UserID == userID && p.LessonID == lessonID {
			return &p, false, nil
		}
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, false, fmt.Errorf("profile %s: %w", userID, apperr.ErrNotFound)
	}
	if _, ok := s.lessons[lessonID]; !ok {
		return nil, false, fmt.Errorf("lesson %s: %w", lessonID, apperr.ErrNotFound)
	}

	p := models.LessonProgress{
		ID:          uuid.New(),
		UserID:      userID,
		LessonID:    lessonID,
		CompletedAt: s.Now(),
		XPEarned:    xp,
	}
	s.completions = append(s.completions, p)
	profile.TotalXP += xp
	s.profiles[userID] = profile
	return &p, true, nil
}

// ListLessonProgress returns userID's completions with lesson titles, newest first.
func (s *Store) ListLessonProgress(_ context.Context, userID uuid.UUID) ([]models.LessonProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.LessonProgress{}
	for _, p := range s.completions {
		if p.UserID != userID {
			continue
		}
		if l, ok := s.lessons[p.LessonID]; ok {
			title := l.Title
			p.LessonTitle = &title
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *Store) TopProfiles(_ context.Context, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return byXP(out, limit), nil
}

func (s *Store) CountProfiles(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles), nil
}

func (s *Store) CountProfilesAbove(_ context.Context, xp int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.profiles {
		if p.TotalXP > xp {
			n++
		}
	}
	return n, nil
}
