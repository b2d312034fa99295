// internal/progress/progress.go

// Package progress awards XP for completed lessons and ranks users by total XP.
// total_xp on the profile only grows through CompleteLesson.
package progress

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/sirupsen/logrus"
)

// RankingLimit is how many profiles the global ranking lists.
const RankingLimit = 100

// Store persists the lesson catalog, completions and the XP they award.
type Store interface {
	UpsertLesson(ctx context.Context, l *models.Lesson) error
	ListLessons(ctx context.Context) ([]models.Lesson, error)
	GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	// CompleteLesson records the completion and adds xp to the user's total in one
	// transaction. A repeated completion returns the existing row and created=false
	// without awarding anything.
	CompleteLesson(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID, xp int) (p *models.LessonProgress, created bool, err error)
	ListLessonProgress(ctx context.Context, userID uuid.UUID) ([]models.LessonProgress, error)

	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	TopProfiles(ctx context.Context, limit int) ([]models.Profile, error)
	CountProfiles(ctx context.Context) (int, error)
	CountProfilesAbove(ctx context.Context, xp int) (int, error)
}

type Service struct {
	store  Store
	logger *logrus.Logger
}

func NewService(store Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: store, logger: logger}
}

// Seed upserts lessons by slug, filling in their ids.
func (s *Service) Seed(ctx context.Context, lessons []models.Lesson) error {
	for i := range lessons {
		if err := s.store.UpsertLesson(ctx, &lessons[i]); err != nil {
			return apperr.Transient("seed lesson "+lessons[i].Slug, err)
		}
	}
	s.logger.WithField("lessons", len(lessons)).Info("lesson catalog seeded")
	return nil
}

// Lessons returns the catalog in display order.
func (s *Service) Lessons(ctx context.Context) ([]models.Lesson, error) {
	lessons, err := s.store.ListLessons(ctx)
	if err != nil {
		return nil, apperr.Transient("list lessons", err)
	}
	return lessons, nil
}

// Completion is the outcome of completing a lesson.
type Completion struct {
	Progress models.LessonProgress `json:"progress"`
	Awarded  bool                  `json:"awarded"`
	TotalXP  int                   `json:"total_xp"`
}

// Complete marks lessonID done for userID and awards the lesson's XP the first time.
func (s *Service) Complete(ctx context.Context, userID, lessonID uuid.UUID) (*Completion, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotAuthenticated
	}
	if lessonID == uuid.Nil {
		return nil, apperr.Validation("lesson id is required")
	}
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, apperr.Transient("get lesson", err)
	}

	p, created, err := s.store.CompleteLesson(ctx, userID, lesson.ID, lesson.XP)
	if err != nil {
		return nil, apperr.Transient("complete lesson", err)
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("get profile", err)
	}
	if created {
		s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"lesson":   lesson.Slug,
			"xp":       p.XPEarned,
			"total_xp": profile.TotalXP,
		}).Info("lesson completed")
	}
	if p.LessonTitle == nil {
		p.LessonTitle = &lesson.Title
	}
	return &Completion{Progress: *p, Awarded: created, TotalXP: profile.TotalXP}, nil
}

// History lists userID's completions, newest first. Signed-out callers get an empty list.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.LessonProgress, error) {
	if userID == uuid.Nil {
		return []models.LessonProgress{}, nil
	}
	rows, err := s.store.ListLessonProgress(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("list lesson progress", err)
	}
	return rows, nil
}

// LevelSummary aggregates one catalog level for a user.
type LevelSummary struct {
	Level     models.Level `json:"level"`
	Lessons   int          `json:"lessons"`
	Completed int          `json:"completed"`
	XPTotal   int          `json:"xp_total"`
	Percent   int          `json:"percent"`
}

// Summarize groups lessons by level in catalog order. Lessons without a known level are
// left out, as the catalog page does.
func Summarize(lessons []models.Lesson, done map[uuid.UUID]bool) []LevelSummary {
	out := make([]LevelSummary, len(models.Levels))
	index := make(map[models.Level]int, len(models.Levels))
	for i, lvl := range models.Levels {
		out[i].Level = lvl
		index[lvl] = i
	}
	for _, l := range lessons {
		i, ok := index[l.Level]
		if !ok {
			continue
		}
		out[i].Lessons++
		out[i].XPTotal += l.XP
		if done[l.ID] {
			out[i].Completed++
		}
	}
	for i := range out {
		if out[i].Lessons > 0 {
			out[i].Percent = int(math.Round(float64(out[i].Completed) / float64(out[i].Lessons) * 100))
		}
	}
	return out
}

// Ranking is the global leaderboard, plus the viewer's standing when signed in.
type Ranking struct {
	Top        []models.Profile `json:"top"`
	Me         *models.Profile  `json:"me,omitempty"`
	Position   int              `json:"position,omitempty"`
	TotalUsers int              `json:"total_users"`
	Percentile *int             `json:"percentile,omitempty"`
}

// Ranking lists the top RankingLimit profiles by XP. For a signed-in viewer it adds their
// position (one more than the number of users with strictly more XP, so ties share a
// position) and the percentile of users ranked below them.
func (s *Service) Ranking(ctx context.Context, viewer uuid.UUID) (*Ranking, error) {
	top, err := s.store.TopProfiles(ctx, RankingLimit)
	if err != nil {
		return nil, apperr.Transient("top profiles", err)
	}
	total, err := s.store.CountProfiles(ctx)
	if err != nil {
		return nil, apperr.Transient("count profiles", err)
	}
	out := &Ranking{Top: top, TotalUsers: total}
	if out.Top == nil {
		out.Top = []models.Profile{}
	}
	if viewer == uuid.Nil {
		return out, nil
	}

	me, err := s.store.GetProfile(ctx, viewer)
	if err != nil {
		return nil, apperr.Transient("get profile", err)
	}
	above, err := s.store.CountProfilesAbove(ctx, me.TotalXP)
	if err != nil {
		return nil, apperr.Transient("count profiles above", err)
	}
	out.Me = me
	out.Position = above + 1
	if total > 0 {
		pct := Percentile(out.Position, total)
		out.Percentile = &pct
	}
	return out, nil
}

// Percentile is the rounded share of users ranked below position.
func Percentile(position, total int) int {
	if total <= 0 || position < 1 || position > total {
		return 0
	}
	return int(math.Round(float64(total-position) / float64(total) * 100))
}
