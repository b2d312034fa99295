// internal/handlers/lesson.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/progress"
	"github.com/saberactivo/social/internal/rank"
	"github.com/saberactivo/social/internal/session"
)

type lessonView struct {
	models.Lesson
	Completed bool `json:"completed"`
}

type lessonsResponse struct {
	Lessons []lessonView            `json:"lessons"`
	Levels  []progress.LevelSummary `json:"levels"`
}

type progressResponse struct {
	Completions []models.LessonProgress `json:"completions"`
	TotalXP     int                     `json:"total_xp"`
	Rank        rank.Progress           `json:"rank"`
}

type completeResponse struct {
	progress.Completion
	Rank rank.Progress `json:"rank"`
}

// ListLessonsHandler returns the catalog in order with a per-level summary. Signed-in
// callers see which lessons they have completed.
func (a *API) ListLessonsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessons, err := a.progress.Lessons(ctx)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	me, _ := session.FromContext(ctx)
	history, err := a.progress.History(ctx, me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	done := make(map[uuid.UUID]bool, len(history))
	for _, p := range history {
		done[p.LessonID] = true
	}

	resp := lessonsResponse{
		Lessons: make([]lessonView, 0, len(lessons)),
		Levels:  progress.Summarize(lessons, done),
	}
	for _, l := range lessons {
		resp.Lessons = append(resp.Lessons, lessonView{Lesson: l, Completed: done[l.ID]})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CompleteLessonHandler records the caller's completion of {id}. The first completion
// answers 201 and awards XP; repeats answer 200 with the original row.
func (a *API) CompleteLessonHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	c, err := a.progress.Complete(r.Context(), me, id)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	status := http.StatusOK
	if c.Awarded {
		status = http.StatusCreated
	}
	writeJSON(w, status, completeResponse{Completion: *c, Rank: rank.ProgressFor(c.TotalXP)})
}

// ProgressHandler returns the caller's completed lessons, newest first, with their rank.
func (a *API) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	me, _ := session.FromContext(ctx)
	history, err := a.progress.History(ctx, me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	p, err := a.store.GetProfile(ctx, me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Completions: history,
		TotalXP:     p.TotalXP,
		Rank:        rank.ProgressFor(p.TotalXP),
	})
}

// RankingHandler returns the global top profiles. Signed-in callers also get their
// position and percentile.
func (a *API) RankingHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	ranking, err := a.progress.Ranking(r.Context(), me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
