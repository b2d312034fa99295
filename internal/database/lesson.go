package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saberactivo/social/internal/models"
)

const lessonColumns = `id, slug, title, description, xp, level, order_index`

// UpsertLesson inserts l or updates the lesson with the same slug, and sets l.ID to the
// stored id.
func (s *Store) UpsertLesson(ctx context.Context, l *models.Lesson) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	q := `
	INSERT INTO lessons (` + lessonColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (slug) DO UPDATE
	SET title = EXCLUDED.title,
	    description = EXCLUDED.description,
	    xp = EXCLUDED.xp,
	    level = EXCLUDED.level,
	    order_index = EXCLUDED.order_index
	RETURNING id
	`
	err := s.pool.QueryRow(ctx, q, l.ID, l.Slug, l.Title, l.Description, l.XP, nullLevel(l.Level), l.OrderIndex).Scan(&l.ID)
	return classify("upsert lesson", err)
}

func (s *Store) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+lessonColumns+` FROM lessons ORDER BY order_index, slug`)
	if err != nil {
		return nil, classify("list lessons", err)
	}
	defer rows.Close()

	ls := []models.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, classify("list lessons", err)
		}
		ls = append(ls, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list lessons", err)
	}
	return ls, nil
}

func (s *Store) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	l, err := scanLesson(s.pool.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get lesson", err)
	}
	return l, nil
}

// CompleteLesson inserts the progress row and raises total_xp in the same transaction.
// If the user already completed the lesson the existing row is returned unchanged.
func (s *Store) CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID, xp int) (*models.LessonProgress, bool, error) {
	p := models.LessonProgress{ID: uuid.New(), UserID: userID, LessonID: lessonID, XPEarned: xp}
	created := false

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		insert := `
		INSERT INTO lesson_progress (id, user_id, lesson_id, xp_earned)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
		RETURNING completed_at
		`
		err := tx.QueryRow(ctx, insert, p.ID, userID, lessonID, xp).Scan(&p.CompletedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			existing := `
			SELECT id, completed_at, xp_earned
			FROM lesson_progress
			WHERE user_id = $1 AND lesson_id = $2
			`
			return tx.QueryRow(ctx, existing, userID, lessonID).Scan(&p.ID, &p.CompletedAt, &p.XPEarned)
		}
		if err != nil {
			return err
		}
		created = true

		tag, err := tx.Exec(ctx,
			`UPDATE users_profile SET total_xp = total_xp + $2 WHERE user_id = $1`,
			userID, xp,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, false, classify("complete lesson", err)
	}
	return &p, created, nil
}

// ListLessonProgress returns userID's completions with lesson titles, newest first.
func (s *Store) ListLessonProgress(ctx context.Context, userID uuid.UUID) ([]models.LessonProgress, error) {
	q := `
	SELECT p.id, p.user_id, p.lesson_id, p.completed_at, p.xp_earned, l.title
	FROM lesson_progress p
	LEFT JOIN lessons l ON l.id = p.lesson_id
	WHERE p.user_id = $1
	ORDER BY p.completed_at DESC, p.id DESC
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, classify("list lesson progress", err)
	}
	defer rows.Close()

	ps := []models.LessonProgress{}
	for rows.Next() {
		var p models.LessonProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.LessonID, &p.CompletedAt, &p.XPEarned, &p.LessonTitle); err != nil {
			return nil, classify("list lesson progress", err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list lesson progress", err)
	}
	return ps, nil
}

// TopProfiles returns the highest-XP profiles.
func (s *Store) TopProfiles(ctx context.Context, limit int) ([]models.Profile, error) {
	q := `
	SELECT ` + profileColumns + `
	FROM users_profile
	ORDER BY total_xp DESC, username
	LIMIT $1
	`
	return s.queryProfiles(ctx, "top profiles", q, limitArg(limit))
}

func (s *Store) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users_profile`).Scan(&n)
	return n, classify("count profiles", err)
}

// CountProfilesAbove counts profiles with strictly more than xp.
func (s *Store) CountProfilesAbove(ctx context.Context, xp int) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users_profile WHERE total_xp > $1`, xp).Scan(&n)
	return n, classify("count profiles above", err)
}

func scanLesson(row pgx.Row) (*models.Lesson, error) {
	var (
		l     models.Lesson
		level *string
	)
	if err := row.Scan(&l.ID, &l.Slug, &l.Title, &l.Description, &l.XP, &level, &l.OrderIndex); err != nil {
		return nil, err
	}
	if level != nil {
		l.Level = models.Level(*level)
	}
	return &l, nil
}

func nullLevel(l models.Level) any {
	if l == "" {
		return nil
	}
	return string(l)
}
