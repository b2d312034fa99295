package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saberactivo/social/internal/models"
)

const profileColumns = `user_id, username, display_name, avatar_url, bio, website, total_xp`

// CreateAccount inserts the user and their profile in one transaction. u.Password must
// already be hashed.
func (s *Store) CreateAccount(ctx context.Context, u *models.User, p *models.Profile) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		u.ID = id
	}
	p.UserID = u.ID
	if p.Username == "" {
		p.Username = u.Username
	}
	u.Username = p.Username

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, password, rut) VALUES ($1, $2, $3, $4)`,
			u.ID, u.Email, u.Password, u.RUT,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO users_profile (`+profileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.UserID, p.Username, p.DisplayName, p.AvatarURL, p.Bio, p.Website, p.TotalXP,
		)
		return err
	})
	return classify("create account", err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	q := `
	SELECT u.id, u.email, u.password, u.rut, p.username
	FROM users u
	JOIN users_profile p ON p.user_id = u.id
	WHERE LOWER(u.email) = LOWER($1)
	`
	err := s.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.RUT, &u.Username)
	if err != nil {
		return nil, classify("get user by email", err)
	}
	return &u, nil
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM users_profile WHERE user_id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		return nil, classify("get profile", err)
	}
	return p, nil
}

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM users_profile WHERE LOWER(username) = LOWER($1)`, username)
	p, err := scanProfile(row)
	if err != nil {
		return nil, classify("get profile by username", err)
	}
	return p, nil
}

// ListProfiles returns the profiles of ids by total XP, highest first.
func (s *Store) ListProfiles(ctx context.Context, ids []uuid.UUID, limit int) ([]models.Profile, error) {
	q := `
	SELECT ` + profileColumns + `
	FROM users_profile
	WHERE user_id = ANY($1)
	ORDER BY total_xp DESC, username
	LIMIT $2
	`
	return s.queryProfiles(ctx, "list profiles", q, ids, limitArg(limit))
}

// SearchProfiles matches q case-insensitively against username and display name.
func (s *Store) SearchProfiles(ctx context.Context, q string, limit int) ([]models.Profile, error) {
	sql := `
	SELECT ` + profileColumns + `
	FROM users_profile
	WHERE username ILIKE $1 OR display_name ILIKE $1
	ORDER BY total_xp DESC, username
	LIMIT $2
	`
	return s.queryProfiles(ctx, "search profiles", sql, containsPattern(q), limitArg(limit))
}

// UpdateProfile writes the non-nil fields of upd.
func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	q := `
	UPDATE users_profile
	SET display_name = COALESCE($2, display_name),
	    avatar_url   = COALESCE($3, avatar_url),
	    bio          = COALESCE($4, bio),
	    website      = COALESCE($5, website)
	WHERE user_id = $1
	RETURNING ` + profileColumns
	var p *models.Profile
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		p, err = scanProfile(tx.QueryRow(ctx, q, id, upd.DisplayName, upd.AvatarURL, upd.Bio, upd.Website))
		return err
	})
	if err != nil {
		return nil, classify("update profile", err)
	}
	return p, nil
}

func (s *Store) queryProfiles(ctx context.Context, op, q string, args ...any) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	ps := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		ps = append(ps, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return ps, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.Website, &p.TotalXP); err != nil {
		return nil, err
	}
	return &p, nil
}
