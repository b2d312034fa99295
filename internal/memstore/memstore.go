// internal/memstore/memstore.go

// Package memstore keeps every table in memory behind one mutex. It implements the same
// contracts as the Postgres store, including the unique active pair constraint and
// publish-on-insert, and backs the server's -memory mode and the test suites.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/sirupsen/logrus"
)

type readKey struct {
	viewer, other uuid.UUID
}

// Store is a thread-safe in-memory backend.
type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]models.User
	profiles      map[uuid.UUID]models.Profile
	requests      map[uuid.UUID]models.FriendRequest
	messages      []models.Message
	reads         map[readKey]models.ReadMarker
	notifications []models.Notification
	lessons       map[uuid.UUID]models.Lesson
	completions   []models.LessonProgress

	pub    realtime.Publisher
	logger *logrus.Logger

	// Now is the clock used for created/updated timestamps.
	Now func() time.Time
}

// New returns an empty store. pub may be nil when no realtime delivery is wanted.
func New(pub realtime.Publisher, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		users:    make(map[uuid.UUID]models.User),
		profiles: make(map[uuid.UUID]models.Profile),
		requests: make(map[uuid.UUID]models.FriendRequest),
		reads:    make(map[readKey]models.ReadMarker),
		lessons:  make(map[uuid.UUID]models.Lesson),
		pub:      pub,
		logger:   logger,
		Now:      time.Now,
	}
}

func (s *Store) publish(ev realtime.Event, err error) {
	if s.pub == nil {
		return
	}
	if err == nil {
		err = s.pub.Publish(context.Background(), ev)
	}
	if err != nil {
		s.logger.WithError(err).WithField("topic", ev.Topic).Warn("failed to publish realtime event")
	}
}

// ---- users & profiles ----

// CreateAccount stores the user and their profile together, refusing a duplicate email
// or username. u.Password must already be hashed.
func (s *Store) CreateAccount(_ context.Context, u *models.User, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Validation("email already exists")
		}
	}
	if p.Username == "" {
		p.Username = u.Username
	}
	u.Username = p.Username
	if err := s.checkUsername(p.Username); err != nil {
		return err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	p.UserID = u.ID
	s.users[u.ID] = *u
	s.profiles[p.UserID] = *p
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// CreateProfile stores a profile without a user row, for seeding.
func (s *Store) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsername(p.Username); err != nil {
		return err
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *Store) checkUsername(username string) error {
	for _, existing := range s.profiles {
		if strings.EqualFold(existing.Username, username) {
			return apperr.Validation("username already taken")
		}
	}
	return nil
}

func (s *Store) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProfileByUsername(_ context.Context, username string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Username, username) {
			return &p, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Store) ListProfiles(_ context.Context, ids []uuid.UUID, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Profile, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return byXP(out, limit), nil
}

func (s *Store) SearchProfiles(_ context.Context, q string, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q = strings.ToLower(strings.TrimSpace(q))
	var out []models.Profile
	for _, p := range s.profiles {
		display := ""
		if p.DisplayName != nil {
			display = *p.DisplayName
		}
		if strings.Contains(strings.ToLower(p.Username), q) || strings.Contains(strings.ToLower(display), q) {
			out = append(out, p)
		}
	}
	return byXP(out, limit), nil
}

func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	upd.Apply(&p)
	s.profiles[id] = p
	return &p, nil
}

func byXP(ps []models.Profile, limit int) []models.Profile {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].TotalXP != ps[j].TotalXP {
			return ps[i].TotalXP > ps[j].TotalXP
		}
		return ps[i].Username < ps[j].Username
	})
	if limit > 0 && len(ps) > limit {
		ps = ps[:limit]
	}
	return ps
}
