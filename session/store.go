package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/utils/logger"
	"go.uber.org/zap"
)

// ErrInvalidTokens is returned when a mutation would leave an authenticated
// session without both tokens.
var ErrInvalidTokens = errors.New("access and refresh tokens must not be empty")

// Store is the process-wide holder of the authentication state.
type Store struct {
	mu          sync.RWMutex
	state       models.Session
	generation  uint64
	persistence Persistence
	logger      *zap.Logger
}

type Option func(*Store)

// WithLogger sets the logger used for hydration and mutation events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a store and hydrates it from persistence. A missing or
// unreadable record leaves the store anonymous.
func NewStore(ctx context.Context, persistence Persistence, opts ...Option) *Store {
	s := &Store{
		persistence: persistence,
		logger:      zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}

	record, err := persistence.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("no persisted session, starting anonymous")
	case err != nil:
		s.logger.Warn("failed to hydrate persisted session, starting anonymous", zap.Error(err))
	case !validState(record.State):
		s.logger.Warn("persisted session is inconsistent, starting anonymous")
	default:
		s.state = normalize(record.State)
		s.logger.Debug("session hydrated",
			zap.Bool("authenticated", s.state.IsAuthenticated),
			logger.Token("access_token", s.state.AccessToken),
		)
	}

	return s
}

func validState(st models.Session) bool {
	if st.IsAuthenticated && (st.AccessToken == "" || st.RefreshToken == "") {
		return false
	}
	return true
}

func normalize(st models.Session) models.Session {
	st.IsAuthenticated = st.IsAuthenticated && st.AccessToken != "" && st.RefreshToken != ""
	return st
}

// save persists next and commits it to memory. Callers hold s.mu.
func (s *Store) save(ctx context.Context, next models.Session) error {
	if err := s.persistence.Save(ctx, &Record{State: next}); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.state = next
	return nil
}

// SetTokens overwrites both tokens and marks the session authenticated.
// Refreshes started before the call can no longer write to the store.
func (s *Store) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrInvalidTokens
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.AccessToken = accessToken
	next.RefreshToken = refreshToken
	next.IsAuthenticated = true
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.generation++
	return nil
}

// SetUser overwrites the user only.
func (s *Store) SetUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.User = cloneUser(user)
	return s.save(ctx, next)
}

// SetSession replaces the whole session with a login or register result and
// starts a new generation.
func (s *Store) SetSession(ctx context.Context, user *models.User, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrInvalidTokens
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.save(ctx, models.Session{
		User:            cloneUser(user),
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		IsAuthenticated: true,
	})
	if err != nil {
		return err
	}
	s.generation++
	s.logger.Debug("session established",
		zap.Uint64("generation", s.generation),
		logger.Token("access_token", accessToken),
	)
	return nil
}

// MergeTokens stores a rotated token pair obtained under generation. The user
// is kept unless the refresh response carried one. If the session was cleared
// or replaced since generation was read, nothing is written and
// ErrSessionEnded is returned.
func (s *Store) MergeTokens(ctx context.Context, generation uint64, accessToken, refreshToken string, user *models.User) error {
	if accessToken == "" || refreshToken == "" {
		return ErrInvalidTokens
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		s.logger.Debug("discarding tokens for ended session",
			zap.Uint64("generation", generation),
			zap.Uint64("current_generation", s.generation),
		)
		return ErrSessionEnded
	}

	next := s.state
	next.AccessToken = accessToken
	next.RefreshToken = refreshToken
	next.IsAuthenticated = true
	if user != nil {
		next.User = cloneUser(user)
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}

	s.logger.Debug("tokens rotated", logger.Token("access_token", accessToken))
	return nil
}

// ClearAuth resets the session and removes the persisted record. Memory is
// cleared even when the record cannot be removed.
func (s *Store) ClearAuth(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clear(ctx)
}

// ClearIfGeneration clears the session only while it is still the one read at
// generation. It reports whether anything was cleared.
func (s *Store) ClearIfGeneration(ctx context.Context, generation uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		s.logger.Debug("keeping replaced session",
			zap.Uint64("generation", generation),
			zap.Uint64("current_generation", s.generation),
		)
		return false, nil
	}
	return true, s.clear(ctx)
}

// clear resets memory before touching persistence. Callers hold s.mu.
func (s *Store) clear(ctx context.Context) error {
	s.state = models.Session{}
	s.generation++

	if err := s.persistence.Delete(ctx); err != nil {
		return fmt.Errorf("failed to remove persisted session: %w", err)
	}
	s.logger.Debug("session cleared", zap.Uint64("generation", s.generation))
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.User = cloneUser(st.User)
	return st
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

// RefreshState returns the refresh token together with the generation it
// belongs to, read atomically.
func (s *Store) RefreshState() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken, s.generation
}

func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.state.User)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Generation increases every time the session is cleared or replaced.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Roles != nil {
		c.Roles = append([]string(nil), u.Roles...)
	}
	return &c
}
