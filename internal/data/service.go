// Package data implements the dual-mode data access layer: every domain
// operation attempts the remote backend first and falls back to the local
// record store when the backend is unavailable, producing equivalent state
// in either path.
package data

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"beastmovieflix/internal/api"
	"beastmovieflix/internal/session"
	"beastmovieflix/internal/store"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicate          = errors.New("already exists")
	ErrValidation         = errors.New("invalid input")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrCodeMismatch       = errors.New("invalid verification code")
)

// Service exposes one method per domain operation. It owns no state beyond
// its collaborators; the remote flag is fixed at construction from the
// startup liveness probe and never re-evaluated.
type Service struct {
	store   *store.Store
	api     *api.Client
	session *session.Session
	remote  bool

	now   func() time.Time
	newID func() string
}

func NewService(st *store.Store, client *api.Client, sess *session.Session, remote bool) *Service {
	return &Service{
		store:   st,
		api:     client,
		session: sess,
		remote:  remote,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Session returns the current identity.
func (s *Service) Session() *session.Session {
	return s.session
}

// RemoteMode reports whether the backend was reachable at startup.
func (s *Service) RemoteMode() bool {
	return s.remote
}

// requireLogin gates protected operations. In remote mode a logged flag
// without a usable token does not count.
func (s *Service) requireLogin() error {
	if !s.session.Authenticated(s.remote) {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *Service) requireAdmin() error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	if !s.session.IsAdmin() {
		return fmt.Errorf("%w: admin privileges required", ErrUnauthorized)
	}
	return nil
}

// remoteFailure maps a non-retriable backend rejection onto the error
// taxonomy. Retriable results never reach this; they branch to the local
// store instead.
func remoteFailure(res api.Result) error {
	switch {
	case res.Unauthorized:
		return ErrUnauthorized
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, res.Error)
	case res.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDuplicate, res.Error)
	default:
		return errors.New(res.Error)
	}
}

// readList loads a collection as a typed list; a collection that was never
// written, or whose stored data is unreadable, is an empty list.
func readList[T any](st *store.Store, name string) []T {
	var list []T
	if err := st.ReadCollection(name, &list); err != nil || list == nil {
		return []T{}
	}
	return list
}
