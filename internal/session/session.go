package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"beastmovieflix/internal/store"
)

// Session is the current identity. It is the only process-wide mutable
// state; all writes go through Set and Clear, wholesale.
type Session struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Token          string `json:"token,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Logged         bool   `json:"logged"`
}

// Load reads the persisted session, or a guest session if none exists.
func Load(st *store.Store) (*Session, error) {
	var records []Session
	if err := st.ReadCollection(store.CollectionSession, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Session{}, nil
	}
	s := records[0]
	return &s, nil
}

// Set replaces the session wholesale with the given identity.
func (s *Session) Set(userID, username, email, role, token, profilePicture string) {
	*s = Session{
		UserID:         userID,
		Username:       username,
		Email:          email,
		Role:           role,
		Token:          token,
		ProfilePicture: profilePicture,
		Logged:         true,
	}
}

// Clear resets to a guest session.
func (s *Session) Clear() {
	*s = Session{}
}

// Save persists the session so later invocations see the same identity.
func (s *Session) Save(st *store.Store) error {
	if !s.Logged {
		return st.WriteCollection(store.CollectionSession, []Session{})
	}
	return st.WriteCollection(store.CollectionSession, []Session{*s})
}

// LoggedIn reports the logged flag alone. In local-fallback mode this is
// the whole authentication story.
func (s *Session) LoggedIn() bool {
	return s.Logged
}

// TokenUsable reports whether the bearer token can still authenticate a
// remote request. Tokens that do not parse as JWTs are assumed usable as
// long as they are non-empty; tokens with a readable exp claim are checked
// against it.
func (s *Session) TokenUsable() bool {
	if s.Token == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.After(time.Now())
}

// Authenticated reports whether the session can act in the given mode: a
// logged flag without a usable token is not authenticated in remote mode.
func (s *Session) Authenticated(remote bool) bool {
	if !s.Logged {
		return false
	}
	if remote {
		return s.TokenUsable()
	}
	return true
}

// IsAdmin reports whether the session carries the ADMIN role.
func (s *Session) IsAdmin() bool {
	return s.Logged && s.Role == "ADMIN"
}
