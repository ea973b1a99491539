package data

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

const (
	codeLength = 6
	codeTTL    = 10 * time.Minute // one-time codes expire 10 minutes after issuance

	adminID       = "admin-001"
	adminUsername = "admin"
	adminEmail    = "admin@beastmovieflix.com"
	adminPassword = "Admin@123"
)

// AuthResult is the outcome of register, verify, or login. When
// RequiresCode is set the account is pending verification; Code carries
// the one-time code in local-fallback mode, where no mail transport exists.
type AuthResult struct {
	User         *types.User
	RequiresCode bool
	PendingEmail string
	Code         string
}

// Register creates a new pending account. Local-fallback registration
// always issues a 6-digit one-time code bound to a 10-minute expiry; the
// account is unusable until the code is confirmed.
func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Post(ctx, "/auth/register", map[string]string{
			"username": username,
			"email":    email,
			"password": password,
		})
		if res.Success {
			var resp types.AuthResponse
			if err := res.Decode(&resp); err != nil {
				return nil, err
			}
			if resp.RequiresOTP {
				return &AuthResult{RequiresCode: true, PendingEmail: email}, nil
			}
			// Pre-verified accounts log straight in.
			if resp.Token != "" {
				s.session.Set(resp.UserID.String(), resp.Username, resp.Email, roleOrUser(resp.Role), resp.Token, resp.ProfilePicture)
				if err := s.session.Save(s.store); err != nil {
					return nil, err
				}
			}
			return &AuthResult{User: userFromAuth(resp)}, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, registering against local store")
	}

	return s.registerLocal(username, email, password)
}

func (s *Service) registerLocal(username, email, password string) (*AuthResult, error) {
	users := readList[types.User](s.store, store.CollectionUsers)
	for _, u := range users {
		if u.Username == username {
			return nil, fmt.Errorf("%w: username already taken", ErrDuplicate)
		}
		if u.Email == email {
			return nil, fmt.Errorf("%w: email already registered", ErrDuplicate)
		}
	}

	// A pending signup under a different email also holds the username;
	// re-registering the same email replaces its pending record instead.
	for _, p := range readList[types.PendingRegistration](s.store, store.CollectionPending) {
		if p.Email != email && p.Username == username {
			return nil, fmt.Errorf("%w: username already taken", ErrDuplicate)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code := generateCode()
	pending := types.PendingRegistration{
		ID:           s.newID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Code:         code,
		ExpiresAt:    s.now().Add(codeTTL),
		CreatedAt:    s.now(),
	}

	if err := s.savePending(pending); err != nil {
		return nil, err
	}

	log.Debug().Str("email", email).Msg("issued local verification code")
	return &AuthResult{RequiresCode: true, PendingEmail: email, Code: code}, nil
}

// VerifyCode confirms a pending registration. An expired code is rejected
// even when it matches.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (*AuthResult, error) {
	if s.remote {
		res := s.api.Post(ctx, "/auth/verify-otp", map[string]string{"email": email, "otp": code})
		if res.Success {
			var resp types.AuthResponse
			if err := res.Decode(&resp); err != nil {
				return nil, err
			}
			s.session.Set(resp.UserID.String(), resp.Username, resp.Email, roleOrUser(resp.Role), resp.Token, resp.ProfilePicture)
			if err := s.session.Save(s.store); err != nil {
				return nil, err
			}
			return &AuthResult{User: userFromAuth(resp)}, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	return s.verifyCodeLocal(email, code)
}

func (s *Service) verifyCodeLocal(email, code string) (*AuthResult, error) {
	pendings := readList[types.PendingRegistration](s.store, store.CollectionPending)
	idx := -1
	for i, p := range pendings {
		if p.Email == email {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: no pending registration for %s", ErrNotFound, email)
	}

	pending := pendings[idx]
	if pending.Expired(s.now()) {
		return nil, ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		return nil, ErrCodeMismatch
	}

	// Uniqueness is re-checked at verification time: another pending
	// signup for the same username may have verified first.
	users := readList[types.User](s.store, store.CollectionUsers)
	for _, u := range users {
		if u.Username == pending.Username {
			return nil, fmt.Errorf("%w: username already taken", ErrDuplicate)
		}
		if u.Email == pending.Email {
			return nil, fmt.Errorf("%w: email already registered", ErrDuplicate)
		}
	}

	user := types.User{
		ID:            types.FlexID(pending.ID),
		Username:      pending.Username,
		Email:         pending.Email,
		PasswordHash:  pending.PasswordHash,
		Role:          types.RoleUser,
		EmailVerified: true,
		CreatedAt:     s.now(),
	}

	users = append(users, user)
	if err := s.store.WriteCollection(store.CollectionUsers, users); err != nil {
		return nil, err
	}

	pendings = append(pendings[:idx], pendings[idx+1:]...)
	if err := s.store.WriteCollection(store.CollectionPending, pendings); err != nil {
		return nil, err
	}

	s.session.Set(string(user.ID), user.Username, user.Email, user.Role, "", user.ProfilePicture)
	if err := s.session.Save(s.store); err != nil {
		return nil, err
	}

	return &AuthResult{User: &user}, nil
}

// ResendCode issues a fresh code for a pending registration, restarting
// the expiry window.
func (s *Service) ResendCode(ctx context.Context, email string) (*AuthResult, error) {
	if s.remote {
		res := s.api.Post(ctx, "/auth/resend-otp", map[string]string{"email": email})
		if res.Success {
			return &AuthResult{RequiresCode: true, PendingEmail: email}, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	pendings := readList[types.PendingRegistration](s.store, store.CollectionPending)
	for i, p := range pendings {
		if p.Email == email {
			pendings[i].Code = generateCode()
			pendings[i].ExpiresAt = s.now().Add(codeTTL)
			if err := s.store.WriteCollection(store.CollectionPending, pendings); err != nil {
				return nil, err
			}
			return &AuthResult{RequiresCode: true, PendingEmail: email, Code: pendings[i].Code}, nil
		}
	}
	return nil, fmt.Errorf("%w: no pending registration for %s", ErrNotFound, email)
}

// Login resolves a user by username or email plus password and populates
// the session wholesale. The returned role tells the renderer which
// landing view applies.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*AuthResult, error) {
	if usernameOrEmail == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	if s.remote {
		res := s.api.Post(ctx, "/auth/login", map[string]string{
			"usernameOrEmail": usernameOrEmail,
			"password":        password,
		})
		if res.Success {
			var resp types.AuthResponse
			if err := res.Decode(&resp); err != nil {
				return nil, err
			}
			if resp.RequiresOTP {
				return &AuthResult{RequiresCode: true, PendingEmail: resp.Email}, nil
			}
			s.session.Set(resp.UserID.String(), resp.Username, resp.Email, roleOrUser(resp.Role), resp.Token, resp.ProfilePicture)
			if err := s.session.Save(s.store); err != nil {
				return nil, err
			}
			return &AuthResult{User: userFromAuth(resp)}, nil
		}
		if !res.Retriable() {
			if res.Unauthorized {
				return nil, ErrInvalidCredentials
			}
			return nil, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, logging in against local store")
	}

	return s.loginLocal(usernameOrEmail, password)
}

func (s *Service) loginLocal(usernameOrEmail, password string) (*AuthResult, error) {
	if err := s.EnsureAdmin(); err != nil {
		return nil, err
	}

	users := readList[types.User](s.store, store.CollectionUsers)
	for _, u := range users {
		if u.Username != usernameOrEmail && u.Email != usernameOrEmail {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		user := u
		s.session.Set(string(user.ID), user.Username, user.Email, roleOrUser(user.Role), "", user.ProfilePicture)
		if err := s.session.Save(s.store); err != nil {
			return nil, err
		}
		return &AuthResult{User: &user}, nil
	}
	return nil, ErrInvalidCredentials
}

// Logout clears the session wholesale.
func (s *Service) Logout() error {
	s.session.Clear()
	return s.session.Save(s.store)
}

// EnsureAdmin idempotently seeds the single admin account in the local
// store. Exactly one record ever has the admin username.
func (s *Service) EnsureAdmin() error {
	users := readList[types.User](s.store, store.CollectionUsers)
	for _, u := range users {
		if u.Username == adminUsername {
			return nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	users = append(users, types.User{
		ID:            adminID,
		Username:      adminUsername,
		Email:         adminEmail,
		PasswordHash:  string(hash),
		Role:          types.RoleAdmin,
		Bio:           "System Administrator",
		EmailVerified: true,
		CreatedAt:     s.now(),
	})
	if err := s.store.WriteCollection(store.CollectionUsers, users); err != nil {
		return err
	}
	log.Info().Msg("admin account initialized")
	return nil
}

func (s *Service) savePending(pending types.PendingRegistration) error {
	pendings := readList[types.PendingRegistration](s.store, store.CollectionPending)
	kept := pendings[:0]
	for _, p := range pendings {
		if p.Email != pending.Email {
			kept = append(kept, p)
		}
	}
	kept = append(kept, pending)
	return s.store.WriteCollection(store.CollectionPending, kept)
}

// generateCode produces a random numeric one-time code.
func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			code[i] = '0'
			continue
		}
		code[i] = byte(n.Int64()) + '0'
	}
	return string(code)
}

func userFromAuth(resp types.AuthResponse) *types.User {
	return &types.User{
		ID:             resp.UserID,
		Username:       resp.Username,
		Email:          resp.Email,
		Role:           roleOrUser(resp.Role),
		ProfilePicture: resp.ProfilePicture,
		EmailVerified:  resp.EmailVerified,
	}
}

func roleOrUser(role string) string {
	if role == "" {
		return types.RoleUser
	}
	return role
}
