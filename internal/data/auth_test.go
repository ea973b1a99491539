package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"username too short", "ab", "a@b.com", "Password1"},
		{"username too long", "averylongname", "a@b.com", "Password1"},
		{"username bad chars", "user name", "a@b.com", "Password1"},
		{"bad email", "gooduser", "not-an-email", "Password1"},
		{"password too short", "gooduser", "a@b.com", "Pw1"},
		{"password no uppercase", "gooduser", "a@b.com", "password1"},
		{"password no digit", "gooduser", "a@b.com", "Passwords"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newLocalService(t)
			_, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterLocalIssuesCode(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)

	res, err := svc.Register(context.Background(), "filmfan", "fan@example.com", "Password1")
	require.NoError(t, err)
	assert.True(t, res.RequiresCode)
	assert.Equal(t, "fan@example.com", res.PendingEmail)
	assert.Len(t, res.Code, 6)

	// Nothing lands in users until the code is confirmed.
	assert.Empty(t, readList[types.User](svc.store, store.CollectionUsers))
}

func TestRegisterLocalDuplicate(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	seedUser(t, svc, "u1", "filmfan", "fan@example.com", types.RoleUser)

	_, err := svc.Register(context.Background(), "filmfan", "other@example.com", "Password1")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.Register(context.Background(), "otherfan", "fan@example.com", "Password1")
	assert.ErrorIs(t, err, ErrDuplicate)

	// Failed registrations leave no pending record.
	assert.Empty(t, readList[types.PendingRegistration](svc.store, store.CollectionPending))
}

func TestRegisterLocalUsernameHeldByPending(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "filmfan", "alice@example.com", "Password1")
	require.NoError(t, err)

	// A different email cannot claim a username that is pending verification.
	_, err = svc.Register(ctx, "filmfan", "bob@example.com", "Password1")
	assert.ErrorIs(t, err, ErrDuplicate)

	// The same email re-registering just refreshes its pending record.
	_, err = svc.Register(ctx, "filmfan", "alice@example.com", "Password1")
	require.NoError(t, err)
	assert.Len(t, readList[types.PendingRegistration](svc.store, store.CollectionPending), 1)
}

func TestVerifyCodeEnforcesUniqueness(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	// Two pendings holding the same username can exist in a store written
	// before the register-time check; only one may verify.
	pendings := []types.PendingRegistration{
		{ID: "p1", Username: "filmfan", Email: "alice@example.com", Code: "111111",
			ExpiresAt: svc.now().Add(codeTTL)},
		{ID: "p2", Username: "filmfan", Email: "bob@example.com", Code: "222222",
			ExpiresAt: svc.now().Add(codeTTL)},
	}
	require.NoError(t, svc.store.WriteCollection(store.CollectionPending, pendings))

	_, err := svc.VerifyCode(ctx, "alice@example.com", "111111")
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "bob@example.com", "222222")
	assert.ErrorIs(t, err, ErrDuplicate)

	named := 0
	for _, u := range readList[types.User](svc.store, store.CollectionUsers) {
		if u.Username == "filmfan" {
			named++
		}
	}
	assert.Equal(t, 1, named)
}

func TestVerifyCodeLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		reg, err := svc.Register(ctx, "filmfan", "fan@example.com", "Password1")
		require.NoError(t, err)

		res, err := svc.VerifyCode(ctx, "fan@example.com", reg.Code)
		require.NoError(t, err)
		assert.Equal(t, "filmfan", res.User.Username)
		assert.True(t, res.User.EmailVerified)
		assert.True(t, svc.session.LoggedIn())

		// Pending record is consumed; login now works.
		assert.Empty(t, readList[types.PendingRegistration](svc.store, store.CollectionPending))
		svc.session.Clear()
		_, err = svc.Login(ctx, "filmfan", "Password1")
		require.NoError(t, err)
	})

	t.Run("wrong code", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		_, err := svc.Register(ctx, "filmfan", "fan@example.com", "Password1")
		require.NoError(t, err)

		_, err = svc.VerifyCode(ctx, "fan@example.com", "000000")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	})

	t.Run("expired code", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		reg, err := svc.Register(ctx, "filmfan", "fan@example.com", "Password1")
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 11, 0, 0, time.UTC) }
		_, err = svc.VerifyCode(ctx, "fan@example.com", reg.Code)
		assert.ErrorIs(t, err, ErrCodeExpired)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		_, err := svc.VerifyCode(ctx, "nobody@example.com", "123456")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResendCodeLocal(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "filmfan", "fan@example.com", "Password1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC) }
	second, err := svc.ResendCode(ctx, "fan@example.com")
	require.NoError(t, err)
	require.True(t, second.RequiresCode)

	// Old code is dead, new one verifies despite the original expiry passing.
	if first.Code != second.Code {
		_, err = svc.VerifyCode(ctx, "fan@example.com", first.Code)
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}
	_, err = svc.VerifyCode(ctx, "fan@example.com", second.Code)
	require.NoError(t, err)
}

func TestLoginLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seeded admin", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		res, err := svc.Login(ctx, "admin", "Admin@123")
		require.NoError(t, err)
		assert.Equal(t, types.RoleAdmin, res.User.Role)
		assert.True(t, svc.session.IsAdmin())
	})

	t.Run("by email", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		_, err := svc.Login(ctx, "admin@beastmovieflix.com", "Admin@123")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		_, err := svc.Login(ctx, "admin", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.False(t, svc.session.LoggedIn())
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		svc := newLocalService(t)
		_, err := svc.Login(ctx, "nobody", "Password1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginRemote(t *testing.T) {
	t.Parallel()

	t.Run("success sets session", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/login", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"jwt-here","userId":42,"username":"filmfan","email":"fan@example.com","role":"USER"}`))
		}))
		defer srv.Close()

		svc := newRemoteService(t, srv)
		res, err := svc.Login(context.Background(), "filmfan", "Password1")
		require.NoError(t, err)
		assert.Equal(t, "filmfan", res.User.Username)
		assert.Equal(t, "42", svc.session.UserID)
		assert.Equal(t, "jwt-here", svc.session.Token)
	})

	t.Run("401 maps to invalid credentials", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		svc := newRemoteService(t, srv)
		_, err := svc.Login(context.Background(), "filmfan", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("server error falls back to local", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc := newRemoteService(t, srv)
		res, err := svc.Login(context.Background(), "admin", "Admin@123")
		require.NoError(t, err)
		assert.Equal(t, types.RoleAdmin, res.User.Role)
	})
}

func TestEnsureAdminIdempotent(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)

	require.NoError(t, svc.EnsureAdmin())
	require.NoError(t, svc.EnsureAdmin())

	admins := 0
	for _, u := range readList[types.User](svc.store, store.CollectionUsers) {
		if u.Role == types.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}
