package data

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beastmovieflix/internal/api"
	"beastmovieflix/internal/session"
	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

// newLocalService builds a service in local-fallback mode over a throwaway
// sqlite store. The api client points nowhere; local paths never touch it.
func newLocalService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	client := api.NewClient("http://127.0.0.1:0", func() string { return "" })
	svc := NewService(st, client, &session.Session{}, false)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

// newRemoteService builds a service in remote mode against the given test
// server, sharing the same throwaway local store.
func newRemoteService(t *testing.T, srv *httptest.Server) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	client := api.NewClient(srv.URL, func() string { return "test-token" })
	svc := NewService(st, client, &session.Session{}, true)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

// loginAs seeds a verified user and signs the session in without going
// through the register/verify flow.
func loginAs(t *testing.T, svc *Service, id, username string) {
	t.Helper()
	seedUser(t, svc, id, username, username+"@example.com", types.RoleUser)
	svc.session.Set(id, username, username+"@example.com", types.RoleUser, "", "")
}

func loginAsAdmin(t *testing.T, svc *Service, id, username string) {
	t.Helper()
	seedUser(t, svc, id, username, username+"@example.com", types.RoleAdmin)
	svc.session.Set(id, username, username+"@example.com", types.RoleAdmin, "", "")
}

func seedUser(t *testing.T, svc *Service, id, username, email, role string) {
	t.Helper()
	users := readList[types.User](svc.store, store.CollectionUsers)
	users = append(users, types.User{
		ID:            types.FlexID(id),
		Username:      username,
		Email:         email,
		Role:          role,
		EmailVerified: true,
	})
	require.NoError(t, svc.store.WriteCollection(store.CollectionUsers, users))
}
