package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastmovieflix/internal/types"
)

func TestCreateGroupLocal(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()
	loginAs(t, svc, "u1", "filmfan")

	_, err := svc.CreateGroup(ctx, "x", "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	g, err := svc.CreateGroup(ctx, "Horror Club", "scary stuff only", []string{"u2", "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", string(g.CreatorID))

	// The creator is a member exactly once.
	count := 0
	for _, id := range g.Members {
		if id == "u1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, g.Members.Contains("u2"))
}

func TestGroupsListsOnlyMine(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	loginAs(t, svc, "u1", "filmfan")
	_, err := svc.CreateGroup(ctx, "Mine", "", nil)
	require.NoError(t, err)
	shared, err := svc.CreateGroup(ctx, "Shared", "", []string{"u2"})
	require.NoError(t, err)

	loginAs(t, svc, "u2", "otherfan")
	_, err = svc.CreateGroup(ctx, "Theirs", "", nil)
	require.NoError(t, err)

	groups, err := svc.Groups(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.ElementsMatch(t, []string{"Shared", "Theirs"}, names)

	_, err = svc.Group(ctx, string(shared.ID))
	require.NoError(t, err)
	_, err = svc.Group(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMembershipLocal(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	loginAs(t, svc, "u1", "filmfan")
	g, err := svc.CreateGroup(ctx, "Horror Club", "", nil)
	require.NoError(t, err)
	id := string(g.ID)

	loginAs(t, svc, "u2", "otherfan")
	require.NoError(t, svc.JoinGroup(ctx, id))
	// Joining twice is a no-op, not an error.
	require.NoError(t, svc.JoinGroup(ctx, id))

	// AddMember is strict about duplicates.
	assert.ErrorIs(t, svc.AddMember(ctx, id, "u2"), ErrDuplicate)
	require.NoError(t, svc.AddMember(ctx, id, "u3"))

	require.NoError(t, svc.LeaveGroup(ctx, id))
	got, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Members.Contains("u2"))

	// The creator cannot leave their own group.
	svc.session.Set("u1", "filmfan", "fan@example.com", types.RoleUser, "", "")
	assert.ErrorIs(t, svc.LeaveGroup(ctx, id), ErrValidation)
}

func TestDeleteGroupLocalOnly(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	loginAs(t, svc, "u1", "filmfan")
	g, err := svc.CreateGroup(ctx, "Horror Club", "", []string{"u2"})
	require.NoError(t, err)
	id := string(g.ID)

	loginAs(t, svc, "u2", "otherfan")
	assert.ErrorIs(t, svc.DeleteGroup(id), ErrUnauthorized)

	svc.session.Set("u1", "filmfan", "fan@example.com", types.RoleUser, "", "")
	require.NoError(t, svc.DeleteGroup(id))
	assert.ErrorIs(t, svc.DeleteGroup(id), ErrNotFound)
}

func TestSendMessageLocal(t *testing.T) {
	t.Parallel()
	svc := newLocalService(t)
	ctx := context.Background()

	loginAs(t, svc, "u1", "filmfan")
	g, err := svc.CreateGroup(ctx, "Horror Club", "", nil)
	require.NoError(t, err)
	id := string(g.ID)

	_, err = svc.SendMessage(ctx, id, "")
	assert.ErrorIs(t, err, ErrValidation)

	msg, err := svc.SendMessage(ctx, id, "anyone seen The Thing?")
	require.NoError(t, err)
	assert.Equal(t, "filmfan", msg.SenderName)

	got, err := svc.Group(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.AllMessages(), 1)
	assert.Equal(t, "anyone seen The Thing?", got.AllMessages()[0].Content)

	// Non-members cannot post.
	loginAs(t, svc, "u2", "otherfan")
	_, err = svc.SendMessage(ctx, id, "hello")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWatchGroupPolls(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/groups/g1", r.URL.Path)
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g1","name":"Horror Club","recentMessages":[{"id":"m1","senderName":"filmfan","content":"hi"}]}`))
	}))
	defer srv.Close()

	svc := newRemoteService(t, srv)
	svc.session.Set("u1", "filmfan", "fan@example.com", types.RoleUser, "test-token", "")

	ctx, cancel := context.WithCancel(context.Background())
	renders := make(chan *types.Group, 16)
	done := make(chan error, 1)
	go func() {
		done <- svc.WatchGroup(ctx, "g1", 10*time.Millisecond, func(g *types.Group) {
			renders <- g
		})
	}()

	// First render is immediate, later ones arrive on the tick.
	for i := 0; i < 3; i++ {
		select {
		case g := <-renders:
			assert.Equal(t, "Horror Club", g.Name)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a render")
		}
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}
