package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"beastmovieflix/internal/api"
	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

// Profile fetches a user's public profile with movie/follower/following
// counts. An empty userID means the current user.
func (s *Service) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = s.session.UserID
	}

	if s.remote {
		endpoint := "/user/profile"
		if userID != s.session.UserID {
			endpoint = "/user/profile/" + userID
		}
		res := s.api.Get(ctx, endpoint)
		if res.Success {
			var profile types.Profile
			if err := res.Decode(&profile); err != nil {
				return nil, err
			}
			return &profile, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	return s.profileLocal(userID)
}

func (s *Service) profileLocal(userID string) (*types.Profile, error) {
	users := readList[types.User](s.store, store.CollectionUsers)
	for _, u := range users {
		if string(u.ID) != userID {
			continue
		}
		logs := s.diaryLocal(userID, u.Username)
		return &types.Profile{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			Bio:            u.Bio,
			ProfilePicture: u.ProfilePicture,
			MovieLogsCount: len(logs),
			FollowersCount: len(u.Followers),
			FollowingCount: len(u.Following),
			EmailVerified:  u.EmailVerified,
		}, nil
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
}

// ProfileUpdate carries the editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username       *string
	Email          *string
	Bio            *string
	ProfilePicture *string
	NewPassword    *string
}

// UpdateProfile edits the current user's profile and refreshes the session
// identity to match.
func (s *Service) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	if upd.Username != nil {
		if err := validateUsername(*upd.Username); err != nil {
			return err
		}
	}
	if upd.Email != nil {
		if err := validateEmail(*upd.Email); err != nil {
			return err
		}
	}
	if upd.NewPassword != nil {
		if err := validatePassword(*upd.NewPassword); err != nil {
			return err
		}
	}

	if s.remote {
		payload := map[string]string{}
		setIf := func(key string, v *string) {
			if v != nil {
				payload[key] = *v
			}
		}
		setIf("username", upd.Username)
		setIf("email", upd.Email)
		setIf("bio", upd.Bio)
		setIf("profilePicture", upd.ProfilePicture)
		setIf("newPassword", upd.NewPassword)

		res := s.api.Do(ctx, http.MethodPut, "/user/profile", payload)
		if res.Success {
			s.refreshSessionIdentity(upd)
			return s.session.Save(s.store)
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, updating profile in local store")
	}

	return s.updateProfileLocal(upd)
}

func (s *Service) updateProfileLocal(upd ProfileUpdate) error {
	users := readList[types.User](s.store, store.CollectionUsers)
	idx := -1
	for i, u := range users {
		if string(u.ID) == s.session.UserID {
			idx = i
			continue
		}
		if upd.Username != nil && u.Username == *upd.Username {
			return fmt.Errorf("%w: username already taken", ErrDuplicate)
		}
		if upd.Email != nil && u.Email == *upd.Email {
			return fmt.Errorf("%w: email already registered", ErrDuplicate)
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: user %s", ErrNotFound, s.session.UserID)
	}

	u := &users[idx]
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = *upd.ProfilePicture
	}
	if upd.NewPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.store.WriteCollection(store.CollectionUsers, users); err != nil {
		return err
	}

	s.refreshSessionIdentity(upd)
	return s.session.Save(s.store)
}

func (s *Service) refreshSessionIdentity(upd ProfileUpdate) {
	if upd.Username != nil {
		s.session.Username = *upd.Username
	}
	if upd.Email != nil {
		s.session.Email = *upd.Email
	}
	if upd.ProfilePicture != nil {
		s.session.ProfilePicture = *upd.ProfilePicture
	}
}

// SearchUsers finds users by username substring, case-insensitive.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]types.Profile, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/user/search?query="+url.QueryEscape(query))
		if res.Success {
			var matches []types.Profile
			if err := res.Decode(&matches); err != nil {
				return nil, err
			}
			return matches, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	query = strings.ToLower(query)
	users := readList[types.User](s.store, store.CollectionUsers)
	matches := []types.Profile{}
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), query) {
			matches = append(matches, types.Profile{
				ID:             u.ID,
				Username:       u.Username,
				ProfilePicture: u.ProfilePicture,
				EmailVerified:  u.EmailVerified,
			})
		}
	}
	return matches, nil
}

// ToggleFollow flips the follow state for (current user, target): follow if
// not following, unfollow otherwise. Returns the new state. Calling twice
// restores the original state in either mode.
func (s *Service) ToggleFollow(ctx context.Context, targetID string) (bool, error) {
	if err := s.requireLogin(); err != nil {
		return false, err
	}
	if targetID == s.session.UserID {
		return false, fmt.Errorf("%w: cannot follow yourself", ErrValidation)
	}

	if s.remote {
		following, res, err := s.remoteFollowing(ctx, s.session.UserID)
		if err != nil {
			// An unreadable answer must not be mistaken for "not
			// following"; a blind follow here would flip the edge.
			return false, err
		}
		if res.Success {
			endpoint := "/user/follow/" + targetID
			next := true
			if containsProfile(following, targetID) {
				endpoint = "/user/unfollow/" + targetID
				next = false
			}
			toggled := s.api.Post(ctx, endpoint, nil)
			if toggled.Success {
				return next, nil
			}
			if !toggled.Retriable() {
				return false, remoteFailure(toggled)
			}
		} else if !res.Retriable() {
			return false, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, toggling follow in local store")
	}

	return s.toggleFollowLocal(targetID)
}

func (s *Service) toggleFollowLocal(targetID string) (bool, error) {
	users := readList[types.User](s.store, store.CollectionUsers)
	meIdx, targetIdx := -1, -1
	for i, u := range users {
		switch string(u.ID) {
		case s.session.UserID:
			meIdx = i
		case targetID:
			targetIdx = i
		}
	}
	if targetIdx == -1 {
		return false, fmt.Errorf("%w: user %s", ErrNotFound, targetID)
	}
	if meIdx == -1 {
		return false, fmt.Errorf("%w: user %s", ErrNotFound, s.session.UserID)
	}

	me, target := &users[meIdx], &users[targetIdx]
	following := !me.Following.Contains(targetID)
	if following {
		me.Following = append(me.Following, targetID)
		target.Followers = append(target.Followers, s.session.UserID)
	} else {
		me.Following = me.Following.Remove(targetID)
		target.Followers = target.Followers.Remove(s.session.UserID)
	}

	if err := s.store.WriteCollection(store.CollectionUsers, users); err != nil {
		return false, err
	}
	return following, nil
}

// Followers lists the users following userID.
func (s *Service) Followers(ctx context.Context, userID string) ([]types.Profile, error) {
	return s.followEdge(ctx, userID, "/user/followers/", func(u types.User) types.IDList { return u.Followers })
}

// Following lists the users userID follows.
func (s *Service) Following(ctx context.Context, userID string) ([]types.Profile, error) {
	return s.followEdge(ctx, userID, "/user/following/", func(u types.User) types.IDList { return u.Following })
}

func (s *Service) followEdge(ctx context.Context, userID, endpoint string, edge func(types.User) types.IDList) ([]types.Profile, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = s.session.UserID
	}

	if s.remote {
		list, res, err := s.remoteProfileList(ctx, endpoint+userID)
		if err != nil {
			return nil, err
		}
		if res.Success {
			return list, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	users := readList[types.User](s.store, store.CollectionUsers)
	var ids types.IDList
	for _, u := range users {
		if string(u.ID) == userID {
			ids = edge(u)
			break
		}
	}

	out := []types.Profile{}
	for _, id := range ids {
		found := false
		for _, u := range users {
			if string(u.ID) == id {
				out = append(out, types.Profile{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture})
				found = true
				break
			}
		}
		if !found {
			// Dangling edge; consistency is advisory only.
			out = append(out, types.Profile{ID: types.FlexID(id), Username: "User"})
		}
	}
	return out, nil
}

func (s *Service) remoteFollowing(ctx context.Context, userID string) ([]types.Profile, api.Result, error) {
	return s.remoteProfileList(ctx, "/user/following/"+userID)
}

func (s *Service) remoteProfileList(ctx context.Context, endpoint string) ([]types.Profile, api.Result, error) {
	res := s.api.Get(ctx, endpoint)
	if !res.Success {
		return nil, res, nil
	}
	var list []types.Profile
	if err := res.Decode(&list); err != nil {
		return nil, res, fmt.Errorf("profile list from %s: %w", endpoint, err)
	}
	return list, res, nil
}

func containsProfile(list []types.Profile, id string) bool {
	for _, p := range list {
		if string(p.ID) == id {
			return true
		}
	}
	return false
}
