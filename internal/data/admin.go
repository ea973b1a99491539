package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

// Stats returns the admin dashboard counters. Locally, active means
// email-verified and pending reports are always zero since reports only
// live on the backend.
func (s *Service) Stats(ctx context.Context) (*types.AdminStats, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/admin/stats")
		if res.Success {
			var stats types.AdminStats
			if err := res.Decode(&stats); err != nil {
				return nil, err
			}
			return &stats, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	users := readList[types.User](s.store, store.CollectionUsers)
	active := 0
	for _, u := range users {
		if u.EmailVerified {
			active++
		}
	}
	total := len(readList[types.RawLog](s.store, store.CollectionDiary)) +
		len(readList[types.RawLog](s.store, store.CollectionMovieLogs))
	return &types.AdminStats{
		TotalUsers:  len(users),
		ActiveUsers: active,
		TotalLogs:   total,
	}, nil
}

// AdminUsers lists all accounts, optionally filtered by a username or email
// substring.
func (s *Service) AdminUsers(ctx context.Context, search string) ([]types.User, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	if s.remote {
		endpoint := "/admin/users"
		if search != "" {
			endpoint += "?search=" + url.QueryEscape(search)
		}
		res := s.api.Get(ctx, endpoint)
		if res.Success {
			var users []types.User
			if err := res.Decode(&users); err != nil {
				return nil, err
			}
			return users, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	users := readList[types.User](s.store, store.CollectionUsers)
	if search == "" {
		return users, nil
	}
	search = strings.ToLower(search)
	matched := []types.User{}
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), search) ||
			strings.Contains(strings.ToLower(u.Email), search) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

// SetUserRole promotes or demotes an account. An admin cannot change their
// own role, which keeps at least one admin around.
func (s *Service) SetUserRole(ctx context.Context, userID, role string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if role != types.RoleUser && role != types.RoleAdmin {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if userID == s.session.UserID {
		return fmt.Errorf("%w: cannot change your own role", ErrValidation)
	}

	if s.remote {
		res := s.api.Do(ctx, http.MethodPut, "/admin/users/"+userID+"/role", map[string]string{"role": role})
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, changing role in local store")
	}

	users := readList[types.User](s.store, store.CollectionUsers)
	for i := range users {
		if string(users[i].ID) == userID {
			users[i].Role = role
			return s.store.WriteCollection(store.CollectionUsers, users)
		}
	}
	return fmt.Errorf("%w: user %s", ErrNotFound, userID)
}

// DeleteUser removes an account. Locally the user's diary entries go with
// it so orphaned logs never resurface in the merge.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if userID == s.session.UserID {
		return fmt.Errorf("%w: cannot delete your own account", ErrValidation)
	}

	if s.remote {
		res := s.api.Do(ctx, http.MethodDelete, "/admin/users/"+userID, nil)
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, deleting user from local store")
	}

	users := readList[types.User](s.store, store.CollectionUsers)
	kept := make([]types.User, 0, len(users))
	var removed *types.User
	for _, u := range users {
		if string(u.ID) == userID {
			deleted := u
			removed = &deleted
			continue
		}
		kept = append(kept, u)
	}
	if removed == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err := s.store.WriteCollection(store.CollectionUsers, kept); err != nil {
		return err
	}

	for _, name := range []string{store.CollectionDiary, store.CollectionMovieLogs} {
		raw := readList[types.RawLog](s.store, name)
		keptLogs := make([]types.RawLog, 0, len(raw))
		for _, r := range raw {
			if r.MatchesUser(userID, removed.Username) {
				continue
			}
			keptLogs = append(keptLogs, r)
		}
		if len(keptLogs) != len(raw) {
			if err := s.store.WriteCollection(name, keptLogs); err != nil {
				return err
			}
		}
	}
	return nil
}

// AdminLogs lists every user's diary entries.
func (s *Service) AdminLogs(ctx context.Context) ([]types.MovieLog, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/admin/logs")
		if res.Success {
			var raw []types.RawLog
			if err := res.Decode(&raw); err != nil {
				return nil, err
			}
			out := make([]types.MovieLog, 0, len(raw))
			for _, r := range raw {
				out = append(out, r.Normalize())
			}
			sortLogs(out)
			return out, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	merged := []types.MovieLog{}
	seen := map[string]bool{}
	for _, name := range []string{store.CollectionDiary, store.CollectionMovieLogs} {
		for _, r := range readList[types.RawLog](s.store, name) {
			l := r.Normalize()
			key := l.EffectiveID()
			if key != "" && seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, l)
		}
	}
	sortLogs(merged)
	return merged, nil
}

// AdminDeleteLog removes any user's log by id.
func (s *Service) AdminDeleteLog(ctx context.Context, logID string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}

	if s.remote {
		res := s.api.Do(ctx, http.MethodDelete, "/admin/logs/"+logID, nil)
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, deleting log from local store")
	}

	return s.deleteLogLocal(logID, "", "")
}

// Settings returns the app-wide settings map.
func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/admin/settings")
		if res.Success {
			var settings map[string]string
			if err := res.Decode(&settings); err != nil {
				return nil, err
			}
			return settings, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	settings := map[string]string{}
	if err := s.store.ReadCollection(store.CollectionSettings, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings merges the given keys into the settings map.
func (s *Service) UpdateSettings(ctx context.Context, updates map[string]string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}

	if s.remote {
		res := s.api.Do(ctx, http.MethodPut, "/admin/settings", updates)
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, saving settings in local store")
	}

	settings := map[string]string{}
	if err := s.store.ReadCollection(store.CollectionSettings, &settings); err != nil {
		return err
	}
	for k, v := range updates {
		settings[k] = v
	}
	return s.store.WriteCollection(store.CollectionSettings, settings)
}
