package data

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"beastmovieflix/internal/api"
	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

// ListKind selects which of the two saved-media lists an operation targets.
type ListKind string

const (
	KindWatchlist ListKind = "watchlist"
	KindFavorites ListKind = "favorites"
)

func (k ListKind) collection() string {
	if k == KindFavorites {
		return store.CollectionFavorites
	}
	return store.CollectionWatchlist
}

// ToggleWatchlist flips watchlist membership for the item.
func (s *Service) ToggleWatchlist(ctx context.Context, item types.ListItem) (bool, error) {
	return s.ToggleList(ctx, KindWatchlist, item)
}

// ToggleFavorite flips favorites membership for the item.
func (s *Service) ToggleFavorite(ctx context.Context, item types.ListItem) (bool, error) {
	return s.ToggleList(ctx, KindFavorites, item)
}

// Watchlist returns the current user's watchlist.
func (s *Service) Watchlist(ctx context.Context) ([]types.ListItem, error) {
	return s.List(ctx, KindWatchlist)
}

// Favorites returns the current user's favorites.
func (s *Service) Favorites(ctx context.Context) ([]types.ListItem, error) {
	return s.List(ctx, KindFavorites)
}

// InList reports membership of a title in one list.
func (s *Service) InList(ctx context.Context, kind ListKind, tmdbID string) (bool, error) {
	status, err := s.Status(ctx, tmdbID)
	if err != nil {
		return false, err
	}
	if kind == KindFavorites {
		return status.InFavorites, nil
	}
	return status.InWatchlist, nil
}

// ListStatus reports membership of a title in both lists at once.
type ListStatus struct {
	InWatchlist bool `json:"inWatchlist"`
	InFavorites bool `json:"inFavorites"`
}

// ToggleList adds the item to the given list if absent, removes it if
// present. Returns true when the item ended up in the list.
func (s *Service) ToggleList(ctx context.Context, kind ListKind, item types.ListItem) (bool, error) {
	if err := s.requireLogin(); err != nil {
		return false, err
	}
	if item.ID == "" {
		return false, fmt.Errorf("%w: item id is required", ErrValidation)
	}

	if s.remote {
		status, res := s.remoteStatus(ctx, string(item.ID))
		if res.Success {
			in := status.InWatchlist
			if kind == KindFavorites {
				in = status.InFavorites
			}
			var toggled api.Result
			if in {
				toggled = s.api.Do(ctx, http.MethodDelete, "/media/"+string(kind)+"/"+string(item.ID), nil)
			} else {
				toggled = s.api.Post(ctx, "/media/"+string(kind), map[string]any{
					"tmdbId": remoteTMDBID(string(item.ID)),
					"type":   item.Type,
					"title":  item.Title,
					"poster": item.Poster,
				})
			}
			if toggled.Success {
				return !in, nil
			}
			if !toggled.Retriable() {
				return false, remoteFailure(toggled)
			}
		} else if !res.Retriable() {
			return false, remoteFailure(res)
		}
		log.Warn().Str("list", string(kind)).Msg("backend unavailable, toggling list in local store")
	}

	return s.toggleListLocal(kind, item)
}

func (s *Service) toggleListLocal(kind ListKind, item types.ListItem) (bool, error) {
	name := kind.collection()
	items := readList[types.ListItem](s.store, name)
	kept := make([]types.ListItem, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == item.ID && string(it.UserID) == s.session.UserID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		item.UserID = types.FlexID(s.session.UserID)
		if item.AddedAt == "" {
			item.AddedAt = s.now().UTC().Format(time.RFC3339)
		}
		kept = append(kept, item)
	}
	if err := s.store.WriteCollection(name, kept); err != nil {
		return false, err
	}
	return !found, nil
}

// List returns the current user's watchlist or favorites.
func (s *Service) List(ctx context.Context, kind ListKind) ([]types.ListItem, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/media/"+string(kind))
		if res.Success {
			var items []types.ListItem
			if err := res.Decode(&items); err != nil {
				return nil, err
			}
			return items, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	items := readList[types.ListItem](s.store, kind.collection())
	mine := []types.ListItem{}
	for _, it := range items {
		if string(it.UserID) == s.session.UserID {
			mine = append(mine, it)
		}
	}
	return mine, nil
}

// Status reports whether the title is on the current user's watchlist and
// favorites.
func (s *Service) Status(ctx context.Context, tmdbID string) (ListStatus, error) {
	if err := s.requireLogin(); err != nil {
		return ListStatus{}, err
	}

	if s.remote {
		status, res := s.remoteStatus(ctx, tmdbID)
		if res.Success {
			return status, nil
		}
		if !res.Retriable() {
			return ListStatus{}, remoteFailure(res)
		}
	}

	return ListStatus{
		InWatchlist: s.inListLocal(KindWatchlist, tmdbID),
		InFavorites: s.inListLocal(KindFavorites, tmdbID),
	}, nil
}

func (s *Service) inListLocal(kind ListKind, id string) bool {
	for _, it := range readList[types.ListItem](s.store, kind.collection()) {
		if string(it.ID) == id && string(it.UserID) == s.session.UserID {
			return true
		}
	}
	return false
}

func (s *Service) remoteStatus(ctx context.Context, tmdbID string) (ListStatus, api.Result) {
	res := s.api.Get(ctx, "/media/check/"+tmdbID)
	if !res.Success {
		return ListStatus{}, res
	}
	var status ListStatus
	if err := res.Decode(&status); err != nil {
		log.Warn().Err(err).Msg("unreadable list status from backend")
	}
	return status, res
}

// remoteTMDBID matches the backend's numeric id storage where possible.
func remoteTMDBID(id string) any {
	if n, ok := types.ParseIntID(id); ok {
		return n
	}
	return id
}
