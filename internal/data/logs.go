package data

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

// LogEntry is the input for logging a watched movie or show.
type LogEntry struct {
	TMDBID          string
	MediaType       string
	Title           string
	PosterPath      string
	Rating          int
	Review          string
	LanguageWatched string
	WatchedAt       string
}

// LogMovie records a diary entry for the current user.
func (s *Service) LogMovie(ctx context.Context, entry LogEntry) (*types.MovieLog, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if entry.TMDBID == "" || entry.Title == "" {
		return nil, fmt.Errorf("%w: title and tmdb id are required", ErrValidation)
	}
	if entry.Rating < 0 || entry.Rating > 10 {
		return nil, fmt.Errorf("%w: rating must be between 0 and 10", ErrValidation)
	}
	if entry.MediaType == "" {
		entry.MediaType = types.MediaTypeMovie
	}
	if !mediaTypeValid(entry.MediaType) {
		return nil, fmt.Errorf("%w: unknown media type %q", ErrValidation, entry.MediaType)
	}

	if s.remote {
		payload := map[string]any{
			"tmdbId":          entry.TMDBID,
			"mediaType":       entry.MediaType,
			"title":           entry.Title,
			"posterPath":      entry.PosterPath,
			"rating":          entry.Rating,
			"review":          entry.Review,
			"languageWatched": entry.LanguageWatched,
			"watchedAt":       entry.WatchedAt,
		}
		// The backend stores tmdbId numerically.
		if n, ok := types.ParseIntID(entry.TMDBID); ok {
			payload["tmdbId"] = n
		}
		res := s.api.Post(ctx, "/logs", payload)
		if res.Success {
			var created types.RawLog
			if err := res.Decode(&created); err != nil {
				return nil, err
			}
			normalized := created.Normalize()
			return &normalized, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, logging movie in local store")
	}

	return s.logMovieLocal(entry)
}

func (s *Service) logMovieLocal(entry LogEntry) (*types.MovieLog, error) {
	record := types.MovieLog{
		ID:              s.newID(),
		UserID:          s.session.UserID,
		TMDBID:          entry.TMDBID,
		MediaType:       entry.MediaType,
		Title:           entry.Title,
		PosterPath:      entry.PosterPath,
		Rating:          entry.Rating,
		Review:          entry.Review,
		LanguageWatched: entry.LanguageWatched,
		WatchedAt:       entry.WatchedAt,
		CreatedAt:       s.now().UTC().Format(time.RFC3339),
	}

	logs := readList[types.MovieLog](s.store, store.CollectionDiary)
	logs = append(logs, record)
	if err := s.store.WriteCollection(store.CollectionDiary, logs); err != nil {
		return nil, err
	}
	return &record, nil
}

// Diary returns the current user's watch history, newest first. Locally this
// merges the current diary collection with the legacy movie_logs collection,
// deduplicated by record id.
func (s *Service) Diary(ctx context.Context) ([]types.MovieLog, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/logs")
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

	return s.diaryLocal(s.session.UserID, s.session.Username), nil
}

// DiaryEntry returns a single log by id.
func (s *Service) DiaryEntry(ctx context.Context, logID string) (*types.MovieLog, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/logs/"+logID)
		if res.Success {
			var raw types.RawLog
			if err := res.Decode(&raw); err != nil {
				return nil, err
			}
			normalized := raw.Normalize()
			return &normalized, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	for _, l := range s.diaryLocal(s.session.UserID, s.session.Username) {
		if l.EffectiveID() == logID {
			entry := l
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("%w: log %s", ErrNotFound, logID)
}

// UpdateLog edits an existing diary entry's rating, review, language or
// watch date.
func (s *Service) UpdateLog(ctx context.Context, logID string, entry LogEntry) (*types.MovieLog, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if entry.Rating < 0 || entry.Rating > 10 {
		return nil, fmt.Errorf("%w: rating must be between 0 and 10", ErrValidation)
	}

	if s.remote {
		payload := map[string]any{
			"rating":          entry.Rating,
			"review":          entry.Review,
			"languageWatched": entry.LanguageWatched,
			"watchedAt":       entry.WatchedAt,
		}
		res := s.api.Do(ctx, http.MethodPut, "/logs/"+logID, payload)
		if res.Success {
			var raw types.RawLog
			if err := res.Decode(&raw); err != nil {
				return nil, err
			}
			normalized := raw.Normalize()
			return &normalized, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, updating log in local store")
	}

	return s.updateLogLocal(logID, entry)
}

// updateLogLocal edits the entry wherever it lives: the current diary
// collection or the legacy movie_logs collection.
func (s *Service) updateLogLocal(logID string, entry LogEntry) (*types.MovieLog, error) {
	logs := readList[types.MovieLog](s.store, store.CollectionDiary)
	for i := range logs {
		if logs[i].EffectiveID() != logID || logs[i].UserID != s.session.UserID {
			continue
		}
		logs[i].Rating = entry.Rating
		logs[i].Review = entry.Review
		logs[i].LanguageWatched = entry.LanguageWatched
		if entry.WatchedAt != "" {
			logs[i].WatchedAt = entry.WatchedAt
		}
		if err := s.store.WriteCollection(store.CollectionDiary, logs); err != nil {
			return nil, err
		}
		updated := logs[i]
		return &updated, nil
	}

	raw := readList[types.RawLog](s.store, store.CollectionMovieLogs)
	for i := range raw {
		if raw[i].Normalize().EffectiveID() != logID ||
			!raw[i].MatchesUser(s.session.UserID, s.session.Username) {
			continue
		}
		raw[i].Rating = entry.Rating
		raw[i].Review = entry.Review
		raw[i].LanguageWatched = entry.LanguageWatched
		if entry.WatchedAt != "" {
			raw[i].WatchedAt = entry.WatchedAt
		}
		if err := s.store.WriteCollection(store.CollectionMovieLogs, raw); err != nil {
			return nil, err
		}
		updated := raw[i].Normalize()
		return &updated, nil
	}

	return nil, fmt.Errorf("%w: log %s", ErrNotFound, logID)
}

// DeleteLog removes a diary entry. Locally it is removed from both the
// current and the legacy collection, whichever holds it.
func (s *Service) DeleteLog(ctx context.Context, logID string) error {
	if err := s.requireLogin(); err != nil {
		return err
	}

	if s.remote {
		res := s.api.Do(ctx, http.MethodDelete, "/logs/"+logID, nil)
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, deleting log from local store")
	}

	return s.deleteLogLocal(logID, s.session.UserID, s.session.Username)
}

func (s *Service) deleteLogLocal(logID, userID, username string) error {
	removed := false
	for _, name := range []string{store.CollectionDiary, store.CollectionMovieLogs} {
		raw := readList[types.RawLog](s.store, name)
		kept := raw[:0]
		for _, r := range raw {
			if r.Normalize().EffectiveID() == logID && (userID == "" || r.MatchesUser(userID, username)) {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) != len(raw) {
			if err := s.store.WriteCollection(name, kept); err != nil {
				return err
			}
		}
	}
	if !removed {
		return fmt.Errorf("%w: log %s", ErrNotFound, logID)
	}
	return nil
}

func (s *Service) diaryLocal(userID, username string) []types.MovieLog {
	merged := []types.MovieLog{}
	seen := map[string]bool{}
	for _, name := range []string{store.CollectionDiary, store.CollectionMovieLogs} {
		for _, r := range readList[types.RawLog](s.store, name) {
			if !r.MatchesUser(userID, username) {
				continue
			}
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
	return merged
}

func sortLogs(logs []types.MovieLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].When().After(logs[j].When())
	})
}

// mediaTypeValid reports whether t is one of the supported media kinds.
func mediaTypeValid(t string) bool {
	switch strings.ToLower(t) {
	case types.MediaTypeMovie, types.MediaTypeTV:
		return true
	}
	return false
}
