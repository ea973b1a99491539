package types

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// FlexID is an opaque record id. The backend serves numeric ids while
// locally created records use strings, so it decodes either and always
// marshals back as a string.
type FlexID string

func (f FlexID) String() string { return string(f) }

func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// IDList is a list of user ids. Historical records stored it either as a
// comma-joined string or as a JSON array; both decode to the same list and
// it always marshals back as an array of strings.
type IDList []string

func (l IDList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

func (l IDList) Remove(id string) IDList {
	out := make(IDList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (l *IDList) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*l = nil
		return nil
	}
	if s[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := IDList{}
		for _, raw := range items {
			var id FlexID
			if err := json.Unmarshal(raw, &id); err == nil {
				if id != "" {
					out = append(out, string(id))
				}
				continue
			}
			// Remote member lists are objects with an id field.
			var member struct {
				ID FlexID `json:"id"`
			}
			if err := json.Unmarshal(raw, &member); err != nil {
				return err
			}
			if member.ID != "" {
				out = append(out, string(member.ID))
			}
		}
		*l = out
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	out := IDList{}
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

// User is an account record as persisted in the users collection.
type User struct {
	ID             FlexID    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"passwordHash,omitempty"`
	Role           string    `json:"role"`
	Bio            string    `json:"bio,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	EmailVerified  bool      `json:"emailVerified"`
	Following      IDList    `json:"following,omitempty"`
	Followers      IDList    `json:"followers,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile is the public view of a user, shaped like the backend's
// UserProfileDTO.
type Profile struct {
	ID             FlexID `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
	MovieLogsCount int    `json:"movieLogsCount"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	EmailVerified  bool   `json:"emailVerified"`
}

// MovieLog is the canonical diary entry. All stored shapes are normalized
// into this one at the data-access boundary.
type MovieLog struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	TMDBID          string `json:"tmdbId"`
	MediaType       string `json:"mediaType"`
	Title           string `json:"title"`
	PosterPath      string `json:"posterPath,omitempty"`
	Rating          int    `json:"rating,omitempty"`
	Review          string `json:"review,omitempty"`
	LanguageWatched string `json:"languageWatched,omitempty"`
	WatchedAt       string `json:"watchedAt,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// EffectiveID is the identity used for deduplication: the record id,
// falling back to the TMDB id for shapes that never carried one.
func (l MovieLog) EffectiveID() string {
	if l.ID != "" {
		return l.ID
	}
	return l.TMDBID
}

// When is the timestamp used for ordering: watch date, then creation date.
func (l MovieLog) When() time.Time {
	for _, v := range []string{l.WatchedAt, l.CreatedAt} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// RawLog is the superset of the two historical log shapes: the current
// diary entry and the legacy movie_logs entry (movieId/type/poster field
// names, sometimes keyed by username instead of userId).
type RawLog struct {
	ID              FlexID `json:"id"`
	UserID          FlexID `json:"userId"`
	Username        string `json:"username,omitempty"`
	TMDBID          FlexID `json:"tmdbId"`
	MovieID         FlexID `json:"movieId"`
	MediaType       string `json:"mediaType"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	PosterPath      string `json:"posterPath"`
	Poster          string `json:"poster"`
	Rating          int    `json:"rating"`
	Review          string `json:"review"`
	LanguageWatched string `json:"languageWatched"`
	WatchedAt       string `json:"watchedAt"`
	CreatedAt       string `json:"createdAt"`
}

// Normalize collapses a raw record into the canonical shape.
func (r RawLog) Normalize() MovieLog {
	id := string(r.ID)
	if id == "" {
		id = string(r.MovieID)
	}
	tmdbID := string(r.TMDBID)
	if tmdbID == "" {
		tmdbID = string(r.MovieID)
	}
	mediaType := r.MediaType
	if mediaType == "" {
		mediaType = r.Type
	}
	if mediaType == "" {
		mediaType = MediaTypeMovie
	}
	poster := r.PosterPath
	if poster == "" {
		poster = r.Poster
	}
	return MovieLog{
		ID:              id,
		UserID:          string(r.UserID),
		TMDBID:          tmdbID,
		MediaType:       mediaType,
		Title:           r.Title,
		PosterPath:      poster,
		Rating:          r.Rating,
		Review:          r.Review,
		LanguageWatched: r.LanguageWatched,
		WatchedAt:       r.WatchedAt,
		CreatedAt:       r.CreatedAt,
	}
}

// MatchesUser reports whether the record belongs to the given account.
// Legacy entries were sometimes keyed by username rather than user id.
func (r RawLog) MatchesUser(userID, username string) bool {
	if string(r.UserID) != "" {
		return string(r.UserID) == userID
	}
	return r.Username != "" && r.Username == username
}

// ListItem is a watchlist or favorites entry. Identity within a list is the
// (ID, UserID) pair; one collection holds entries for all users.
type ListItem struct {
	ID      FlexID `json:"id"`
	UserID  FlexID `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Poster  string `json:"poster,omitempty"`
	AddedAt string `json:"addedAt,omitempty"`
}

// Group is a discussion group with its ordered message history. Membership
// always includes the creator.
type Group struct {
	ID             FlexID         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	CreatorID      FlexID         `json:"creatorId"`
	CreatorName    string         `json:"creatorName,omitempty"`
	Members        IDList         `json:"members"`
	MemberCount    int            `json:"memberCount,omitempty"`
	Messages       []GroupMessage `json:"messages,omitempty"`
	RecentMessages []GroupMessage `json:"recentMessages,omitempty"`
	CreatedAt      string         `json:"createdAt,omitempty"`
}

// AllMessages returns whichever message list the record carries; the remote
// detail endpoint uses recentMessages, local records use messages.
func (g Group) AllMessages() []GroupMessage {
	if len(g.RecentMessages) > 0 {
		return g.RecentMessages
	}
	return g.Messages
}

type GroupMessage struct {
	ID         FlexID `json:"id"`
	SenderID   FlexID `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
}

// PendingRegistration holds an unverified signup with its one-time code.
// At most one exists per email; re-registering replaces it.
type PendingRegistration struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Code         string    `json:"otp"`
	ExpiresAt    time.Time `json:"otpExpiry"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (p PendingRegistration) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// AuthResponse is the backend's auth payload shape.
type AuthResponse struct {
	Token          string `json:"token"`
	UserID         FlexID `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	EmailVerified  bool   `json:"emailVerified"`
	RequiresOTP    bool   `json:"requiresOtp"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

// AdminStats is the dashboard stat block.
type AdminStats struct {
	TotalUsers     int `json:"totalUsers"`
	ActiveUsers    int `json:"activeUsers"`
	TotalLogs      int `json:"totalLogs"`
	PendingReports int `json:"pendingReports"`
}

// ParseIntID converts a string id to int where a numeric id is required.
func ParseIntID(id string) (int, bool) {
	n, err := strconv.Atoi(id)
	return n, err == nil
}
