package types

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIDDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want FlexID
	}{
		{"string", `"abc-123"`, "abc-123"},
		{"number", `42`, "42"},
		{"large number", `1717171717000`, "1717171717000"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var id FlexID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestIDListDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want IDList
	}{
		{"array of strings", `["a","b"]`, IDList{"a", "b"}},
		{"array of numbers", `[1,2]`, IDList{"1", "2"}},
		{"comma-joined string", `"a,b,c"`, IDList{"a", "b", "c"}},
		{"string with spaces", `"a, b"`, IDList{"a", "b"}},
		{"single id string", `"a"`, IDList{"a"}},
		{"empty string", `""`, IDList{}},
		{"null", `null`, nil},
		{"member objects", `[{"id":"a","username":"x"},{"id":2}]`, IDList{"a", "2"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var list IDList
			require.NoError(t, json.Unmarshal([]byte(tt.in), &list))
			assert.Equal(t, tt.want, list)
		})
	}
}

func TestIDListMarshalsAsArray(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(IDList{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(out))
}

func TestIDListContainsRemove(t *testing.T) {
	t.Parallel()

	list := IDList{"a", "b", "c"}
	assert.True(t, list.Contains("b"))
	assert.False(t, list.Contains("z"))

	removed := list.Remove("b")
	assert.Equal(t, IDList{"a", "c"}, removed)
	assert.Equal(t, IDList{"a", "c"}, removed.Remove("missing"))
}

func TestRawLogNormalize(t *testing.T) {
	t.Parallel()

	t.Run("legacy shape", func(t *testing.T) {
		t.Parallel()
		var r RawLog
		require.NoError(t, json.Unmarshal([]byte(
			`{"movieId":550,"type":"movie","title":"Fight Club","poster":"/f.jpg","username":"filmfan"}`,
		), &r))

		l := r.Normalize()
		assert.Equal(t, "550", l.ID)
		assert.Equal(t, "550", l.TMDBID)
		assert.Equal(t, "movie", l.MediaType)
		assert.Equal(t, "/f.jpg", l.PosterPath)
	})

	t.Run("current shape wins over legacy fields", func(t *testing.T) {
		t.Parallel()
		var r RawLog
		require.NoError(t, json.Unmarshal([]byte(
			`{"id":"log-1","tmdbId":603,"mediaType":"tv","posterPath":"/a.jpg","poster":"/b.jpg","title":"X"}`,
		), &r))

		l := r.Normalize()
		assert.Equal(t, "log-1", l.ID)
		assert.Equal(t, "603", l.TMDBID)
		assert.Equal(t, "tv", l.MediaType)
		assert.Equal(t, "/a.jpg", l.PosterPath)
	})

	t.Run("missing media type defaults to movie", func(t *testing.T) {
		t.Parallel()
		l := RawLog{Title: "X"}.Normalize()
		assert.Equal(t, MediaTypeMovie, l.MediaType)
	})
}

func TestRawLogMatchesUser(t *testing.T) {
	t.Parallel()

	byID := RawLog{UserID: "u1", Username: "stale-name"}
	assert.True(t, byID.MatchesUser("u1", "filmfan"))
	assert.False(t, byID.MatchesUser("u2", "stale-name")) // id wins over username

	byName := RawLog{Username: "filmfan"}
	assert.True(t, byName.MatchesUser("u1", "filmfan"))
	assert.False(t, byName.MatchesUser("u1", "otherfan"))

	assert.False(t, RawLog{}.MatchesUser("u1", "filmfan"))
}

func TestMovieLogWhenOrdering(t *testing.T) {
	t.Parallel()

	rfc := MovieLog{WatchedAt: "2024-05-01T10:00:00Z"}
	assert.Equal(t, 2024, rfc.When().Year())

	dateOnly := MovieLog{WatchedAt: "2023-01-15"}
	assert.Equal(t, 2023, dateOnly.When().Year())

	fallback := MovieLog{CreatedAt: "2022-03-03T08:00:00Z"}
	assert.Equal(t, 2022, fallback.When().Year())

	assert.True(t, MovieLog{}.When().IsZero())
}

func TestGroupAllMessages(t *testing.T) {
	t.Parallel()

	g := Group{
		Messages:       []GroupMessage{{Content: "local"}},
		RecentMessages: []GroupMessage{{Content: "remote"}},
	}
	assert.Equal(t, "remote", g.AllMessages()[0].Content)

	g.RecentMessages = nil
	assert.Equal(t, "local", g.AllMessages()[0].Content)
}
