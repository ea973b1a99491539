package tmdb

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrending(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/all/week", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-31"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	res, err := c.Trending("everything", "fortnight") // bad values fall back to all/week
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "The Matrix", res.Results[0].DisplayTitle())
}

func TestSearchMulti(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		assert.Equal(t, "matrix", r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1438,"name":"The Matrix Show","first_air_date":"2003-01-01","media_type":"tv"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	res, err := c.SearchMulti("matrix", 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "The Matrix Show", res.Results[0].DisplayTitle())
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", srv.URL)
	_, err := c.SearchMulti("matrix", 1)
	assert.ErrorContains(t, err, "status 401")
}

func TestGetMovieDetails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-31","runtime":136,"tagline":"Welcome to the Real World.","status":"Released","genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	m, err := c.GetMovieDetails(603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", m.DisplayTitle())
	assert.Equal(t, 136, m.Runtime)
	assert.Equal(t, "Welcome to the Real World.", m.Tagline)
	require.Len(t, m.Genres, 2)
	assert.Equal(t, "Action", m.Genres[0].Name)
}

func TestGetTVDetails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1438", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1438,"name":"The Wire","first_air_date":"2002-06-02","number_of_seasons":5,"number_of_episodes":60,"status":"Ended","genres":[{"id":80,"name":"Crime"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	show, err := c.GetTVDetails(1438)
	require.NoError(t, err)
	assert.Equal(t, "The Wire", show.DisplayTitle())
	assert.Equal(t, 5, show.NumberOfSeasons)
	assert.Equal(t, 60, show.NumberOfEpisodes)
	assert.Equal(t, "Ended", show.Status)
}

func TestGetPersonDetails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/person/6384", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":6384,"name":"Keanu Reeves","birthday":"1964-09-02","place_of_birth":"Beirut, Lebanon","known_for_department":"Acting","biography":"Canadian actor."}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	p, err := c.GetPersonDetails(6384)
	require.NoError(t, err)
	assert.Equal(t, "Keanu Reeves", p.Name)
	assert.Equal(t, "1964-09-02", p.Birthday)
	assert.Equal(t, "Acting", p.KnownForDepartment)
}

func TestGetPosterURL(t *testing.T) {
	t.Parallel()

	c := NewClient("k", "")
	path := "/abc.jpg"
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", c.GetPosterURL(&path, ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w185/abc.jpg", c.GetPosterURL(&path, "w185"))
	assert.Empty(t, c.GetPosterURL(nil, "w500"))
}

func TestExtractYear(t *testing.T) {
	t.Parallel()

	year := ExtractYear("1999-03-31")
	require.NotNil(t, year)
	assert.Equal(t, 1999, *year)

	assert.Nil(t, ExtractYear(""))
	assert.Nil(t, ExtractYear("unknown"))
}
