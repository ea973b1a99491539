package tmdb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the third-party metadata API. Read-only; the app embeds a
// denormalized copy (title, poster, type) of what it returns at the moment
// a title is logged or listed.
type Client struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

type SearchResponse struct {
	Page         int         `json:"page"`
	Results      []MediaItem `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// MediaItem is a movie, TV show, or person from a multi-media listing.
// Movies carry title/release_date, TV carries name/first_air_date.
type MediaItem struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   *string `json:"poster_path"`
	ProfilePath  *string `json:"profile_path"`
	BackdropPath *string `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
}

// DisplayTitle returns whichever of title/name the record carries.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

type MovieDetails struct {
	MediaItem
	Runtime int     `json:"runtime"`
	Genres  []Genre `json:"genres"`
	Status  string  `json:"status"`
	Tagline string  `json:"tagline"`
}

type TVDetails struct {
	MediaItem
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Genres           []Genre `json:"genres"`
	Status           string  `json:"status"`
}

type PersonDetails struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	Biography          string  `json:"biography"`
	Birthday           string  `json:"birthday"`
	PlaceOfBirth       string  `json:"place_of_birth"`
	KnownForDepartment string  `json:"known_for_department"`
	ProfilePath        *string `json:"profile_path"`
	Popularity         float64 `json:"popularity"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) makeRequest(endpoint string, params map[string]string) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	query := u.Query()
	query.Set("api_key", c.APIKey)

	for key, value := range params {
		query.Set(key, value)
	}

	u.RawQuery = query.Encode()

	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	return resp, nil
}

// Trending lists trending titles. mediaType is "all", "movie", or "tv";
// timeWindow is "day" or "week".
func (c *Client) Trending(mediaType, timeWindow string) (*SearchResponse, error) {
	if mediaType != "movie" && mediaType != "tv" {
		mediaType = "all"
	}
	if timeWindow != "day" && timeWindow != "week" {
		timeWindow = "week"
	}

	endpoint := fmt.Sprintf("/trending/%s/%s", mediaType, timeWindow)

	resp, err := c.makeRequest(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("trending request failed: %w", err)
	}
	defer resp.Body.Close()

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode trending response: %w", err)
	}

	return &searchResp, nil
}

// SearchMulti searches movies, TV shows, and people in one query.
func (c *Client) SearchMulti(query string, page int) (*SearchResponse, error) {
	if page <= 0 {
		page = 1
	}

	params := map[string]string{
		"query": query,
		"page":  strconv.Itoa(page),
	}

	resp, err := c.makeRequest("/search/multi", params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &searchResp, nil
}

// GetMovieDetails gets detailed information about a specific movie
func (c *Client) GetMovieDetails(tmdbID int) (*MovieDetails, error) {
	endpoint := fmt.Sprintf("/movie/%d", tmdbID)

	resp, err := c.makeRequest(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("movie details request failed: %w", err)
	}
	defer resp.Body.Close()

	var movie MovieDetails
	if err := json.NewDecoder(resp.Body).Decode(&movie); err != nil {
		return nil, fmt.Errorf("failed to decode movie details: %w", err)
	}

	return &movie, nil
}

// GetTVDetails gets detailed information about a specific TV show
func (c *Client) GetTVDetails(tmdbID int) (*TVDetails, error) {
	endpoint := fmt.Sprintf("/tv/%d", tmdbID)

	resp, err := c.makeRequest(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tv details request failed: %w", err)
	}
	defer resp.Body.Close()

	var show TVDetails
	if err := json.NewDecoder(resp.Body).Decode(&show); err != nil {
		return nil, fmt.Errorf("failed to decode tv details: %w", err)
	}

	return &show, nil
}

// GetPersonDetails gets detailed information about a person
func (c *Client) GetPersonDetails(personID int) (*PersonDetails, error) {
	endpoint := fmt.Sprintf("/person/%d", personID)

	resp, err := c.makeRequest(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("person details request failed: %w", err)
	}
	defer resp.Body.Close()

	var person PersonDetails
	if err := json.NewDecoder(resp.Body).Decode(&person); err != nil {
		return nil, fmt.Errorf("failed to decode person details: %w", err)
	}

	return &person, nil
}

// GetPosterURL generates the full URL for a poster image
func (c *Client) GetPosterURL(posterPath *string, size string) string {
	if posterPath == nil || *posterPath == "" {
		return ""
	}

	if size == "" {
		size = "w500" // Default poster size
	}

	return fmt.Sprintf("https://image.tmdb.org/t/p/%s%s", size, *posterPath)
}

// Helper function to extract year from release date
func ExtractYear(releaseDate string) *int {
	if releaseDate == "" {
		return nil
	}

	parts := strings.Split(releaseDate, "-")
	if len(parts) == 0 {
		return nil
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}

	return &year
}
