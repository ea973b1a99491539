package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all startup configuration. It is read once; nothing re-reads
// the environment after Load.
type Config struct {
	BackendURL string
	UseBackend bool
	DBPath     string
	TMDB       TMDBConfig
	LogLevel   string
}

// TMDBConfig holds the metadata API configuration.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
}

// Load reads configuration from environment variables.
func Load() *Config {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	useBackend, err := strconv.ParseBool(getEnv("BMF_USE_BACKEND", "true"))
	if err != nil {
		useBackend = true
	}

	return &Config{
		BackendURL: getEnv("BMF_BACKEND_URL", "http://localhost:8080/api"),
		UseBackend: useBackend,
		DBPath:     getEnv("BMF_DB_PATH", "./beastmovieflix.db"),
		TMDB: TMDBConfig{
			APIKey:  getEnv("TMDB_API_KEY", ""),
			BaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
