package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreBackend string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MongoURI string
	MongoDB  string

	Sources        string
	RegionsFile    string
	RegionsPerRun  int
	RegionOffset   int
	PagesPerRegion int

	FetchPhotos      bool
	PhotoConcurrency int
	StaleHours       int
	MaxRetries       int

	CSVOutputPath string
	ChromeBin     string

	LogLevel   string
	FluentHost string
	FluentPort int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "postgres")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "properties_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "inmuebles"),

		Sources:        getEnv("SOURCES", ""),
		RegionsFile:    getEnv("REGIONS_FILE", ""),
		RegionsPerRun:  getEnvInt("REGIONS_PER_RUN", 10),
		RegionOffset:   getEnvInt("REGION_OFFSET", -1),
		PagesPerRegion: getEnvInt("PAGES_PER_REGION", 2),

		FetchPhotos:      getEnvBool("FETCH_PHOTOS", true),
		PhotoConcurrency: getEnvInt("PHOTO_CONCURRENCY", 5),
		StaleHours:       getEnvInt("STALE_HOURS", 48),
		MaxRetries:       getEnvInt("MAX_RETRIES", 5),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		FluentHost: getEnv("FLUENT_HOST", ""),
		FluentPort: getEnvInt("FLUENT_PORT", 24224),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
