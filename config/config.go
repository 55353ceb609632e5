package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	S3       S3Config
	Places   PlacesConfig
	Scan     ScanConfig
	Trending TrendingConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// PlacesConfig configures the Google Places client.
type PlacesConfig struct {
	APIKey            string
	BaseURL           string
	CacheTTL          time.Duration // response cache TTL for successful calls
	SearchRatePerSec  float64       // token bucket refill rate for nearby search
	DetailsRatePerSec float64       // token bucket refill rate for place details
	MaxRetries        int
}

// ScanConfig configures the staleness-driven area scan pipeline.
type ScanConfig struct {
	GeohashPrecision   int
	StalenessThreshold time.Duration
	RadiusMeters       int
	WorkerConcurrency  int
	MaxAttempts        int
}

// TrendingConfig configures the trending score refresh job.
type TrendingConfig struct {
	CronSchedule  string
	BatchSize     int
	ScoreCacheTTL time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "plannery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "plannery-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Places: PlacesConfig{
			APIKey:            getEnv("GOOGLE_PLACES_API_KEY", ""),
			BaseURL:           getEnv("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
			CacheTTL:          parseDuration(getEnv("PLACES_CACHE_TTL", "24h"), 24*time.Hour),
			SearchRatePerSec:  parseFloat(getEnv("PLACES_SEARCH_RATE", "10"), 10),
			DetailsRatePerSec: parseFloat(getEnv("PLACES_DETAILS_RATE", "20"), 20),
			MaxRetries:        parseInt(getEnv("PLACES_MAX_RETRIES", "3"), 3),
		},
		Scan: ScanConfig{
			GeohashPrecision:   parseInt(getEnv("SCAN_GEOHASH_PRECISION", "7"), 7),
			StalenessThreshold: parseDuration(getEnv("SCAN_STALENESS_THRESHOLD", "168h"), 168*time.Hour),
			RadiusMeters:       parseInt(getEnv("SCAN_RADIUS_METERS", "1000"), 1000),
			WorkerConcurrency:  parseInt(getEnv("SCAN_WORKER_CONCURRENCY", "3"), 3),
			MaxAttempts:        parseInt(getEnv("SCAN_MAX_ATTEMPTS", "3"), 3),
		},
		Trending: TrendingConfig{
			CronSchedule:  getEnv("TRENDING_CRON", "0 * * * *"),
			BatchSize:     parseInt(getEnv("TRENDING_BATCH_SIZE", "500"), 500),
			ScoreCacheTTL: parseDuration(getEnv("TRENDING_SCORE_CACHE_TTL", "10m"), 10*time.Minute),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid float %s, using default %f", s, fallback)
		return fallback
	}
	return v
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
