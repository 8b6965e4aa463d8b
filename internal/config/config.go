package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes configuration values to the rest of the application.
// Components depend on this interface rather than on *Config so tests can
// substitute their own values.
type Provider interface {
	GetServerAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string

	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetAuthTokenSecret() string
	GetAuthTokenTTL() time.Duration

	GetEmailProvider() string
	GetEmailSender() string
	GetEmailAPIKey() string

	GetPushProvider() string
	GetPushAppID() string
	GetPushAPIKey() string

	GetAIGatewayURL() string
	GetAIGatewayKey() string
	GetAIGatewayModel() string
	GetAIQuotaPerHour() int

	GetUnsplashAccessKey() string

	GetPlacesProvider() string
	GetGoogleMapsKey() string
	GetNominatimURL() string

	GetRedisURL() string
	GetStorageRoot() string
	GetCatalogPath() string
	GetScoringScriptPath() string

	GetRegenSchedule() string
	GetRegenBatchSize() int
	GetRegenMaxAttempts() int
	GetImageMatchThreshold() float64
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr    string
	AppBaseURL    string
	SessionSecret string

	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	AuthTokenSecret string
	AuthTokenTTL    time.Duration

	EmailProvider string
	EmailSender   string
	EmailAPIKey   string

	PushProvider string
	PushAppID    string
	PushAPIKey   string

	AIGatewayURL   string
	AIGatewayKey   string
	AIGatewayModel string
	AIQuotaPerHour int

	UnsplashAccessKey string

	PlacesProvider string
	GoogleMapsKey  string
	NominatimURL   string

	RedisURL          string
	StorageRoot       string
	CatalogPath       string
	ScoringScriptPath string

	RegenSchedule       string
	RegenBatchSize      int
	RegenMaxAttempts    int
	ImageMatchThreshold float64
}

var _ Provider = (*Config)(nil)

// New loads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment without
// touching any .env file.
func FromEnv() *Config {
	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		AppBaseURL:    strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		SessionSecret: getEnv("SESSION_SECRET", "dev-session-secret-change-me"),

		DBUrl:            os.Getenv("SURREAL_URL"),
		DBNs:             os.Getenv("SURREAL_NS"),
		DBDb:             os.Getenv("SURREAL_DB"),
		DBUser:           os.Getenv("SURREAL_USER"),
		DBPass:           os.Getenv("SURREAL_PASS"),
		DBQueryTimeout:   getDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		DBExecuteTimeout: getDuration("DB_EXECUTE_TIMEOUT", 10*time.Second),

		AuthTokenSecret: os.Getenv("AUTH_TOKEN_SECRET"),
		AuthTokenTTL:    getDuration("AUTH_TOKEN_TTL", 30*24*time.Hour),

		EmailProvider: getEnv("EMAIL_PROVIDER", "log"),
		EmailSender:   os.Getenv("EMAIL_SENDER"),
		EmailAPIKey:   os.Getenv("EMAIL_API_KEY"),

		PushProvider: getEnv("PUSH_PROVIDER", "log"),
		PushAppID:    os.Getenv("PUSH_APP_ID"),
		PushAPIKey:   os.Getenv("PUSH_API_KEY"),

		AIGatewayURL:   os.Getenv("AI_GATEWAY_URL"),
		AIGatewayKey:   os.Getenv("AI_GATEWAY_KEY"),
		AIGatewayModel: getEnv("AI_GATEWAY_MODEL", "google/gemini-2.5-flash-image-preview"),
		AIQuotaPerHour: getInt("AI_QUOTA_PER_HOUR", 20),

		UnsplashAccessKey: os.Getenv("UNSPLASH_ACCESS_KEY"),

		PlacesProvider: getEnv("PLACES_PROVIDER", "auto"),
		GoogleMapsKey:  os.Getenv("GOOGLE_MAPS_KEY"),
		NominatimURL:   getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),

		RedisURL:          os.Getenv("REDIS_URL"),
		StorageRoot:       getEnv("STORAGE_ROOT", "data/storage"),
		CatalogPath:       os.Getenv("CATALOG_PATH"),
		ScoringScriptPath: os.Getenv("SCORING_SCRIPT_PATH"),

		RegenSchedule:       getEnv("REGEN_SCHEDULE", "@every 1m"),
		RegenBatchSize:      getInt("REGEN_BATCH_SIZE", 10),
		RegenMaxAttempts:    getInt("REGEN_MAX_ATTEMPTS", 3),
		ImageMatchThreshold: getFloat("IMAGE_MATCH_THRESHOLD", 0.75),
	}
}

// Validate reports every required value that is missing.
func (c *Config) Validate() error {
	var errs []error
	if c.DBUrl == "" {
		errs = append(errs, errors.New("SURREAL_URL is required"))
	}
	if c.DBNs == "" {
		errs = append(errs, errors.New("SURREAL_NS is required"))
	}
	if c.DBDb == "" {
		errs = append(errs, errors.New("SURREAL_DB is required"))
	}
	if c.AuthTokenSecret == "" {
		errs = append(errs, errors.New("AUTH_TOKEN_SECRET is required"))
	}
	if c.RegenBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("REGEN_BATCH_SIZE must be positive, got %d", c.RegenBatchSize))
	}
	return errors.Join(errs...)
}

func (c *Config) GetServerAddr() string    { return c.ServerAddr }
func (c *Config) GetAppBaseURL() string    { return c.AppBaseURL }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }

func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }

func (c *Config) GetAuthTokenSecret() string     { return c.AuthTokenSecret }
func (c *Config) GetAuthTokenTTL() time.Duration { return c.AuthTokenTTL }

func (c *Config) GetEmailProvider() string { return c.EmailProvider }
func (c *Config) GetEmailSender() string   { return c.EmailSender }
func (c *Config) GetEmailAPIKey() string   { return c.EmailAPIKey }

func (c *Config) GetPushProvider() string { return c.PushProvider }
func (c *Config) GetPushAppID() string    { return c.PushAppID }
func (c *Config) GetPushAPIKey() string   { return c.PushAPIKey }

func (c *Config) GetAIGatewayURL() string   { return c.AIGatewayURL }
func (c *Config) GetAIGatewayKey() string   { return c.AIGatewayKey }
func (c *Config) GetAIGatewayModel() string { return c.AIGatewayModel }
func (c *Config) GetAIQuotaPerHour() int    { return c.AIQuotaPerHour }

func (c *Config) GetUnsplashAccessKey() string { return c.UnsplashAccessKey }

func (c *Config) GetPlacesProvider() string { return c.PlacesProvider }
func (c *Config) GetGoogleMapsKey() string  { return c.GoogleMapsKey }
func (c *Config) GetNominatimURL() string   { return c.NominatimURL }

func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetStorageRoot() string       { return c.StorageRoot }
func (c *Config) GetCatalogPath() string       { return c.CatalogPath }
func (c *Config) GetScoringScriptPath() string { return c.ScoringScriptPath }

func (c *Config) GetRegenSchedule() string        { return c.RegenSchedule }
func (c *Config) GetRegenBatchSize() int          { return c.RegenBatchSize }
func (c *Config) GetRegenMaxAttempts() int        { return c.RegenMaxAttempts }
func (c *Config) GetImageMatchThreshold() float64 { return c.ImageMatchThreshold }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid integer for %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid number for %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
