package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Messenger (Graph API) configuration
	PageAccessToken string
	VerifyToken     string
	AppSecret       string
	GraphAPIBase    string
	SendRate        float64
	SendBurst       int

	// Dialogflow configuration
	GoogleProjectID       string
	LanguageCode          string
	GoogleClientEmail     string
	GooglePrivateKey      string
	GoogleCredentialsFile string

	// Booking backend configuration
	BookingBackendURL string
	BookingTimeout    time.Duration

	// Response pacing and event handling
	PacingInterval time.Duration
	EventTimeout   time.Duration

	// Session store configuration
	SessionStore  string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Inbound webhook rate limit (requests/sec per client IP)
	WebhookRate  float64
	WebhookBurst int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "5000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PageAccessToken: getEnv("FB_PAGE_TOKEN", ""),
		VerifyToken:     getEnv("FB_VERIFY_TOKEN", ""),
		AppSecret:       getEnv("FB_APP_SECRET", ""),
		GraphAPIBase:    getEnv("FB_GRAPH_API_BASE", "https://graph.facebook.com/v18.0"),
		SendRate:        getEnvAsFloat("FB_SEND_RATE", 20),
		SendBurst:       getEnvAsInt("FB_SEND_BURST", 10),

		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		LanguageCode:          getEnv("DF_LANGUAGE_CODE", "en"),
		GoogleClientEmail:     getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GooglePrivateKey:      normalizePrivateKey(getEnv("GOOGLE_PRIVATE_KEY", "")),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		BookingBackendURL: getEnv("BOOKING_BACKEND_URL", "https://nexus-hotel-bot-backend.herokuapp.com"),
		BookingTimeout:    getEnvAsDuration("BOOKING_TIMEOUT", 15*time.Second),

		PacingInterval: getEnvAsDuration("PACING_INTERVAL", 1100*time.Millisecond),
		EventTimeout:   getEnvAsDuration("EVENT_TIMEOUT", 30*time.Second),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 0),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WebhookRate:  getEnvAsFloat("WEBHOOK_RATE", 50),
		WebhookBurst: getEnvAsInt("WEBHOOK_BURST", 100),
	}
}

// Validate reports every missing required setting in one error.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		key   string
		value string
	}{
		{"FB_PAGE_TOKEN", c.PageAccessToken},
		{"FB_VERIFY_TOKEN", c.VerifyToken},
		{"FB_APP_SECRET", c.AppSecret},
		{"GOOGLE_PROJECT_ID", c.GoogleProjectID},
		{"DF_LANGUAGE_CODE", c.LanguageCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, errors.New("config: missing "+r.key))
		}
	}
	if c.GoogleCredentialsFile == "" && (c.GoogleClientEmail == "" || c.GooglePrivateKey == "") {
		errs = append(errs, errors.New("config: missing GOOGLE_CLIENT_EMAIL/GOOGLE_PRIVATE_KEY or GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch c.SessionStore {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("config: SESSION_STORE=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, errors.New("config: unknown SESSION_STORE "+strconv.Quote(c.SessionStore)))
	}
	return errors.Join(errs...)
}

// normalizePrivateKey turns literal "\n" sequences (common when the PEM is
// pasted into a single-line env var) back into newlines.
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
