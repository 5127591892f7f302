package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

// Assistant providers.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	StorageBackend string
	DatabasePath   string
	StoragePath    string
	Location       *time.Location

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64

	Port string
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[cfg] ignoring .env: %v", err)
	}

	get := func(k, def string) string {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
		return def
	}

	storageBackend := get("HYDROTRACK_STORAGE", StorageSQLite)
	if storageBackend != StorageSQLite && storageBackend != StorageFile {
		return nil, fmt.Errorf("HYDROTRACK_STORAGE must be %q or %q, got %q", StorageSQLite, StorageFile, storageBackend)
	}

	loc := time.Local
	if tz := os.Getenv("TZ_NAME"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ_NAME %q: %w", tz, err)
		}
		loc = l
	}

	provider := get("LLM_PROVIDER", ProviderGemini)
	if provider != ProviderGemini && provider != ProviderGroq {
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderGroq, provider)
	}

	// Telegram Config (Optional for CLI, required for Bot)
	var allowed []int64
	if raw := os.Getenv("TELEGRAM_ALLOW_USER_ID"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_ID entry %q: %w", part, err)
			}
			allowed = append(allowed, id)
		}
	}

	return &Config{
		StorageBackend:         storageBackend,
		DatabasePath:           get("DATABASE_PATH", "data/hydrotrack.db"),
		StoragePath:            get("STORAGE_PATH", "data/state"),
		Location:               loc,
		LLMProvider:            provider,
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiModel:            get("GEMINI_MODEL", "gemini-2.0-flash"),
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		GroqModel:              get("GROQ_MODEL", "llama-3.3-70b-versatile"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		Port:                   get("PORT", "8080"),
	}, nil
}

// RequireAssistant checks that the selected assistant provider has a key.
func (c *Config) RequireAssistant() error {
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	}
	return nil
}

// RequireTelegram checks the settings the bot cannot start without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if len(c.TelegramAllowedUserIDs) == 0 {
		return fmt.Errorf("TELEGRAM_ALLOW_USER_ID environment variable not set")
	}
	return nil
}
