package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Firebase
	FirebaseProjectID string

	// Workflow-automation webhooks
	AnalyzeWebhookURL     string
	CoverLetterWebhookURL string
	ImproveCVWebhookURL   string
	ChatbotWebhookURL     string

	// Google Analytics (Data API reads + Measurement Protocol writes)
	GAPropertyID    string
	GAClientEmail   string
	GAPrivateKey    string
	GAMeasurementID string
	GAAPISecret     string

	// Rate Limiting
	RateLimitRPS int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists (development only)
	loadEnvFile(".env")

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),

		AnalyzeWebhookURL:     getEnv("ANALYZE_WEBHOOK_URL", "https://n8n.connectorzzz.com/webhook/getData"),
		CoverLetterWebhookURL: getEnv("COVER_LETTER_WEBHOOK_URL", "https://n8n.connectorzzz.com/webhook/cover-letter"),
		ImproveCVWebhookURL:   getEnv("IMPROVE_CV_WEBHOOK_URL", "https://n8n.connectorzzz.com/webhook/improve-cv"),
		ChatbotWebhookURL:     getEnv("CHATBOT_WEBHOOK_URL", "https://n8n.connectorzzz.com/webhook/chatbot"),

		GAPropertyID:    getEnv("GA_PROPERTY_ID", ""),
		GAClientEmail:   getEnv("GOOGLE_ANALYTICS_CLIENT_EMAIL", ""),
		GAPrivateKey:    normalizePrivateKey(getEnv("GOOGLE_ANALYTICS_PRIVATE_KEY", "")),
		GAMeasurementID: getEnv("GA_MEASUREMENT_ID", ""),
		GAAPISecret:     getEnv("GA_API_SECRET", ""),

		RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 10),
		AllowedOrigins: []string{
			"http://localhost:3000",
			"https://advisor.connectorzzz.com",
		},
	}

	if cfg.ChatbotWebhookURL == "" {
		return nil, fmt.Errorf("CHATBOT_WEBHOOK_URL is required")
	}

	return cfg, nil
}

// HasAnalyticsCredentials reports whether the Data API read side is usable.
func (c *Config) HasAnalyticsCredentials() bool {
	return c.GAClientEmail != "" && c.GAPrivateKey != "" && c.GAPropertyID != ""
}

// normalizePrivateKey restores real newlines in a key pasted through an env
// var, where they usually arrive as literal \n sequences.
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// loadEnvFile reads a .env file and sets environment variables.
// Silently skips if the file doesn't exist (production uses real env vars).
func loadEnvFile(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on first = sign
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't overwrite existing env vars (real env takes precedence)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
