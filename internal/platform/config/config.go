package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PolicyAPIURL is the base URL of the personal-accidents policy repository.
	PolicyAPIURL string

	// Telegram audit channel settings. The bot token is required for claim
	// submission; the chat ID selects the receipts group.
	BotToken      string
	ReceiptChatID string

	// RedisURL enables the policy lookup cache when set. Empty disables caching.
	RedisURL string

	// PolicyCacheTTL bounds how stale a cached policy lookup may be.
	PolicyCacheTTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CLAIMFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	apiURL := os.Getenv("POLICY_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:9090/personal-accidents"
	}

	ttl := 5 * time.Minute
	if raw := os.Getenv("POLICY_CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			ttl = parsed
		}
	}

	return Server{
		Addr:           addr,
		PolicyAPIURL:   apiURL,
		BotToken:       os.Getenv("BOT_TOKEN"),
		ReceiptChatID:  os.Getenv("RECEIPT_GROUP_ID"),
		RedisURL:       os.Getenv("REDIS_URL"),
		PolicyCacheTTL: ttl,
	}
}
