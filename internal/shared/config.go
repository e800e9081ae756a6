package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// EnvFiles are loaded (without overriding the process environment) before reading config.
var EnvFiles = []string{".env.local", ".env"}

type Config struct {
	AppEnv       string
	LogLevel     string
	HTTPAddr     string
	MetricsAddr  string
	MySQLDSN     string // empty disables the property catalog
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	CacheTTL     time.Duration
	AnthropicKey string
	AnthropicURL string
	Model        string
	ContentDir   string
	CampaignFile string
	FeedJSONURL  string
	FeedXMLURL   string
	SiteAPIURL   string
	FeedTimeout  time.Duration
	LLMTimeout   time.Duration
	LLMRetries   int
	RateCalls    int
	RateWindow   time.Duration
	Kinds        []string
	Workers      int     // concurrent catalog upserts
	PriceInput   float64 // USD per million input tokens
	PriceOutput  float64 // USD per million output tokens
}

func Load() Config {
	loadEnvFiles()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		LogLevel:     env("LOG_LEVEL", "info"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		MySQLDSN:     env("MYSQL_DSN", ""),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		AnthropicKey: env("ANTHROPIC_API_KEY", ""),
		AnthropicURL: env("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		Model:        env("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		ContentDir:   env("CONTENT_DIR", "src/content"),
		CampaignFile: env("CAMPAIGN_FILE", ""),
		FeedJSONURL:  env("FEED_JSON_URL", ""),
		FeedXMLURL:   env("FEED_XML_URL", ""),
		SiteAPIURL:   env("SITE_API_URL", ""),
		FeedTimeout:  time.Duration(atoi("FEED_TIMEOUT_SECONDS", 60)) * time.Second,
		LLMTimeout:   time.Duration(atoi("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		LLMRetries:   atoi("LLM_MAX_RETRIES", 1),
		RateCalls:    atoi("RATE_LIMIT_CALLS", 1),
		RateWindow:   time.Duration(atoi("RATE_LIMIT_WINDOW_SECONDS", 1)) * time.Second,
		Kinds:        splitList(env("GENERATE_KINDS", "property")),
		Workers:      atoi("CATALOG_WORKERS", 8),
		PriceInput:   atof("PRICE_INPUT_PER_MTOK", 3),
		PriceOutput:  atof("PRICE_OUTPUT_PER_MTOK", 15),
	}
	if c.AnthropicKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY is empty")
	}
	return c
}

func loadEnvFiles() {
	for _, f := range EnvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("env file not loaded")
		}
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
