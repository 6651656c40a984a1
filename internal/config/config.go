package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	SantimentAPIKey      string
	CoinMetricsAPIKey    string
	CryptoPanicAuthToken string
	OpenAIAPIKey         string
	OpenAIModel          string

	SantimentBaseURL   string
	CoinMetricsBaseURL string
	CryptoPanicBaseURL string
	FearGreedBaseURL   string
	OpenAIBaseURL      string

	// ProxyURL routes every upstream call through a proxy boundary
	// instead of calling the providers directly.
	ProxyURL string

	FetchTimeoutSecs      int
	RetryMaxAttempts      int
	RetryInitialDelaySecs int
	RetryMaxDelaySecs     int

	ProxyTimeoutSecs        int
	ProxyRateLimitPerMin    int
	RefreshPollSecs         int
	TrackedCoins            []string
	EventCoins              []string
	SentimentMarketFallback bool

	RedisURL string
	HTTPPort string
	LogLevel string

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPRequestTimeoutSecs int

	SSHPort        int
	SSHHostKeyPath string
}

var defaultTrackedCoins = []string{"BTC", "ETH", "SOL", "XRP", "ADA"}

func Load() *Config {
	cfg := &Config{
		SantimentAPIKey:      strings.TrimSpace(os.Getenv("SANTIMENT_API_KEY")),
		CoinMetricsAPIKey:    strings.TrimSpace(os.Getenv("COINMETRICS_API_KEY")),
		CryptoPanicAuthToken: strings.TrimSpace(os.Getenv("CRYPTOPANIC_AUTH_TOKEN")),
		OpenAIAPIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),

		SantimentBaseURL:   strings.TrimSpace(os.Getenv("SANTIMENT_BASE_URL")),
		CoinMetricsBaseURL: strings.TrimSpace(os.Getenv("COINMETRICS_BASE_URL")),
		CryptoPanicBaseURL: strings.TrimSpace(os.Getenv("CRYPTOPANIC_BASE_URL")),
		FearGreedBaseURL:   strings.TrimSpace(os.Getenv("FEARGREED_BASE_URL")),
		OpenAIBaseURL:      strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),

		ProxyURL: strings.TrimSpace(os.Getenv("PROXY_URL")),
		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
	}

	if cfg.SantimentAPIKey == "" {
		log.Println("Warning: SANTIMENT_API_KEY not set, live sentiment is disabled")
	}
	if cfg.CoinMetricsAPIKey == "" {
		log.Println("Warning: COINMETRICS_API_KEY not set, live on-chain data is disabled")
	}
	if cfg.CryptoPanicAuthToken == "" {
		log.Println("Warning: CRYPTOPANIC_AUTH_TOKEN not set, live events are disabled")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, AI estimates will be skipped")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, proxy rate limiting is disabled")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.FetchTimeoutSecs = positiveInt("FETCH_TIMEOUT_SECS", 20)
	cfg.RetryMaxAttempts = positiveInt("RETRY_MAX_ATTEMPTS", 3)
	cfg.RetryInitialDelaySecs = positiveInt("RETRY_INITIAL_DELAY_SECS", 60)
	cfg.RetryMaxDelaySecs = positiveInt("RETRY_MAX_DELAY_SECS", 300)
	if cfg.RetryMaxDelaySecs < cfg.RetryInitialDelaySecs {
		log.Printf("Warning: RETRY_MAX_DELAY_SECS=%d is below the initial delay, raising it", cfg.RetryMaxDelaySecs)
		cfg.RetryMaxDelaySecs = cfg.RetryInitialDelaySecs
	}

	cfg.ProxyTimeoutSecs = positiveInt("PROXY_TIMEOUT_SECS", 15)
	cfg.ProxyRateLimitPerMin = positiveInt("PROXY_RATE_LIMIT_PER_MIN", 60)
	cfg.RefreshPollSecs = positiveInt("REFRESH_POLL_SECS", 5)

	cfg.TrackedCoins = tickerList("TRACKED_COINS", defaultTrackedCoins)
	cfg.EventCoins = tickerList("EVENT_COINS", []string{"BTC", "ETH", "SOL"})

	cfg.SentimentMarketFallback = true
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_MARKET_FALLBACK")); v != "" {
		cfg.SentimentMarketFallback = !strings.EqualFold(v, "false")
	}

	cfg.HTTPPort = strings.TrimSpace(os.Getenv("HTTP_PORT"))
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}
	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 25)

	cfg.SSHPort = positiveInt("SSH_PORT", 2222)
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/id_ed25519"
	}

	return cfg
}

func positiveInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", name, v, def)
		return def
	}
	return n
}

func tickerList(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(v, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
