package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup; main passes the typed sections to the
// components that need them.
type Config struct {
	Server    Server
	Auth      Auth
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Provider  ProviderConfig
	Wallet    WalletConfig
	RateLimit RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string
	// AdminTokenHash is the bcrypt hash of the back-office token. When only
	// AdminToken is set the server hashes it at startup.
	AdminTokenHash  string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	LogLevel        string
}

type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// PostgresConfig selects the durable stores. An empty DSN runs everything in memory.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL             string
	PoolSize        int
	MinIdleConns    int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	BalanceCacheTTL time.Duration
}

// KafkaConfig enables the audit relay when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// ProviderConfig points at the compliance/banking provider. An empty BaseURL
// uses the in-process sandbox.
type ProviderConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxRetries       uint64
	WebhookSecret    string
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Sandbox behaviour, used only when BaseURL is empty.
	SandboxAutoApprove  bool
	SandboxAutoVerify   bool
	SandboxInitialFunds int
}

type WalletConfig struct {
	// Sandbox provisions provider virtual accounts instead of wallet accounts.
	Sandbox             bool
	DestinationChain    string
	DestinationCurrency string
	DestinationAddress  string
}

// RateLimitConfig sets the sliding window quotas. A zero request count
// disables that limiter.
type RateLimitConfig struct {
	Disabled        bool
	AccountRequests int
	WebhookRequests int
	Window          time.Duration
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return d
	}
	num := func(key string, def int) int {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return n
	}

	cfg := Config{
		Server: Server{
			Addr:            getenv("WALLETGATE_ADDR", ":8080"),
			AdminToken:      os.Getenv("ADMIN_TOKEN"),
			AdminTokenHash:  os.Getenv("ADMIN_TOKEN_HASH"),
			ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", 15*time.Second),
			ReadTimeout:     dur("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    dur("HTTP_WRITE_TIMEOUT", 30*time.Second),
			LogLevel:        getenv("LOG_LEVEL", "info"),
		},
		Auth: Auth{
			// Development default; override in every deployed environment.
			JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        getenv("JWT_ISSUER", "walletgate"),
			Audience:      getenv("JWT_AUDIENCE", "walletgate"),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: num("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: num("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:             os.Getenv("REDIS_URL"),
			PoolSize:        num("REDIS_POOL_SIZE", 10),
			MinIdleConns:    num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:     dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
			BalanceCacheTTL: dur("BALANCE_CACHE_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getenv("KAFKA_AUDIT_TOPIC", "walletgate.audit"),
		},
		Provider: ProviderConfig{
			BaseURL:          os.Getenv("PROVIDER_BASE_URL"),
			APIKey:           os.Getenv("PROVIDER_API_KEY"),
			Timeout:          dur("PROVIDER_TIMEOUT", 10*time.Second),
			MaxRetries:       uint64(num("PROVIDER_MAX_RETRIES", 3)),
			WebhookSecret:    getenv("PROVIDER_WEBHOOK_SECRET", "dev-webhook-secret"),
			BreakerThreshold: num("PROVIDER_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  dur("PROVIDER_BREAKER_COOLDOWN", 30*time.Second),

			SandboxAutoApprove:  os.Getenv("SANDBOX_AUTO_APPROVE") == "true",
			SandboxAutoVerify:   os.Getenv("SANDBOX_AUTO_VERIFY") == "true",
			SandboxInitialFunds: num("SANDBOX_INITIAL_FUNDS_CENTS", 0),
		},
		Wallet: WalletConfig{
			Sandbox:             os.Getenv("WALLET_SANDBOX") == "true",
			DestinationChain:    getenv("LIQUIDATION_DEST_CHAIN", "ethereum"),
			DestinationCurrency: getenv("LIQUIDATION_DEST_CURRENCY", "usdc"),
			DestinationAddress:  os.Getenv("LIQUIDATION_DEST_ADDRESS"),
		},
		RateLimit: RateLimitConfig{
			Disabled:        os.Getenv("RATE_LIMIT_DISABLED") == "true",
			AccountRequests: num("RATE_LIMIT_ACCOUNT_REQUESTS", 120),
			WebhookRequests: num("RATE_LIMIT_WEBHOOK_REQUESTS", 600),
			Window:          dur("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
