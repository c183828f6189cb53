package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration read from the environment.
// Domain configuration (CRI registry, CI policy, feature flags) lives in
// YAML files whose paths are set here.
type Server struct {
	Addr        string
	LogLevel    string
	ComponentID string

	// BackendSessionTimeout moves a journey to the timeout journey once the
	// session is older than this.
	BackendSessionTimeout time.Duration
	SessionTTL            time.Duration
	CriOAuthTTL           time.Duration

	// CallbackURL is the redirect_uri sent to every CRI.
	CallbackURL string
	CiStoreURL  string

	// Signing: a local PEM key for development or a KMS key in deployments.
	SigningKeyPath string
	KMSKeyID       string
	SigningKeyID   string

	CriConfigPath    string
	CiPolicyPath     string
	FeatureFlagsPath string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
}

// RateLimitConfig sets per-IP budgets per minute for the public routes.
type RateLimitConfig struct {
	Disabled          bool
	SessionPerMinute  int
	CallbackPerMinute int
	JourneyPerMinute  int
}

// RedisConfig configures the session store client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures async credential intake and the audit relay.
type KafkaConfig struct {
	Brokers       []string
	Group         string
	AsyncTopic    string
	RetryTopic    string
	DLQTopic      string
	MaxAttempts   int
	AuditJourney  string
	AuditIdentity string
	AuditCred     string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envOr("IPVCORE_ADDR", ":8080"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		ComponentID: envOr("COMPONENT_ID", "https://identity.local"),

		BackendSessionTimeout: envDuration("BACKEND_SESSION_TIMEOUT", time.Hour),
		SessionTTL:            envDuration("SESSION_TTL", 2*time.Hour),
		CriOAuthTTL:           envDuration("CRI_OAUTH_TTL", time.Hour),

		CallbackURL: envOr("CORE_CALLBACK_URL", "http://localhost:3000/credential-issuer/callback"),
		CiStoreURL:  os.Getenv("CI_STORE_URL"),

		SigningKeyPath: os.Getenv("SIGNING_KEY_PATH"),
		KMSKeyID:       os.Getenv("SIGNING_KMS_KEY_ID"),
		SigningKeyID:   envOr("SIGNING_KEY_ID", "core-signing-key"),

		CriConfigPath:    envOr("CRI_CONFIG_PATH", "configs/cris.yaml"),
		CiPolicyPath:     envOr("CI_POLICY_PATH", "configs/ci_policy.yaml"),
		FeatureFlagsPath: envOr("FEATURE_FLAGS_PATH", "configs/features.yaml"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 20),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("KAFKA_BROKERS"),
			Group:         envOr("KAFKA_GROUP", "ipvcore-async-cri"),
			AsyncTopic:    envOr("KAFKA_ASYNC_TOPIC", "cri.async.responses"),
			RetryTopic:    envOr("KAFKA_RETRY_TOPIC", "cri.async.responses.retry"),
			DLQTopic:      envOr("KAFKA_DLQ_TOPIC", "cri.async.responses.dlq"),
			MaxAttempts:   envInt("KAFKA_MAX_ATTEMPTS", 3),
			AuditJourney:  envOr("KAFKA_AUDIT_JOURNEY_TOPIC", "audit.journey"),
			AuditIdentity: envOr("KAFKA_AUDIT_IDENTITY_TOPIC", "audit.identity"),
			AuditCred:     envOr("KAFKA_AUDIT_CREDENTIAL_TOPIC", "audit.credential"),
		},
		RateLimit: RateLimitConfig{
			Disabled:          os.Getenv("RATE_LIMIT_DISABLED") == "true",
			SessionPerMinute:  envInt("RATE_LIMIT_SESSION_PER_MINUTE", 30),
			CallbackPerMinute: envInt("RATE_LIMIT_CALLBACK_PER_MINUTE", 30),
			JourneyPerMinute:  envInt("RATE_LIMIT_JOURNEY_PER_MINUTE", 120),
		},
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
