package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort        string
	DatabaseDriver  string
	DatabaseURL     string
	DBPoolSize      int
	RedisURL        string
	RedisPoolSize   int
	CacheTTL        int // seconds
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaPartitions int

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	SecretKey         string
	SessionLifetime   time.Duration

	ForceHTTPS     bool
	TLSCert        string
	TLSKey         string
	TrustedProxies []string // empty: client IP is the socket peer

	MetricsEnabled bool
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = Load()
	})
	return cfg
}

// Load reads a fresh Config from the environment.
func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "7666"),
		DatabaseDriver:  getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:     getEnv("DATABASE_URL", "shopping_list.db"),
		DBPoolSize:      getIntEnv("DB_POOL_SIZE", 10),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPoolSize:   getIntEnv("REDIS_POOL_SIZE", 20),
		CacheTTL:        getIntEnv("CACHE_TTL_SEC", 300),
		KafkaBrokers:    getSliceEnv("KAFKA_BROKERS"),
		KafkaTopic:      getEnv("KAFKA_ITEM_TOPIC", "shopping-item-events"),
		KafkaPartitions: getIntEnv("KAFKA_PARTITIONS", 1),

		AdminUsername:     getEnv("SHOPPING_USERNAME", "admin"),
		AdminPassword:     getEnv("SHOPPING_PASSWORD", "password123"),
		AdminPasswordHash: os.Getenv("SHOPPING_PASSWORD_HASH"),
		SecretKey:         getEnv("SECRET_KEY", randomSecret()),
		SessionLifetime:   time.Duration(getIntEnv("SESSION_LIFETIME_SEC", 86400)) * time.Second,

		ForceHTTPS:     getBoolEnv("FORCE_HTTPS", true),
		TLSCert:        getEnv("SSL_CERT", "certs/cert.pem"),
		TLSKey:         getEnv("SSL_KEY", "certs/key.pem"),
		TrustedProxies: getSliceEnv("TRUSTED_PROXIES"),

		MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
	}
}

// RedisEnabled reports whether a Redis URL was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// KafkaEnabled reports whether any Kafka broker was configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// randomSecret is used when SECRET_KEY is unset; sessions then do not survive a restart.
func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("config: failed to generate secret key: " + err.Error())
	}
	return hex.EncodeToString(b)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getSliceEnv(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
