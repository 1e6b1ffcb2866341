package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup from the environment.
type Config struct {
	DBPath         string        // BLOG_DB_PATH
	BindAddress    string        // BIND_ADDRESS
	RedisURL       string        // REDIS_URL, caching is off when empty
	CacheTTL       time.Duration // CACHE_TTL
	AllowedOrigins []string      // CORS_ALLOWED_ORIGINS, comma separated
	RateLimit      int           // RATE_LIMIT, requests per minute per client IP
	TrustedProxies []string      // TRUSTED_PROXIES, IPs or CIDRs allowed to set X-Forwarded-For
	DebugMode      bool          // DEBUG_MODE, exposes /debug/pprof
}

func Default() *Config {
	return &Config{
		DBPath:         "blog.db",
		BindAddress:    ":8000",
		CacheTTL:       10 * time.Minute,
		AllowedOrigins: []string{"http://localhost:8000"},
		RateLimit:      60,
	}
}

// Load returns the defaults overridden by any environment variables that are set.
func Load() (*Config, error) {
	cfg := Default()

	readEnvString("BLOG_DB_PATH", &cfg.DBPath)
	readEnvString("BIND_ADDRESS", &cfg.BindAddress)
	readEnvString("REDIS_URL", &cfg.RedisURL)
	readEnvList("CORS_ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	readEnvList("TRUSTED_PROXIES", &cfg.TrustedProxies)
	readEnvBool("DEBUG_MODE", &cfg.DebugMode)
	if err := readEnvInt("RATE_LIMIT", &cfg.RateLimit); err != nil {
		return nil, err
	}
	if err := readEnvDuration("CACHE_TTL", &cfg.CacheTTL); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		return nil, errors.New("database path (BLOG_DB_PATH) must not be empty")
	}
	if cfg.RateLimit <= 0 {
		return nil, errors.New("RATE_LIMIT must be positive")
	}
	return cfg, nil
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvList(name string, value *[]string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*value = items
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return errors.New(name + " must be an integer: " + err.Error())
	}
	*value = i
	return nil
}

func readEnvDuration(name string, value *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.New(name + " must be a duration: " + err.Error())
	}
	*value = d
	return nil
}
