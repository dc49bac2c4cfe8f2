package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes configuration values to components that should not depend
// on the concrete Config struct.
type Provider interface {
	GetGatewayURL() string
	GetMemberID() string
	GetMemberNick() string
	GetReconnectPolicy() ReconnectPolicy
	GetSendQueueSize() int
	GetPriceRange() (min, max int64)
	GetDefaultPageLimit() int
	GetServerAddr() string
	GetSessionSecret() string
	GetHistoryDB() string
	GetHistoryLimit() int
	GetPrefsPath() string
}

// ReconnectPolicy holds the bounded retry settings for the chat transport.
type ReconnectPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// Config holds all configuration for the application.
type Config struct {
	GatewayURL       string
	MemberID         string
	MemberNick       string
	Reconnect        ReconnectPolicy
	SendQueueSize    int
	PriceRangeMin    int64
	PriceRangeMax    int64
	DefaultPageLimit int
	ServerAddr       string
	SessionSecret    string
	HistoryDB        string
	HistoryLimit     int
	PrefsPath        string
}

// New loads configuration from the environment, reading a .env file first if
// one exists.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		GatewayURL:    getEnv("GATEWAY_URL", "ws://localhost:8080/ws/chat"),
		MemberID:      os.Getenv("MEMBER_ID"),
		MemberNick:    os.Getenv("MEMBER_NICK"),
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		SessionSecret: getEnv("SESSION_SECRET", "homeplace-dev-secret"),
		HistoryDB:     os.Getenv("HISTORY_DB"),
		PrefsPath:     getEnv("PREFS_PATH", "homeplace-prefs.json"),
	}

	if cfg.Reconnect.MaxRetries, err = getInt("RECONNECT_MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.Reconnect.BaseDelay, err = getDuration("RECONNECT_BASE_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Reconnect.MaxDelay, err = getDuration("RECONNECT_MAX_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Reconnect.Multiplier, err = getFloat("RECONNECT_MULTIPLIER", 2.0); err != nil {
		return nil, err
	}
	if cfg.Reconnect.Jitter, err = getBool("RECONNECT_JITTER", true); err != nil {
		return nil, err
	}
	if cfg.SendQueueSize, err = getInt("SEND_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.PriceRangeMin, err = getInt64("PRICE_RANGE_MIN", 0); err != nil {
		return nil, err
	}
	if cfg.PriceRangeMax, err = getInt64("PRICE_RANGE_MAX", 2000000); err != nil {
		return nil, err
	}
	if cfg.DefaultPageLimit, err = getInt("DEFAULT_PAGE_LIMIT", 9); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getInt("HISTORY_LIMIT", 100); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants between fields.
func (c *Config) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL is required")
	}
	if c.Reconnect.BaseDelay <= 0 {
		return fmt.Errorf("RECONNECT_BASE_DELAY must be greater than 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("RECONNECT_MAX_DELAY must not be less than RECONNECT_BASE_DELAY")
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("RECONNECT_MULTIPLIER must be at least 1")
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("SEND_QUEUE_SIZE must be greater than 0")
	}
	if c.PriceRangeMin < 0 || c.PriceRangeMin > c.PriceRangeMax {
		return fmt.Errorf("PRICE_RANGE_MIN must be non-negative and not exceed PRICE_RANGE_MAX")
	}
	if c.DefaultPageLimit <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_LIMIT must be greater than 0")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be greater than 0")
	}
	return nil
}

func (c *Config) GetGatewayURL() string               { return c.GatewayURL }
func (c *Config) GetMemberID() string                 { return c.MemberID }
func (c *Config) GetMemberNick() string               { return c.MemberNick }
func (c *Config) GetReconnectPolicy() ReconnectPolicy { return c.Reconnect }
func (c *Config) GetSendQueueSize() int               { return c.SendQueueSize }
func (c *Config) GetPriceRange() (int64, int64)       { return c.PriceRangeMin, c.PriceRangeMax }
func (c *Config) GetDefaultPageLimit() int            { return c.DefaultPageLimit }
func (c *Config) GetServerAddr() string               { return c.ServerAddr }
func (c *Config) GetSessionSecret() string            { return c.SessionSecret }
func (c *Config) GetHistoryDB() string                { return c.HistoryDB }
func (c *Config) GetHistoryLimit() int                { return c.HistoryLimit }
func (c *Config) GetPrefsPath() string                { return c.PrefsPath }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
