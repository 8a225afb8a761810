package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ticket-maintenance/internal/status"
)

// Environment keys of the store identifiers.
const (
	KeyDatabaseID              = "DATABASE_ID"
	KeyChatMessagesCollection  = "CHAT_MESSAGES_COLLECTION_ID"
	KeyGroupsCollection        = "GROUPS_COLLECTION_ID"
	KeyResaleListingCollection = "TICKETS_FOR_INSTANT_SALE_COLLECTION_ID"
	KeyTicketsCollection       = "TICKETS_COLLECTION_ID"
	KeyArchivedTickets         = "EXPIRED_TICKETS_COLLECTION_ID"
	KeyEventsCollection        = "EVENTS_COLLECTION_ID"
	KeyArchivedEvents          = "EXPIRED_EVENTS_COLLECTION_ID"
	KeyQuarantinedTickets      = "QUARANTINED_TICKETS_COLLECTION_ID"
)

type Config struct {
	Env string

	DatabaseID  string
	Collections CollectionsConfig
	Identity    IdentityConfig
	Maintenance MaintenanceConfig
	Redis       RedisConfig
	PubNub      PubNubConfig
	Log         LogConfig
	Monitoring  MonitoringConfig

	// missing holds the required keys that were unset at load time.
	missing map[string]struct{}
}

type CollectionsConfig struct {
	ChatMessages       string
	Groups             string
	ResaleListings     string
	Tickets            string
	ArchivedTickets    string
	Events             string
	ArchivedEvents     string
	QuarantinedTickets string
}

type IdentityConfig struct {
	UsersCollection string
}

type MaintenanceConfig struct {
	Schedule         string
	Timezone         string
	Location         *time.Location
	ReadConcurrency  int
	DryRun           bool
	BreakerThreshold int
	BreakerCooldown  time.Duration
	// TriggerLimit caps manual runs per caller within TriggerWindow.
	TriggerLimit  int
	TriggerWindow time.Duration
}

type RedisConfig struct {
	URL     string
	LockKey string
	LockTTL time.Duration
}

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
	Channel      string
}

func (c PubNubConfig) Enabled() bool {
	return c.PublishKey != "" && c.SubscribeKey != ""
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

type MonitoringConfig struct {
	EnableMetrics bool
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env:        getEnv("ENVIRONMENT", "development"),
		DatabaseID: getEnv(KeyDatabaseID, ""),
		Collections: CollectionsConfig{
			ChatMessages:       getEnv(KeyChatMessagesCollection, ""),
			Groups:             getEnv(KeyGroupsCollection, ""),
			ResaleListings:     getEnv(KeyResaleListingCollection, ""),
			Tickets:            getEnv(KeyTicketsCollection, ""),
			ArchivedTickets:    getEnv(KeyArchivedTickets, ""),
			Events:             getEnv(KeyEventsCollection, ""),
			ArchivedEvents:     getEnv(KeyArchivedEvents, ""),
			QuarantinedTickets: getEnv(KeyQuarantinedTickets, ""),
		},
		Identity: IdentityConfig{
			UsersCollection: getEnv("USERS_COLLECTION_ID", "users"),
		},
		Maintenance: MaintenanceConfig{
			Schedule:         getEnv("MAINTENANCE_SCHEDULE", ""),
			Timezone:         getEnv("MAINTENANCE_TIMEZONE", "UTC"),
			ReadConcurrency:  getEnvAsInt("MAINTENANCE_READ_CONCURRENCY", 8),
			DryRun:           getEnvAsBool("MAINTENANCE_DRY_RUN", false),
			BreakerThreshold: getEnvAsInt("STORE_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  getEnvAsDuration("STORE_BREAKER_COOLDOWN", 30*time.Second),
			TriggerLimit:     getEnvAsInt("MAINTENANCE_TRIGGER_LIMIT", 6),
			TriggerWindow:    getEnvAsDuration("MAINTENANCE_TRIGGER_WINDOW", time.Hour),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			LockKey: getEnv("MAINTENANCE_LOCK_KEY", "lock:maintenance:daily"),
			LockTTL: getEnvAsDuration("MAINTENANCE_LOCK_TTL", 30*time.Minute),
		},
		PubNub: PubNubConfig{
			PublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
			SubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
			SecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
			UserID:       getEnv("PUBNUB_USER_ID", "ticket-maintenance"),
			Channel:      getEnv("PUBNUB_REPORT_CHANNEL", "maintenance-reports"),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Monitoring: MonitoringConfig{
			EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings that make the whole job unusable and records
// which store identifiers are missing. Missing identifiers are not fatal here:
// only the passes that need them fail.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Maintenance.Timezone)
	if err != nil {
		return fmt.Errorf("invalid maintenance timezone %q: %w", c.Maintenance.Timezone, err)
	}
	c.Maintenance.Location = loc

	if c.Maintenance.ReadConcurrency <= 0 {
		return fmt.Errorf("invalid read concurrency: %d", c.Maintenance.ReadConcurrency)
	}

	if c.Maintenance.BreakerThreshold <= 0 {
		return fmt.Errorf("invalid store breaker threshold: %d", c.Maintenance.BreakerThreshold)
	}

	if c.Redis.URL != "" && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("invalid maintenance lock ttl: %s", c.Redis.LockTTL)
	}

	c.missing = make(map[string]struct{})
	for key, value := range c.identifiers() {
		if strings.TrimSpace(value) == "" {
			c.missing[key] = struct{}{}
		}
	}

	return nil
}

func (c *Config) identifiers() map[string]string {
	return map[string]string{
		KeyDatabaseID:              c.DatabaseID,
		KeyChatMessagesCollection:  c.Collections.ChatMessages,
		KeyGroupsCollection:        c.Collections.Groups,
		KeyResaleListingCollection: c.Collections.ResaleListings,
		KeyTicketsCollection:       c.Collections.Tickets,
		KeyArchivedTickets:         c.Collections.ArchivedTickets,
		KeyEventsCollection:        c.Collections.Events,
		KeyArchivedEvents:          c.Collections.ArchivedEvents,
		KeyQuarantinedTickets:      c.Collections.QuarantinedTickets,
	}
}

// Missing returns the sorted list of unset store identifiers.
func (c *Config) Missing() []string {
	keys := make([]string, 0, len(c.missing))
	for key := range c.missing {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Require returns status.ErrMissingConfig naming every key in keys that was unset at load.
func (c *Config) Require(keys ...string) error {
	if c.missing == nil {
		return fmt.Errorf("%w: config was not validated", status.ErrMissingConfig)
	}

	var absent []string
	for _, key := range keys {
		if _, ok := c.missing[key]; ok {
			absent = append(absent, key)
		}
	}
	if len(absent) > 0 {
		return fmt.Errorf("%w: %s", status.ErrMissingConfig, strings.Join(absent, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
