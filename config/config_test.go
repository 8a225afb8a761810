package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-maintenance/internal/status"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv(KeyDatabaseID, "main")
	t.Setenv(KeyChatMessagesCollection, "chat_messages")
	t.Setenv(KeyGroupsCollection, "groups")
	t.Setenv(KeyResaleListingCollection, "tickets_for_instant_sale")
	t.Setenv(KeyTicketsCollection, "tickets")
	t.Setenv(KeyArchivedTickets, "expired_tickets")
	t.Setenv(KeyEventsCollection, "events")
	t.Setenv(KeyArchivedEvents, "expired_events")
	t.Setenv(KeyQuarantinedTickets, "quarantined_tickets")
}

func TestLoad_AllIdentifiersPresent(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.DatabaseID)
	assert.Equal(t, "tickets_for_instant_sale", cfg.Collections.ResaleListings)
	assert.Equal(t, "quarantined_tickets", cfg.Collections.QuarantinedTickets)
	assert.Empty(t, cfg.Missing())
	assert.NoError(t, cfg.Require(KeyDatabaseID, KeyTicketsCollection))
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "users", cfg.Identity.UsersCollection)
	assert.Equal(t, "UTC", cfg.Maintenance.Location.String())
	assert.Equal(t, 8, cfg.Maintenance.ReadConcurrency)
	assert.Equal(t, 5, cfg.Maintenance.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Maintenance.BreakerCooldown)
	assert.Equal(t, 30*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, 6, cfg.Maintenance.TriggerLimit)
	assert.Equal(t, time.Hour, cfg.Maintenance.TriggerWindow)
	assert.False(t, cfg.Maintenance.DryRun)
	assert.False(t, cfg.PubNub.Enabled())
	assert.True(t, cfg.Monitoring.EnableMetrics)
}

func TestLoad_MissingIdentifiersAreRecordedNotFatal(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(KeyGroupsCollection, "")
	t.Setenv(KeyQuarantinedTickets, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{KeyGroupsCollection, KeyQuarantinedTickets}, cfg.Missing())

	err = cfg.Require(KeyChatMessagesCollection, KeyGroupsCollection)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrMissingConfig)
	assert.Contains(t, err.Error(), KeyGroupsCollection)
	assert.NotContains(t, err.Error(), KeyChatMessagesCollection)

	assert.NoError(t, cfg.Require(KeyTicketsCollection, KeyArchivedTickets))
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"Unknown timezone", "MAINTENANCE_TIMEZONE", "Mars/Olympus"},
		{"Zero read concurrency", "MAINTENANCE_READ_CONCURRENCY", "0"},
		{"Negative breaker threshold", "STORE_BREAKER_THRESHOLD", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestRequire_UnvalidatedConfig(t *testing.T) {
	cfg := &Config{DatabaseID: "main"}

	err := cfg.Require(KeyDatabaseID)
	assert.ErrorIs(t, err, status.ErrMissingConfig)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty-two")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_BAD_DURATION", "soon")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("TEST_BAD_INT", 1))
	assert.True(t, getEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_BAD_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET_KEY", "fallback"))
}
