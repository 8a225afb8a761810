package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/identity"
	"ticket-maintenance/internal/store"
	"ticket-maintenance/pkg/logger"
)

const (
	testDB           = "main"
	colMessages      = "chat_messages"
	colGroups        = "groups"
	colListings      = "instant_sale"
	colTickets       = "tickets"
	colArchived      = "expired_tickets"
	colEvents        = "events"
	colArchivedEvent = "expired_events"
	colQuarantine    = "quarantined_tickets"
)

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		DatabaseID: testDB,
		Collections: config.CollectionsConfig{
			ChatMessages:       colMessages,
			Groups:             colGroups,
			ResaleListings:     colListings,
			Tickets:            colTickets,
			ArchivedTickets:    colArchived,
			Events:             colEvents,
			ArchivedEvents:     colArchivedEvent,
			QuarantinedTickets: colQuarantine,
		},
		Maintenance: config.MaintenanceConfig{
			Timezone:         "UTC",
			ReadConcurrency:  4,
			BreakerThreshold: 5,
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func testLogger() logger.Logger {
	return logger.InitializeTestZapLogger()
}

type fakeAccounts struct {
	mu      sync.Mutex
	deleted map[string]int
	gone    map[string]bool
	errs    map[string]error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		deleted: make(map[string]int),
		gone:    make(map[string]bool),
		errs:    make(map[string]error),
	}
}

func (a *fakeAccounts) DeleteAccount(_ context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.deleted[userID]++
	if err := a.errs[userID]; err != nil {
		return err
	}
	if a.gone[userID] {
		return identity.ErrAccountNotFound
	}
	a.gone[userID] = true
	return nil
}

func (a *fakeAccounts) calls(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deleted[userID]
}

func (a *fakeAccounts) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.deleted {
		n += c
	}
	return n
}

func seedTicket(s *store.MemoryStore, id string, fields map[string]any) {
	base := map[string]any{
		"eventId":         "e1",
		"eventName":       "Jazz Night",
		"eventDate":       "December 24, 2030",
		"totalAmountPaid": "25.00",
		"quantity":        "1",
		"isListedForSale": false,
		"checkedIn":       false,
		"userId":          "u-" + id,
	}
	for k, v := range fields {
		base[k] = v
	}
	s.Seed(testDB, colTickets, id, base)
}
