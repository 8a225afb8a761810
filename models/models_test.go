package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-maintenance/internal/status"
	"ticket-maintenance/internal/store"
)

func TestDecodeTicket(t *testing.T) {
	doc := store.Document{ID: "t1", Fields: map[string]any{
		"eventId":            "e1",
		"eventName":          "Jazz Night",
		"eventDate":          "June 5, 2020",
		"totalAmountPaid":    "12.50",
		"quantity":           "3",
		"isListedForSale":    "false",
		"checkedIn":          true,
		"userId":             "u1",
		"reconciledListings": []any{"l1"},
	}}

	ticket, err := DecodeTicket(doc)
	require.NoError(t, err)
	assert.Equal(t, "t1", ticket.ID)
	assert.Equal(t, 3, ticket.Quantity)
	assert.False(t, ticket.IsListedForSale)
	assert.True(t, ticket.CheckedIn)
	assert.Equal(t, []string{"l1"}, ticket.ReconciledListings)
	assert.True(t, ticket.HasReconciled("l1"))
	assert.False(t, ticket.HasReconciled("l2"))
}

func TestDecodeTicket_Quantity(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int
		wantErr bool
	}{
		{name: "text", raw: "3", want: 3},
		{name: "decimal text", raw: "3.0", want: 3},
		{name: "number", raw: float64(7), want: 7},
		{name: "zero", raw: "0", want: 0},
		{name: "padded", raw: " 4 ", want: 4},
		{name: "missing", raw: nil, wantErr: true},
		{name: "fraction", raw: "1.5", wantErr: true},
		{name: "negative", raw: "-2", wantErr: true},
		{name: "garbage", raw: "three", wantErr: true},
		{name: "largest", raw: "2147483647", want: MaxCount},
		{name: "above bound", raw: "2147483648", wantErr: true},
		{name: "beyond int64", raw: "9223372036854775808", wantErr: true},
		{name: "beyond uint64", raw: "18446744073709551617", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := DecodeTicket(store.Document{ID: "t1", Fields: map[string]any{"quantity": tt.raw}})
			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ticket.Quantity)
		})
	}
}

func TestDecodeTicket_Bools(t *testing.T) {
	ticket, err := DecodeTicket(store.Document{ID: "t1", Fields: map[string]any{
		"quantity":        "1",
		"isListedForSale": "true",
	}})
	require.NoError(t, err)
	assert.True(t, ticket.IsListedForSale)
	assert.False(t, ticket.CheckedIn, "absent flag reads as false")

	_, err = DecodeTicket(store.Document{ID: "t1", Fields: map[string]any{
		"quantity":        "1",
		"isListedForSale": "maybe",
	}})
	assert.ErrorIs(t, err, status.ErrParse)
}

func TestTicket_PaidAmount(t *testing.T) {
	tests := []struct {
		raw      string
		wantZero bool
		wantErr  bool
	}{
		{raw: "0", wantZero: true},
		{raw: "0.00", wantZero: true},
		{raw: "-0", wantZero: true},
		{raw: "12.50"},
		{raw: "0.001"},
		{raw: "", wantErr: true},
		{raw: "free", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			amount, err := Ticket{TotalAmountPaid: tt.raw}.PaidAmount()
			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantZero, amount.IsZero())
		})
	}
}

func TestTicket_CreditFields(t *testing.T) {
	ticket := Ticket{ID: "t1", Quantity: 3, IsListedForSale: true, ReconciledListings: []string{"old"}}
	listing := ResaleListing{ID: "l1", TicketID: "t1", Quantity: 2}

	fields, err := ticket.CreditFields(listing)
	require.NoError(t, err)

	assert.Equal(t, "5", fields[FieldQuantity])
	assert.Equal(t, false, fields[FieldIsListedForSale])
	assert.Equal(t, []string{"old", "l1"}, fields[FieldReconciledListings])
	assert.Equal(t, []string{"old"}, ticket.ReconciledListings, "ticket must not be mutated")
}

func TestTicket_CreditFieldsRejectsOverflow(t *testing.T) {
	ticket := Ticket{ID: "t1", Quantity: MaxCount - 1}

	fields, err := ticket.CreditFields(ResaleListing{ID: "l1", TicketID: "t1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "2147483647", fields[FieldQuantity])

	fields, err = ticket.CreditFields(ResaleListing{ID: "l2", TicketID: "t1", Quantity: 2})
	assert.ErrorIs(t, err, status.ErrParse)
	assert.Nil(t, fields)

	_, err = Ticket{ID: "t1", Quantity: MaxCount}.CreditFields(ResaleListing{ID: "l3", Quantity: MaxCount})
	assert.ErrorIs(t, err, status.ErrParse)
}

func TestDecodeTicketKeepQuantity(t *testing.T) {
	fields := map[string]any{
		"totalAmountPaid": "0",
		"userId":          "u1",
		"quantity":        "a few",
	}

	_, err := DecodeTicket(store.Document{ID: "t1", Fields: fields})
	require.ErrorIs(t, err, status.ErrParse)

	ticket, err := DecodeTicketKeepQuantity(store.Document{ID: "t1", Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, 0, ticket.Quantity)
	assert.Equal(t, "a few", ticket.QuarantineFields(AccountPending, time.Now())[FieldQuantity],
		"copy keeps the stored text")

	delete(fields, "quantity")
	ticket, err = DecodeTicketKeepQuantity(store.Document{ID: "t1", Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, "", ticket.QuarantineFields(AccountPending, time.Now())[FieldQuantity])

	fields["quantity"] = "4"
	ticket, err = DecodeTicketKeepQuantity(store.Document{ID: "t1", Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, "4", ticket.QuarantineFields(AccountPending, time.Now())[FieldQuantity])
}

func TestDecodeEvent_Coordinates(t *testing.T) {
	event, err := DecodeEvent(store.Document{ID: "e1", Fields: map[string]any{
		"latitude":  "17.9757",
		"longitude": float64(102.6331),
	}})
	require.NoError(t, err)
	assert.InDelta(t, 17.9757, event.Latitude, 0.0001)
	assert.InDelta(t, 102.6331, event.Longitude, 0.0001)

	event, err = DecodeEvent(store.Document{ID: "e1", Fields: map[string]any{"latitude": ""}})
	require.NoError(t, err)
	assert.Zero(t, event.Latitude)

	_, err = DecodeEvent(store.Document{ID: "e1", Fields: map[string]any{"latitude": "17.97,102.63"}})
	assert.ErrorIs(t, err, status.ErrParse)
}

func TestTicket_ArchiveAndQuarantineFields(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := Ticket{
		EventName:       "Jazz Night",
		EventDate:       "June 5, 2020",
		UserID:          "u1",
		Quantity:        2,
		IsListedForSale: true,
		CheckedIn:       true,
		TotalAmountPaid: "0",
	}

	archive := ticket.ArchiveFields(at)
	assert.Equal(t, "Jazz Night", archive["eventName"])
	assert.Equal(t, "2", archive["quantity"])
	assert.Equal(t, "true", archive["isListedForSale"])
	assert.Equal(t, true, archive["checkedIn"])
	assert.Equal(t, "2024-03-01T10:00:00Z", archive[FieldArchivedAt])
	assert.NotContains(t, archive, FieldReconciledListings)

	quarantine := ticket.QuarantineFields(AccountPending, at)
	assert.Equal(t, "pending", quarantine[FieldAccountStatus])
	assert.Equal(t, "u1", quarantine[FieldUserID])
	assert.Equal(t, "2024-03-01T10:00:00Z", quarantine[FieldQuarantinedAt])
}

func TestDecodeEvent_DefaultsCollections(t *testing.T) {
	event, err := DecodeEvent(store.Document{ID: "e1", Fields: map[string]any{
		"name":         "Jazz Night",
		"date":         "June 5, 2020",
		"totalTickets": "100",
		"ticketsLeft":  float64(12),
		"latitude":     "17.96",
		"tags":         []any{"music"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 100, event.TotalTickets)
	assert.Equal(t, 12, event.TicketsLeft)
	assert.InDelta(t, 17.96, event.Latitude, 0.0001)
	assert.Equal(t, []string{"music"}, event.Tags)
	assert.Equal(t, []string{}, event.Phase)
	assert.Equal(t, []string{}, event.Categories)

	fields := event.ArchiveFields(time.Now())
	assert.Equal(t, []string{}, fields["phase"])
	assert.Equal(t, []string{}, fields["categories"])
	assert.Equal(t, "June 5, 2020", fields["date"])
}

func TestDecodeResaleListing(t *testing.T) {
	listing, err := DecodeResaleListing(store.Document{ID: "l1", Fields: map[string]any{
		"ticketId": "T1",
		"quantity": float64(2),
		"expiry":   "01/01/2020",
	}})
	require.NoError(t, err)
	assert.Equal(t, ResaleListing{ID: "l1", TicketID: "T1", Quantity: 2, Expiry: "01/01/2020"}, listing)

	_, err = DecodeResaleListing(store.Document{ID: "l2", Fields: map[string]any{"quantity": "1"}})
	assert.ErrorIs(t, err, status.ErrParse, "listing without parent")
}

func TestParseDayFirst(t *testing.T) {
	loc := time.UTC

	got, err := ParseDayFirst("expiry", "02/03/2021", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.March, 2, 0, 0, 0, 0, loc), got, "day comes first")

	got, err = ParseDayFirst("expiry", "5/6/2021", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.June, 5, 0, 0, 0, 0, loc), got)

	for _, bad := range []string{"", "31/02/2021", "2021-03-02", "13/13/2021", "not a date"} {
		_, err := ParseDayFirst("expiry", bad, loc)
		assert.ErrorIs(t, err, status.ErrParse, bad)
	}
}

func TestParseLenient(t *testing.T) {
	loc := time.UTC

	for _, value := range []string{"June 5, 2020", "2020-06-05", "2020-06-05T18:30:00Z"} {
		got, err := ParseLenient("date", value, loc)
		require.NoError(t, err, value)
		assert.Equal(t, 2020, got.Year(), value)
		assert.Equal(t, time.June, got.Month(), value)
		assert.Equal(t, 5, got.Day(), value)
	}

	for _, bad := range []string{"", "soon"} {
		_, err := ParseLenient("date", bad, loc)
		assert.ErrorIs(t, err, status.ErrParse, bad)
	}
}

func TestDecodeQuarantinedTicket(t *testing.T) {
	q := DecodeQuarantinedTicket(store.Document{ID: "t1", Fields: map[string]any{
		"userId":        "u1",
		"accountStatus": "pending",
	}})
	assert.Equal(t, QuarantinedTicket{ID: "t1", UserID: "u1", AccountStatus: AccountPending}, q)
	assert.Equal(t, map[string]any{"accountStatus": "disabled"}, AccountStatusFields(AccountDisabled))
}
