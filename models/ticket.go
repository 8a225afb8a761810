package models

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ticket-maintenance/internal/store"
)

type Ticket struct {
	ID                 string   `json:"id"`
	EventID            string   `json:"eventId"`
	EventName          string   `json:"eventName"`
	EventSubName       string   `json:"eventSubName"`
	EventDate          string   `json:"eventDate"`
	EventTime          string   `json:"eventTime"`
	EventLocation      string   `json:"eventLocation"`
	TotalAmountPaid    string   `json:"totalAmountPaid"`
	PricePerTicket     string   `json:"pricePerTicket"`
	ImageID            string   `json:"imageId"`
	QRCodeID           string   `json:"qrCodeId"`
	Category           string   `json:"category"`
	UserID             string   `json:"userId"`
	Quantity           int      `json:"quantity"`
	IsListedForSale    bool     `json:"isListedForSale"`
	CheckedIn          bool     `json:"checkedIn"`
	ReconciledListings []string `json:"reconciledListings"`

	// rawQuantity holds the stored text when Quantity could not be read.
	rawQuantity    string
	quantityUnread bool
}

// DecodeTicket reads a ticket; a missing or malformed quantity is an error.
func DecodeTicket(doc store.Document) (Ticket, error) {
	return decodeTicket(doc, true)
}

// DecodeTicketKeepQuantity reads a ticket whose quantity is not needed for the
// decision at hand. An unreadable quantity is kept verbatim for copies.
func DecodeTicketKeepQuantity(doc store.Document) (Ticket, error) {
	return decodeTicket(doc, false)
}

func decodeTicket(doc store.Document, strictQuantity bool) (Ticket, error) {
	t := Ticket{
		ID:              doc.ID,
		EventID:         decodeString(doc.Get("eventId")),
		EventName:       decodeString(doc.Get("eventName")),
		EventSubName:    decodeString(doc.Get("eventSubName")),
		EventDate:       decodeString(doc.Get(FieldEventDate)),
		EventTime:       decodeString(doc.Get("eventTime")),
		EventLocation:   decodeString(doc.Get("eventLocation")),
		TotalAmountPaid: decodeString(doc.Get(FieldTotalAmountPaid)),
		PricePerTicket:  decodeString(doc.Get("pricePerTicket")),
		ImageID:         decodeString(doc.Get("imageId")),
		QRCodeID:        decodeString(doc.Get("qrCodeId")),
		Category:        decodeString(doc.Get("category")),
		UserID:          decodeString(doc.Get(FieldUserID)),
	}

	var err error
	if t.Quantity, err = decodeCount(FieldQuantity, doc.Get(FieldQuantity), true); err != nil {
		if strictQuantity {
			return Ticket{}, err
		}
		t.Quantity = 0
		t.rawQuantity = decodeString(doc.Get(FieldQuantity))
		t.quantityUnread = true
	}
	if t.IsListedForSale, err = decodeBool(FieldIsListedForSale, doc.Get(FieldIsListedForSale)); err != nil {
		return Ticket{}, err
	}
	if t.CheckedIn, err = decodeBool("checkedIn", doc.Get("checkedIn")); err != nil {
		return Ticket{}, err
	}
	if t.ReconciledListings, err = decodeList(FieldReconciledListings, doc.Get(FieldReconciledListings)); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// EventAt is the ticket's event date.
func (t Ticket) EventAt(loc *time.Location) (time.Time, error) {
	return ParseLenient(FieldEventDate, t.EventDate, loc)
}

// PaidAmount parses totalAmountPaid exactly, so "0", "0.00" and "0e3" are all zero.
func (t Ticket) PaidAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(t.TotalAmountPaid)
	if err != nil {
		return decimal.Zero, parseError(FieldTotalAmountPaid, t.TotalAmountPaid, err)
	}
	return d, nil
}

func (t Ticket) HasReconciled(listingID string) bool {
	return slices.Contains(t.ReconciledListings, listingID)
}

// CreditFields is the update that returns a listing's quantity to this ticket
// and records the listing id, so a repeated credit can be recognised. A sum
// above MaxCount is a parse error and nothing is credited.
func (t Ticket) CreditFields(l ResaleListing) (map[string]any, error) {
	sum := int64(t.Quantity) + int64(l.Quantity)
	if sum > MaxCount {
		return nil, parseError(FieldQuantity, sum, fmt.Errorf("credit of listing %s exceeds %d", l.ID, MaxCount))
	}
	return map[string]any{
		FieldQuantity:           encodeCount(int(sum)),
		FieldIsListedForSale:    false,
		FieldReconciledListings: append(slices.Clone(t.ReconciledListings), l.ID),
	}, nil
}

// ArchiveFields is the allowlisted copy written to the archived tickets collection.
func (t Ticket) ArchiveFields(archivedAt time.Time) map[string]any {
	fields := t.snapshot()
	fields[FieldArchivedAt] = archivedAt.UTC().Format(time.RFC3339)
	return fields
}

func (t Ticket) QuarantineFields(account AccountStatus, quarantinedAt time.Time) map[string]any {
	fields := t.snapshot()
	fields[FieldAccountStatus] = string(account)
	fields[FieldQuarantinedAt] = quarantinedAt.UTC().Format(time.RFC3339)
	return fields
}

func (t Ticket) snapshot() map[string]any {
	quantity := encodeCount(t.Quantity)
	if t.quantityUnread {
		quantity = t.rawQuantity
	}

	return map[string]any{
		"eventId":            t.EventID,
		"eventName":          t.EventName,
		"eventSubName":       t.EventSubName,
		FieldEventDate:       t.EventDate,
		"eventTime":          t.EventTime,
		"eventLocation":      t.EventLocation,
		FieldTotalAmountPaid: t.TotalAmountPaid,
		"pricePerTicket":     t.PricePerTicket,
		"imageId":            t.ImageID,
		"qrCodeId":           t.QRCodeID,
		"category":           t.Category,
		FieldUserID:          t.UserID,
		FieldQuantity:        quantity,
		// archives keep the resale flag as text
		FieldIsListedForSale: strconv.FormatBool(t.IsListedForSale),
		"checkedIn":          t.CheckedIn,
	}
}
