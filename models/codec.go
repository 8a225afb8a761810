package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"ticket-maintenance/internal/status"
)

// Field names as they are stored in the document collections.
const (
	FieldGroupID            = "groupsId"
	FieldTicketID           = "ticketId"
	FieldQuantity           = "quantity"
	FieldExpiry             = "expiry"
	FieldIsListedForSale    = "isListedForSale"
	FieldReconciledListings = "reconciledListings"
	FieldUserID             = "userId"
	FieldTotalAmountPaid    = "totalAmountPaid"
	FieldEventDate          = "eventDate"
	FieldDate               = "date"
	FieldAccountStatus      = "accountStatus"
	FieldArchivedAt         = "archivedAt"
	FieldQuarantinedAt      = "quarantinedAt"
)

// DayFirstLayout is the only accepted format of resale listing expiries.
const DayFirstLayout = "2/1/2006"

// MaxCount bounds every quantity and ticket total, including the sum written
// back by a listing credit.
const MaxCount = math.MaxInt32

func parseError(field string, raw any, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s=%v: %v", status.ErrParse, field, raw, err)
	}
	return fmt.Errorf("%w: %s=%v", status.ErrParse, field, raw)
}

func decodeString(raw any) string {
	return strings.TrimSpace(cast.ToString(raw))
}

// decodeCount reads a non-negative integer that may be stored as decimal text
// ("3", "3.0") or as a JSON number. Fractions, negatives and values above
// MaxCount are rejected. An absent value decodes to zero unless required is set.
func decodeCount(field string, raw any, required bool) (int, error) {
	text := decodeString(raw)
	if text == "" {
		if required {
			return 0, parseError(field, raw, nil)
		}
		return 0, nil
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, parseError(field, raw, err)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, parseError(field, raw, nil)
	}
	if d.GreaterThan(decimal.NewFromInt(MaxCount)) {
		return 0, parseError(field, raw, fmt.Errorf("exceeds %d", MaxCount))
	}
	return int(d.IntPart()), nil
}

// decodeCoordinate reads a latitude or longitude. Absent means zero.
func decodeCoordinate(field string, raw any) (float64, error) {
	if raw == nil || decodeString(raw) == "" {
		return 0, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, parseError(field, raw, err)
	}
	return f, nil
}

// decodeBool accepts booleans and their textual forms. Absent means false.
func decodeBool(field string, raw any) (bool, error) {
	if raw == nil || decodeString(raw) == "" {
		return false, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, parseError(field, raw, err)
	}
	return b, nil
}

// decodeList reads a list field; an absent value is an empty, non-nil list.
func decodeList(field string, raw any) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	list, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, parseError(field, raw, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func encodeCount(n int) string {
	return decimal.NewFromInt(int64(n)).String()
}

// ParseDayFirst parses a D/M/YYYY date in loc. Nothing else is accepted.
func ParseDayFirst(field, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayFirstLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, parseError(field, value, err)
	}
	return t, nil
}

// ParseLenient accepts any date format dateparse recognises ("June 5, 2020",
// "2020-06-05", RFC 3339, ...). Zone-less values are read in loc.
func ParseLenient(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, parseError(field, value, nil)
	}
	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, parseError(field, value, err)
	}
	return t, nil
}
