package models

import (
	"time"

	"ticket-maintenance/internal/store"
)

// ResaleListing is a ticket quantity offered for instant sale. While it is
// live, the same quantity is missing from the parent ticket.
type ResaleListing struct {
	ID       string `json:"id"`
	TicketID string `json:"ticketId"`
	Quantity int    `json:"quantity"`
	Expiry   string `json:"expiry"`
}

func DecodeResaleListing(doc store.Document) (ResaleListing, error) {
	l := ResaleListing{
		ID:       doc.ID,
		TicketID: decodeString(doc.Get(FieldTicketID)),
		Expiry:   decodeString(doc.Get(FieldExpiry)),
	}

	var err error
	if l.Quantity, err = decodeCount(FieldQuantity, doc.Get(FieldQuantity), true); err != nil {
		return ResaleListing{}, err
	}
	if l.TicketID == "" {
		return ResaleListing{}, parseError(FieldTicketID, doc.Get(FieldTicketID), nil)
	}
	return l, nil
}

func (l ResaleListing) ExpiresAt(loc *time.Location) (time.Time, error) {
	return ParseDayFirst(FieldExpiry, l.Expiry, loc)
}

type ChatMessage struct {
	ID      string `json:"id"`
	GroupID string `json:"groupsId"`
}

func DecodeChatMessage(doc store.Document) ChatMessage {
	return ChatMessage{
		ID:      doc.ID,
		GroupID: decodeString(doc.Get(FieldGroupID)),
	}
}
