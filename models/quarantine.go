package models

import "ticket-maintenance/internal/store"

// AccountStatus tracks the account side of a quarantine. A record stays
// pending until the owner's account is confirmed deleted.
type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountDisabled AccountStatus = "disabled"
	AccountMissing  AccountStatus = "missing"
)

type QuarantinedTicket struct {
	ID            string
	UserID        string
	AccountStatus AccountStatus
}

func DecodeQuarantinedTicket(doc store.Document) QuarantinedTicket {
	return QuarantinedTicket{
		ID:            doc.ID,
		UserID:        decodeString(doc.Get(FieldUserID)),
		AccountStatus: AccountStatus(decodeString(doc.Get(FieldAccountStatus))),
	}
}

func AccountStatusFields(s AccountStatus) map[string]any {
	return map[string]any{FieldAccountStatus: string(s)}
}
