package status

import "errors"

var (
	ErrMissingConfig  = errors.New("config: required setting missing")
	ErrParse          = errors.New("record: field could not be parsed")
	ErrTicketNotGone  = errors.New("quarantine: source ticket still present after delete")
	ErrRunInProgress  = errors.New("maintenance: another run holds the lock")
	ErrPassPanicked   = errors.New("maintenance: pass panicked")
	ErrNoAccountOwner = errors.New("quarantine: ticket has no owning user")
)
