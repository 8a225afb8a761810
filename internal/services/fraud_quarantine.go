package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/identity"
	"ticket-maintenance/internal/status"
	"ticket-maintenance/internal/store"
	"ticket-maintenance/models"
	"ticket-maintenance/pkg/logger"
)

const PassFraudQuarantine = "fraud_quarantine"

// FraudQuarantine moves zero-payment tickets to the quarantine collection and
// deletes the owning account.
//
// Steps per ticket: quarantine copy (accountStatus=pending), delete ticket,
// confirm the ticket is gone, delete account, mark the copy disabled. Copies
// still pending from an interrupted run are finished first.
type FraudQuarantine struct {
	store    store.DocumentStore
	accounts identity.AccountService
	cfg      *config.Config
	logger   logger.Logger
}

func NewFraudQuarantine(st store.DocumentStore, accounts identity.AccountService, cfg *config.Config, l logger.Logger) *FraudQuarantine {
	return &FraudQuarantine{store: st, accounts: accounts, cfg: cfg, logger: l}
}

func (p *FraudQuarantine) Name() string { return PassFraudQuarantine }

func (p *FraudQuarantine) Requires() []string {
	return []string{config.KeyDatabaseID, config.KeyTicketsCollection, config.KeyQuarantinedTickets}
}

func (p *FraudQuarantine) Run(ctx context.Context, now time.Time) (Tally, error) {
	var tally Tally

	pending, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.QuarantinedTickets,
		store.Equal(models.FieldAccountStatus, string(models.AccountPending)))
	if err != nil {
		return tally, fmt.Errorf("list pending quarantines: %w", err)
	}
	for _, doc := range pending {
		tally.add(p.resume(ctx, models.DecodeQuarantinedTicket(doc)))
	}

	docs, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets)
	if err != nil {
		return tally, fmt.Errorf("list tickets: %w", err)
	}
	for _, doc := range docs {
		tally.add(p.quarantine(ctx, doc, now))
	}
	return tally, nil
}

// resume finishes the account side of a quarantine left pending.
func (p *FraudQuarantine) resume(ctx context.Context, q models.QuarantinedTicket) outcome {
	ctx = p.logger.WithFields(ctx, "ticket_id", q.ID, "user_id", q.UserID)

	err := p.disableAccount(ctx, q.ID, q.UserID)
	if errors.Is(err, status.ErrTicketNotGone) {
		p.logger.Warnf(ctx, "Pending quarantine still has its ticket, leaving it to the ticket scan")
		return outcomeSkipped
	}
	if err != nil {
		p.logger.Errorf(ctx, "Failed to finish pending quarantine: %v", err)
		return outcomeFailed
	}

	p.logger.Infof(ctx, "Finished pending quarantine %s", q.ID)
	return outcomeApplied
}

func (p *FraudQuarantine) quarantine(ctx context.Context, doc store.Document, now time.Time) outcome {
	ctx = p.logger.WithFields(ctx, "ticket_id", doc.ID)

	// quantity plays no part in the fraud signal
	ticket, err := models.DecodeTicketKeepQuantity(doc)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping ticket: %v", err)
		return outcomeSkipped
	}

	amount, err := ticket.PaidAmount()
	if err != nil {
		p.logger.Warnf(ctx, "Skipping ticket: %v", err)
		return outcomeSkipped
	}
	if !amount.IsZero() {
		return outcomeUntouched
	}

	ctx = p.logger.WithFields(ctx, "user_id", ticket.UserID)
	p.logger.Warnf(ctx, "Zero-payment ticket detected, quarantining")

	_, err = p.store.Create(ctx, p.cfg.DatabaseID, p.cfg.Collections.QuarantinedTickets, ticket.ID,
		ticket.QuarantineFields(models.AccountPending, now))
	switch {
	case errors.Is(err, store.ErrConflict):
		p.logger.Infof(ctx, "Quarantine copy already exists, finishing quarantine")
	case err != nil:
		p.logger.Errorf(ctx, "Failed to create quarantine copy: %v", err)
		return outcomeFailed
	}

	if err := p.store.Delete(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets, ticket.ID); err != nil && !store.IsMissing(err) {
		p.logger.Errorf(ctx, "Failed to delete quarantined ticket: %v", err)
		return outcomeFailed
	}

	if err := p.disableAccount(ctx, ticket.ID, ticket.UserID); err != nil {
		p.logger.Errorf(ctx, "Ticket quarantined, account still pending: %v", err)
		return outcomeFailed
	}

	p.logger.Infof(ctx, "Quarantined ticket %s and deleted account %s", ticket.ID, ticket.UserID)
	return outcomeApplied
}

// disableAccount deletes the owner's account once the ticket is confirmed
// gone, then settles the quarantine copy's account marker.
func (p *FraudQuarantine) disableAccount(ctx context.Context, ticketID, userID string) error {
	if userID == "" {
		p.logger.Warnf(ctx, "%v", status.ErrNoAccountOwner)
		return p.markAccount(ctx, ticketID, models.AccountMissing)
	}

	_, err := p.store.Get(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets, ticketID)
	if err == nil {
		return fmt.Errorf("%w: %s", status.ErrTicketNotGone, ticketID)
	}
	if !store.IsMissing(err) {
		return fmt.Errorf("confirm ticket deletion: %w", err)
	}

	if err := p.accounts.DeleteAccount(ctx, userID); err != nil {
		if !errors.Is(err, identity.ErrAccountNotFound) {
			return fmt.Errorf("delete account: %w", err)
		}
		p.logger.Infof(ctx, "Account already deleted")
	}

	return p.markAccount(ctx, ticketID, models.AccountDisabled)
}

func (p *FraudQuarantine) markAccount(ctx context.Context, ticketID string, account models.AccountStatus) error {
	_, err := p.store.Update(ctx, p.cfg.DatabaseID, p.cfg.Collections.QuarantinedTickets, ticketID,
		models.AccountStatusFields(account))
	if err != nil {
		return fmt.Errorf("mark quarantine %s: %w", account, err)
	}
	return nil
}
