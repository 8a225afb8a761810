package services

import (
	"context"
	"fmt"
	"time"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/store"
	"ticket-maintenance/models"
	"ticket-maintenance/pkg/logger"
)

const PassResaleListings = "resale_listings"

// ResaleListingReconciler returns the quantity of expired instant-sale
// listings to their parent ticket and removes the listings.
//
// The credit and the listing id are written to the parent in one update, and
// the listing is deleted only after that update succeeded. A listing that
// survives a failed delete is recognised on the next run and only deleted.
type ResaleListingReconciler struct {
	store  store.DocumentStore
	cfg    *config.Config
	logger logger.Logger
}

func NewResaleListingReconciler(st store.DocumentStore, cfg *config.Config, l logger.Logger) *ResaleListingReconciler {
	return &ResaleListingReconciler{store: st, cfg: cfg, logger: l}
}

func (p *ResaleListingReconciler) Name() string { return PassResaleListings }

func (p *ResaleListingReconciler) Requires() []string {
	return []string{config.KeyDatabaseID, config.KeyResaleListingCollection, config.KeyTicketsCollection}
}

func (p *ResaleListingReconciler) Run(ctx context.Context, now time.Time) (Tally, error) {
	var tally Tally

	docs, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.ResaleListings)
	if err != nil {
		return tally, fmt.Errorf("list resale listings: %w", err)
	}

	for _, doc := range docs {
		tally.add(p.reconcile(ctx, doc, now))
	}
	return tally, nil
}

func (p *ResaleListingReconciler) reconcile(ctx context.Context, doc store.Document, now time.Time) outcome {
	ctx = p.logger.WithFields(ctx, "listing_id", doc.ID)

	listing, err := models.DecodeResaleListing(doc)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping listing: %v", err)
		return outcomeSkipped
	}

	expiry, err := listing.ExpiresAt(p.cfg.Maintenance.Location)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping listing: %v", err)
		return outcomeSkipped
	}
	if !expiry.Before(now) {
		return outcomeUntouched
	}

	ctx = p.logger.WithFields(ctx, "ticket_id", listing.TicketID)

	parentDoc, err := p.store.Get(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets, listing.TicketID)
	if store.IsMissing(err) {
		p.logger.Warnf(ctx, "Parent ticket is gone, removing expired listing without credit")
		return p.deleteListing(ctx, listing)
	}
	if err != nil {
		p.logger.Errorf(ctx, "Failed to fetch parent ticket: %v", err)
		return outcomeFailed
	}

	parent, err := models.DecodeTicket(parentDoc)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping listing, parent ticket unreadable: %v", err)
		return outcomeSkipped
	}

	if parent.HasReconciled(listing.ID) {
		p.logger.Infof(ctx, "Listing already credited to ticket, finishing removal")
	} else {
		credit, err := parent.CreditFields(listing)
		if err != nil {
			p.logger.Warnf(ctx, "Skipping listing: %v", err)
			return outcomeSkipped
		}
		if _, err := p.store.Update(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets, parent.ID, credit); err != nil {
			p.logger.Errorf(ctx, "Failed to credit parent ticket: %v", err)
			return outcomeFailed
		}
		p.logger.Infof(ctx, "Updated ticket %s, new quantity: %v", parent.ID, credit[models.FieldQuantity])
	}

	return p.deleteListing(ctx, listing)
}

func (p *ResaleListingReconciler) deleteListing(ctx context.Context, listing models.ResaleListing) outcome {
	err := p.store.Delete(ctx, p.cfg.DatabaseID, p.cfg.Collections.ResaleListings, listing.ID)
	if err != nil && !store.IsMissing(err) {
		p.logger.Errorf(ctx, "Failed to delete expired listing: %v", err)
		return outcomeFailed
	}

	p.logger.Infof(ctx, "Deleted expired listing %s", listing.ID)
	return outcomeApplied
}
