package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/store"
	"ticket-maintenance/models"
	"ticket-maintenance/pkg/logger"
)

const PassTicketArchiver = "ticket_archiver"

// TicketArchiver moves tickets of past events to the archive and purges
// sold-out tickets of future events.
type TicketArchiver struct {
	store  store.DocumentStore
	cfg    *config.Config
	logger logger.Logger
}

func NewTicketArchiver(st store.DocumentStore, cfg *config.Config, l logger.Logger) *TicketArchiver {
	return &TicketArchiver{store: st, cfg: cfg, logger: l}
}

func (p *TicketArchiver) Name() string { return PassTicketArchiver }

func (p *TicketArchiver) Requires() []string {
	return []string{config.KeyDatabaseID, config.KeyTicketsCollection, config.KeyArchivedTickets}
}

func (p *TicketArchiver) Run(ctx context.Context, now time.Time) (Tally, error) {
	var tally Tally

	docs, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets)
	if err != nil {
		return tally, fmt.Errorf("list tickets: %w", err)
	}

	for _, doc := range docs {
		tally.add(p.archive(ctx, doc, now))
	}
	return tally, nil
}

func (p *TicketArchiver) archive(ctx context.Context, doc store.Document, now time.Time) outcome {
	ctx = p.logger.WithFields(ctx, "ticket_id", doc.ID)

	ticket, err := models.DecodeTicket(doc)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping ticket: %v", err)
		return outcomeSkipped
	}

	eventAt, err := ticket.EventAt(p.cfg.Maintenance.Location)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping ticket: %v", err)
		return outcomeSkipped
	}

	if eventAt.Before(now) {
		return moveToArchive(ctx, p.store, p.logger, archiveMove{
			databaseID: p.cfg.DatabaseID,
			source:     p.cfg.Collections.Tickets,
			archive:    p.cfg.Collections.ArchivedTickets,
			id:         ticket.ID,
			fields:     ticket.ArchiveFields(now),
		})
	}

	if ticket.Quantity == 0 {
		err := p.store.Delete(ctx, p.cfg.DatabaseID, p.cfg.Collections.Tickets, ticket.ID)
		if err != nil && !store.IsMissing(err) {
			p.logger.Errorf(ctx, "Failed to purge sold-out ticket: %v", err)
			return outcomeFailed
		}
		p.logger.Infof(ctx, "Purged sold-out ticket %s", ticket.ID)
		return outcomeApplied
	}

	return outcomeUntouched
}

type archiveMove struct {
	databaseID string
	source     string
	archive    string
	id         string
	fields     map[string]any
}

// moveToArchive copies a record under its own id and then deletes the source.
// An archive copy left by an earlier, interrupted run is reused.
func moveToArchive(ctx context.Context, st store.DocumentStore, l logger.Logger, m archiveMove) outcome {
	_, err := st.Create(ctx, m.databaseID, m.archive, m.id, m.fields)
	switch {
	case errors.Is(err, store.ErrConflict):
		l.Infof(ctx, "Archive copy already exists, finishing move")
	case err != nil:
		l.Errorf(ctx, "Failed to create archive copy: %v", err)
		return outcomeFailed
	}

	if err := st.Delete(ctx, m.databaseID, m.source, m.id); err != nil && !store.IsMissing(err) {
		l.Errorf(ctx, "Failed to delete archived source: %v", err)
		return outcomeFailed
	}

	l.Infof(ctx, "Moved %s/%s to %s", m.source, m.id, m.archive)
	return outcomeApplied
}
