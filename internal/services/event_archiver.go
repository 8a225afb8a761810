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

const PassEventArchiver = "event_archiver"

type EventArchiver struct {
	store  store.DocumentStore
	cfg    *config.Config
	logger logger.Logger
}

func NewEventArchiver(st store.DocumentStore, cfg *config.Config, l logger.Logger) *EventArchiver {
	return &EventArchiver{store: st, cfg: cfg, logger: l}
}

func (p *EventArchiver) Name() string { return PassEventArchiver }

func (p *EventArchiver) Requires() []string {
	return []string{config.KeyDatabaseID, config.KeyEventsCollection, config.KeyArchivedEvents}
}

func (p *EventArchiver) Run(ctx context.Context, now time.Time) (Tally, error) {
	var tally Tally

	docs, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.Events)
	if err != nil {
		return tally, fmt.Errorf("list events: %w", err)
	}

	for _, doc := range docs {
		tally.add(p.archive(ctx, doc, now))
	}
	return tally, nil
}

func (p *EventArchiver) archive(ctx context.Context, doc store.Document, now time.Time) outcome {
	ctx = p.logger.WithFields(ctx, "event_id", doc.ID)

	event, err := models.DecodeEvent(doc)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping event: %v", err)
		return outcomeSkipped
	}

	startsAt, err := event.StartsAt(p.cfg.Maintenance.Location)
	if err != nil {
		p.logger.Warnf(ctx, "Skipping event: %v", err)
		return outcomeSkipped
	}
	if !startsAt.Before(now) {
		return outcomeUntouched
	}

	return moveToArchive(ctx, p.store, p.logger, archiveMove{
		databaseID: p.cfg.DatabaseID,
		source:     p.cfg.Collections.Events,
		archive:    p.cfg.Collections.ArchivedEvents,
		id:         event.ID,
		fields:     event.ArchiveFields(now),
	})
}
