package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/store"
	"ticket-maintenance/models"
	"ticket-maintenance/pkg/logger"
)

const PassOrphanMessages = "orphan_messages"

// OrphanMessageReclaimer deletes chat messages whose group no longer exists.
type OrphanMessageReclaimer struct {
	store  store.DocumentStore
	cfg    *config.Config
	logger logger.Logger
}

func NewOrphanMessageReclaimer(st store.DocumentStore, cfg *config.Config, l logger.Logger) *OrphanMessageReclaimer {
	return &OrphanMessageReclaimer{store: st, cfg: cfg, logger: l}
}

func (p *OrphanMessageReclaimer) Name() string { return PassOrphanMessages }

func (p *OrphanMessageReclaimer) Requires() []string {
	return []string{config.KeyDatabaseID, config.KeyChatMessagesCollection, config.KeyGroupsCollection}
}

func (p *OrphanMessageReclaimer) Run(ctx context.Context, _ time.Time) (Tally, error) {
	var tally Tally

	docs, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.ChatMessages)
	if err != nil {
		return tally, fmt.Errorf("list chat messages: %w", err)
	}

	messages := make([]models.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, models.DecodeChatMessage(doc))
	}

	groups := p.lookupGroups(ctx, messages)

	for _, msg := range messages {
		tally.add(p.reclaim(ctx, msg, groups))
	}
	return tally, nil
}

type groupLookup struct {
	exists bool
	err    error
}

// lookupGroups resolves every distinct group id once, with bounded concurrency.
func (p *OrphanMessageReclaimer) lookupGroups(ctx context.Context, messages []models.ChatMessage) map[string]groupLookup {
	var (
		mu      sync.Mutex
		results = make(map[string]groupLookup)
		g       errgroup.Group
	)
	g.SetLimit(p.cfg.Maintenance.ReadConcurrency)

	seen := make(map[string]struct{})
	for _, msg := range messages {
		groupID := msg.GroupID
		if groupID == "" {
			continue
		}
		if _, ok := seen[groupID]; ok {
			continue
		}
		seen[groupID] = struct{}{}

		g.Go(func() error {
			docs, err := p.store.List(ctx, p.cfg.DatabaseID, p.cfg.Collections.Groups, store.Equal(store.IDField, groupID))

			mu.Lock()
			defer mu.Unlock()
			results[groupID] = groupLookup{exists: len(docs) > 0, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *OrphanMessageReclaimer) reclaim(ctx context.Context, msg models.ChatMessage, groups map[string]groupLookup) outcome {
	ctx = p.logger.WithFields(ctx, "message_id", msg.ID, "group_id", msg.GroupID)

	if msg.GroupID != "" {
		lookup := groups[msg.GroupID]
		if lookup.err != nil {
			p.logger.Errorf(ctx, "Failed to look up group: %v", lookup.err)
			return outcomeFailed
		}
		if lookup.exists {
			return outcomeUntouched
		}
	}

	err := p.store.Delete(ctx, p.cfg.DatabaseID, p.cfg.Collections.ChatMessages, msg.ID)
	if store.IsMissing(err) {
		p.logger.Debugf(ctx, "Orphaned message already gone")
		return outcomeUntouched
	}
	if err != nil {
		p.logger.Errorf(ctx, "Failed to delete orphaned message: %v", err)
		return outcomeFailed
	}

	p.logger.Infof(ctx, "Deleted orphaned message %s", msg.ID)
	return outcomeApplied
}
