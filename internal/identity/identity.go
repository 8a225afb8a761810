package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/pocketbase/core"

	"ticket-maintenance/pkg/logger"
)

var ErrAccountNotFound = errors.New("identity: account not found")

type AccountService interface {
	DeleteAccount(ctx context.Context, userID string) error
}

// PocketBaseAccounts deletes user records from a PocketBase auth collection.
type PocketBaseAccounts struct {
	app        core.App
	collection string
}

func NewPocketBaseAccounts(app core.App, collection string) *PocketBaseAccounts {
	return &PocketBaseAccounts{app: app, collection: collection}
}

func (a *PocketBaseAccounts) DeleteAccount(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := a.app.FindRecordById(a.collection, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	if err != nil {
		return fmt.Errorf("find account %s: %w", userID, err)
	}

	if err := a.app.DeleteWithContext(ctx, record); err != nil {
		return fmt.Errorf("delete account %s: %w", userID, err)
	}
	return nil
}

// DryRunAccounts logs the deletions it would make.
type DryRunAccounts struct {
	logger logger.Logger
}

func NewDryRunAccounts(l logger.Logger) *DryRunAccounts {
	return &DryRunAccounts{logger: l}
}

func (a *DryRunAccounts) DeleteAccount(ctx context.Context, userID string) error {
	a.logger.Infof(ctx, "[dry-run] would delete account %s", userID)
	return nil
}
