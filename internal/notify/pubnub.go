package notify

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/services"
)

type publishFunc func(ctx context.Context, channel string, message any) error

// PubNubNotifier publishes a summary of every maintenance run to a channel.
type PubNubNotifier struct {
	channel string
	publish publishFunc
}

func NewPubNubNotifier(cfg config.PubNubConfig) *PubNubNotifier {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey

	pn := pubnub.NewPubNub(pnCfg)

	return &PubNubNotifier{
		channel: cfg.Channel,
		publish: func(ctx context.Context, channel string, message any) error {
			_, st, err := pn.PublishWithContext(ctx).
				Channel(channel).
				Message(message).
				Execute()
			if err != nil {
				return fmt.Errorf("publish to %s (status %d): %w", channel, st.StatusCode, err)
			}
			return nil
		},
	}
}

func (n *PubNubNotifier) Notify(ctx context.Context, report *services.Report) error {
	return n.publish(ctx, n.channel, reportMessage(report))
}

func reportMessage(report *services.Report) map[string]any {
	passes := make([]map[string]any, 0, len(report.Results))
	for _, r := range report.Results {
		pass := map[string]any{
			"pass":      r.Pass,
			"status":    string(r.Status),
			"scanned":   r.Scanned,
			"applied":   r.Applied,
			"untouched": r.Untouched,
			"skipped":   r.Skipped,
			"failed":    r.Failed,
		}
		if r.Error != "" {
			pass["error"] = r.Error
		}
		passes = append(passes, pass)
	}

	return map[string]any{
		"type":        "maintenance_report",
		"run_id":      report.RunID,
		"dry_run":     report.DryRun,
		"healthy":     report.Healthy(),
		"started_at":  report.StartedAt.Unix(),
		"finished_at": report.FinishedAt.Unix(),
		"passes":      passes,
	}
}
