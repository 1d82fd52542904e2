package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
)

const DefaultReminderInterval = 24 * time.Hour

// A ReminderSweep reminds users about carts left behind and then
// truncates the abandoned-cart log up to the last record it has seen.
type ReminderSweep struct {
	log      port.AbandonedCartLog
	notifier port.Notifier
	interval time.Duration
}

func NewReminderSweep(
	log port.AbandonedCartLog, notifier port.Notifier, interval time.Duration,
) ReminderSweep {
	if interval <= 0 {
		interval = DefaultReminderInterval
	}
	return ReminderSweep{log: log, notifier: notifier, interval: interval}
}

// Sweep sends one reminder per user with a non-empty latest cart and
// returns the number of reminders sent.
func (r ReminderSweep) Sweep(ctx context.Context) (int, error) {
	const op = "ReminderSweep.Sweep"

	records, err := r.log.ListAbandoned(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	var maxID int64
	for _, rec := range records {
		maxID = max(maxID, rec.ID)
	}

	var sent int
	for _, rec := range domain.LatestPerUser(records) {
		if rec.Cart.Empty() {
			continue
		}
		r.notifier.RemindCart(ctx, rec.UserID, rec.Cart)
		sent++
	}

	if err := r.log.DeleteAbandonedUpTo(ctx, maxID); err != nil {
		return sent, fmt.Errorf("%s: %w", op, err)
	}
	return sent, nil
}

// Run sweeps on every tick until ctx is done.
func (r ReminderSweep) Run(ctx context.Context) {
	const op = "ReminderSweep.Run"
	log := slog.With("op", op)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := r.Sweep(ctx)
			if err != nil {
				log.Error("reminder sweep failed", "err", err)
				continue
			}
			log.Info("reminder sweep done", "sent", sent)
		}
	}
}
