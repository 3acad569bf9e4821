package cmd

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/firefly-engineering/fragile/internal/app"
	"github.com/firefly-engineering/fragile/internal/audit"
	"github.com/firefly-engineering/fragile/internal/config"
	"github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/signals"
)

// runDestroy stops and removes a sandbox kept with --no-destroy.
func runDestroy(ctx context.Context, id string) error {
	cfg, err := loadHostConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateIdentity(cfg.NamePrefix, id); err != nil {
		return errors.UsageWrap("cannot destroy sandbox", err)
	}

	trap, err := signals.New(syscall.SIGINT, syscall.SIGTERM)
	if err != nil {
		return errors.IOFailure("failed to trap signals", err)
	}
	defer trap.Close()

	a, err := app.New(cfg, app.WithInterrupts(trap))
	if err != nil {
		return err
	}

	log := logging.Sandbox(id)
	log.Debug("destroying sandbox")
	describeHistory(a.Audit, id)

	reaper := a.Reaper()
	if err := reaper.Stop(ctx, id); err != nil {
		log.Debug("failed to stop sandbox", "error", err)
	}
	if err := destroy(ctx, reaper, id); err != nil {
		return err
	}
	logSuccess("Destroyed sandbox %s", id)
	return nil
}

// describeHistory tells the user when the sandbox was created and how its
// last test command ended, as far as the audit trail knows.
func describeHistory(l *audit.Logger, id string) {
	events, err := l.Events(id)
	if err != nil {
		logging.Sandbox(id).Debug("unreadable audit trail", "error", err)
	}

	var created, lastExec *audit.Event
	for i := range events {
		switch events[i].Type {
		case audit.EventCreate:
			if created == nil {
				created = &events[i]
			}
		case audit.EventExec:
			lastExec = &events[i]
		}
	}
	if created == nil {
		return
	}

	msg := fmt.Sprintf("Sandbox %s was created %s", id, created.Timestamp.Format(time.RFC3339))
	if lastExec != nil && lastExec.Code != nil {
		msg += fmt.Sprintf("; its test command exited %d", *lastExec.Code)
	}
	logInfo("%s", msg)
}
