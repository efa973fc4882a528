package scheduler

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/config"
	"github.com/setpointhq/setpoint/internal/match"
)

// RegisterLiveSessionJobs wires the periodic autosave and idle eviction of
// open scoring sessions. A crash or dropped browser tab loses at most one
// autosave interval of events.
func RegisterLiveSessionJobs(registry *match.Registry, cfg config.LiveConfig) error {
	if _, err := AddJob("live_session_autosave", cfg.AutosaveSchedule, func() {
		ctx := log.Logger.WithContext(context.Background())
		registry.SnapshotAll(ctx)
	}); err != nil {
		return err
	}

	if _, err := AddJob("live_session_evict", "*/10 * * * *", func() {
		ctx := log.Logger.WithContext(context.Background())
		registry.EvictIdle(ctx, cfg.IdleTimeout)
	}); err != nil {
		return err
	}

	return nil
}
