package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// OverdueMarker is the payment operation the sweep runs.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

// StartOverdueSweep schedules MarkOverdue on spec (standard 5-field cron).
// The returned scheduler is stopped when ctx is done.
func StartOverdueSweep(ctx context.Context, spec string, svc OverdueMarker) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		runOverdueSweep(ctx, svc, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("spec", spec).Msg("overdue_cron: started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("overdue_cron: shutting down")
	}()
	return c, nil
}

func runOverdueSweep(ctx context.Context, svc OverdueMarker, now time.Time) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := svc.MarkOverdue(sweepCtx, now)
	if err != nil {
		log.Error().Err(err).Msg("overdue_cron: sweep failed")
		return
	}
	log.Debug().Int("payments", n).Msg("overdue_cron: sweep done")
}
