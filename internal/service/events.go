package service

import (
	"context"
	"fmt"

	"oficina/internal/event"

	"github.com/rs/zerolog/log"
)

// publish hands e to the outbound queue after commit. A failure never undoes
// the committed change; it comes back as a warning for the caller.
func publish(ctx context.Context, pub event.Publisher, e event.Event) []string {
	if pub == nil {
		return nil
	}
	if err := pub.Publish(ctx, e); err != nil {
		log.Warn().Err(err).
			Str("event", string(e.Type)).
			Str("aggregate_id", e.AggregateID.String()).
			Msg("event publish failed")
		return []string{fmt.Sprintf("notification %s not sent: %v", e.Type, err)}
	}
	return nil
}
