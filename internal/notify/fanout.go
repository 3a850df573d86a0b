package notify

import (
	"context"

	"parking-occupancy/internal/logging"
	"parking-occupancy/internal/parking"
)

type Fanout []parking.Notifier

func (f Fanout) Notify(ctx context.Context, message string) {
	for _, n := range f {
		n.Notify(ctx, message)
	}
}

// Log writes each message to the structured log.
var Log = parking.NotifierFunc(func(ctx context.Context, message string) {
	logging.Info(ctx).Str("notification", message).Msg("notification")
})
