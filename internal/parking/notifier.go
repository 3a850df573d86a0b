package parking

import "context"

// Notifier receives user-facing messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string) {}
