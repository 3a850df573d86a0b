// Package notify delivers user-facing messages produced by the controllers.
package notify

import (
	"context"
	"sync"
	"time"
)

const DefaultTTL = 3 * time.Second

type Notice struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Toast keeps the most recent message until its TTL passes or a newer
// message replaces it.
type Toast struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	current *Notice
	timer   *time.Timer
}

func NewToast(ttl time.Duration) *Toast {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Toast{
		ttl: ttl,
		now: time.Now,
	}
}

func (t *Toast) Notify(_ context.Context, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	notice := &Notice{
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(t.ttl),
	}
	t.current = notice

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.current == notice {
			t.current = nil
		}
	})
}

// Current returns the visible message, if any.
func (t *Toast) Current() (Notice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Notice{}, false
	}
	return *t.current, true
}

func (t *Toast) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.current = nil
}
