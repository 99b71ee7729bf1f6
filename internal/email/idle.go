package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/client"
)

// idleWatcher runs one bounded IDLE session against the selected folder.
// go-imap falls back to NOOP polling on servers without IDLE support.
type idleWatcher struct {
	client *client.Client
	logger *slog.Logger
}

func newIdleWatcher(c *client.Client, logger *slog.Logger) *idleWatcher {
	return &idleWatcher{client: c, logger: logger}
}

// Wait blocks until the mailbox reports an update, the keepalive timeout
// elapses, or stop/ctx fires. Returns whether an update was seen.
func (w *idleWatcher) Wait(ctx context.Context, stop <-chan struct{}, timeout time.Duration) (bool, error) {
	updates := make(chan client.Update, 16)
	w.client.Updates = updates
	defer func() { w.client.Updates = nil }()

	idleStop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- w.client.Idle(idleStop, nil)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var updated, stopping bool
	end := func() {
		if !stopping {
			close(idleStop)
			stopping = true
		}
	}

	for {
		select {
		case upd := <-updates:
			if _, ok := upd.(*client.MailboxUpdate); ok {
				updated = true
				end()
			}
		case <-timer.C:
			end()
		case <-stop:
			end()
		case <-ctx.Done():
			end()
		case err := <-done:
			return updated, err
		}
	}
}
