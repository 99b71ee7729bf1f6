package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// Notifier delivers a new-message alert to an external sink. Callers treat
// delivery as fire-and-forget; errors are logged, never retried.
type Notifier interface {
	Notify(ctx context.Context, msg *models.Message) error
}

// Fanout delivers to every configured sink and joins the failures.
type Fanout struct {
	sinks []Notifier
}

// NewFanout creates a fanout over the given sinks
func NewFanout(sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks}
}

// Notify sends to all sinks; one failing sink does not stop the others.
func (f *Fanout) Notify(ctx context.Context, msg *models.Message) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// summary is the one-line alert text shared by all sinks.
func summary(msg *models.Message) string {
	return fmt.Sprintf("New interested lead\nFrom: %s\nSubject: %s\nAccount: %s", msg.From, msg.Subject, msg.AccountID)
}
