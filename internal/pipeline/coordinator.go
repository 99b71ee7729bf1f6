package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Meet0004/email-sync-system-intern/internal/classify"
	"github.com/Meet0004/email-sync-system-intern/internal/email"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// State of a coordinator. Stopped is terminal.
type State string

const (
	StateIdle           State = "idle"
	StateConnectorBound State = "connector_bound"
	StateRunning        State = "running"
	StateStopped        State = "stopped"
)

// Connector is the mailbox side of the pipeline.
type Connector interface {
	Run(ctx context.Context)
	Messages() <-chan *email.RawEmail
	Stop()
	Status() string
}

// Store persists categorized messages.
type Store interface {
	PutMessage(ctx context.Context, msg *models.Message) error
}

// Notifier receives high-value messages, fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, msg *models.Message) error
}

const collaboratorTimeout = 10 * time.Second

// Coordinator wires one account's connector through normalization and
// classification into the store, notifying on Interested messages. The
// connector handles its own reconnection; the coordinator only stops on an
// explicit Stop call.
type Coordinator struct {
	account    models.AccountConfig
	connector  Connector
	normalizer *email.Normalizer
	classifier *classify.Classifier
	store      Store
	notifier   Notifier
	logger     *slog.Logger

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

// NewCoordinator creates a coordinator bound to one account's connector.
func NewCoordinator(account models.AccountConfig, connector Connector, normalizer *email.Normalizer, classifier *classify.Classifier, store Store, notifier Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		account:    account,
		connector:  connector,
		normalizer: normalizer,
		classifier: classifier,
		store:      store,
		notifier:   notifier,
		logger:     logger.With("component", "coordinator", "account", account.ID),
		state:      StateConnectorBound,
	}
}

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionStatus reports the underlying connector status.
func (c *Coordinator) ConnectionStatus() string {
	return c.connector.Status()
}

// Start launches the connector and the consume loop.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateConnectorBound {
		c.mu.Unlock()
		return
	}
	c.state = StateRunning
	c.mu.Unlock()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.connector.Run(ctx)
	}()
	go func() {
		defer c.wg.Done()
		c.consume(ctx)
	}()
}

// Stop terminates the connector and waits for in-flight work to drain.
// The coordinator never restarts after this.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.state = StateStopped
	c.mu.Unlock()

	c.connector.Stop()
	c.wg.Wait()
	c.logger.Info("coordinator stopped")
}

// consume drains the connector channel until it closes.
func (c *Coordinator) consume(ctx context.Context) {
	for raw := range c.connector.Messages() {
		c.handle(ctx, raw)
	}
}

// handle runs one message through normalize → classify → persist → notify.
func (c *Coordinator) handle(ctx context.Context, raw *email.RawEmail) {
	msg := c.normalizer.Normalize(c.account.ID, "INBOX", raw)
	msg.Category = c.classifier.Classify(msg)

	putCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	err := c.store.PutMessage(putCtx, msg)
	cancel()
	if err != nil {
		// No retry queue: the message is dropped for this delivery.
		c.logger.Error("failed to persist message", "id", msg.ID, "error", err)
		return
	}

	c.logger.Info("message ingested",
		"id", msg.ID,
		"subject", msg.Subject,
		"category", msg.Category,
	)

	if msg.Category != models.CategoryInterested || c.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	err = c.notifier.Notify(notifyCtx, msg)
	cancel()
	if err != nil {
		// Notification failures never affect persisted state.
		c.logger.Warn("notification failed", "id", msg.ID, "error", err)
	}
}
