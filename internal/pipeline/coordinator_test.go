package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Meet0004/email-sync-system-intern/internal/classify"
	"github.com/Meet0004/email-sync-system-intern/internal/email"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

type fakeConnector struct {
	events  chan *email.RawEmail
	stopped bool
	mu      sync.Mutex
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{events: make(chan *email.RawEmail, 16)}
}

func (f *fakeConnector) Run(ctx context.Context)           {}
func (f *fakeConnector) Messages() <-chan *email.RawEmail { return f.events }
func (f *fakeConnector) Status() string                    { return "watching" }

func (f *fakeConnector) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.events)
	}
}

type fakeStore struct {
	mu     sync.Mutex
	puts   []*models.Message
	failOn string // subject that triggers a failure
}

func (s *fakeStore) PutMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && msg.Subject == s.failOn {
		return errors.New("store unavailable")
	}
	s.puts = append(s.puts, msg)
	return nil
}

func (s *fakeStore) messages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Message(nil), s.puts...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []*models.Message
	err      error
}

func (n *fakeNotifier) Notify(ctx context.Context, msg *models.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, msg)
	return n.err
}

func (n *fakeNotifier) messages() []*models.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*models.Message(nil), n.notified...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAccount() models.AccountConfig {
	return models.AccountConfig{ID: "acct1", Email: "me@corp.example", Password: "secret", Host: "imap.corp.example", Port: 993, TLS: true}
}

func newTestCoordinator(connector Connector, store Store, notifier Notifier) *Coordinator {
	return NewCoordinator(
		testAccount(),
		connector,
		email.NewNormalizer(testLogger()),
		classify.New(),
		store,
		notifier,
		testLogger(),
	)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCoordinatorPersistsAndNotifies(t *testing.T) {
	connector := newFakeConnector()
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	coordinator := newTestCoordinator(connector, store, notifier)

	assert.Equal(t, StateConnectorBound, coordinator.State())
	coordinator.Start(context.Background())
	assert.Equal(t, StateRunning, coordinator.State())

	connector.events <- &email.RawEmail{UID: 1, Subject: "We are interested in your profile", From: "lead@corp.example"}
	connector.events <- &email.RawEmail{UID: 2, Subject: "Quarterly newsletter", From: "news@corp.example"}

	waitFor(t, func() bool { return len(store.messages()) == 2 })
	coordinator.Stop()

	persisted := store.messages()
	require.Len(t, persisted, 2)
	assert.Equal(t, models.CategoryInterested, persisted[0].Category)
	assert.Equal(t, models.CategoryUncategorized, persisted[1].Category)

	// Only the Interested message reaches the notifier
	notified := notifier.messages()
	require.Len(t, notified, 1)
	assert.Equal(t, persisted[0].ID, notified[0].ID)
}

func TestCoordinatorDropsMessageOnPersistFailure(t *testing.T) {
	connector := newFakeConnector()
	store := &fakeStore{failOn: "We are interested, call me"}
	notifier := &fakeNotifier{}
	coordinator := newTestCoordinator(connector, store, notifier)
	coordinator.Start(context.Background())

	connector.events <- &email.RawEmail{UID: 1, Subject: "We are interested, call me"}
	connector.events <- &email.RawEmail{UID: 2, Subject: "Plain update"}

	waitFor(t, func() bool { return len(store.messages()) == 1 })
	coordinator.Stop()

	// The failed message is dropped: no retry and no notification
	assert.Empty(t, notifier.messages())
	assert.Equal(t, "Plain update", store.messages()[0].Subject)
}

func TestCoordinatorSwallowsNotifierFailure(t *testing.T) {
	connector := newFakeConnector()
	store := &fakeStore{}
	notifier := &fakeNotifier{err: errors.New("webhook down")}
	coordinator := newTestCoordinator(connector, store, notifier)
	coordinator.Start(context.Background())

	connector.events <- &email.RawEmail{UID: 1, Subject: "interested in a demo"}

	waitFor(t, func() bool { return len(notifier.messages()) == 1 })
	coordinator.Stop()

	// Persistence already happened and stays
	require.Len(t, store.messages(), 1)
	assert.Equal(t, StateStopped, coordinator.State())
}

func TestCoordinatorWithoutNotifier(t *testing.T) {
	connector := newFakeConnector()
	store := &fakeStore{}
	coordinator := newTestCoordinator(connector, store, nil)
	coordinator.Start(context.Background())

	connector.events <- &email.RawEmail{UID: 1, Subject: "interested"}

	waitFor(t, func() bool { return len(store.messages()) == 1 })
	coordinator.Stop()
}

func TestCoordinatorStopIsTerminal(t *testing.T) {
	connector := newFakeConnector()
	coordinator := newTestCoordinator(connector, &fakeStore{}, nil)
	coordinator.Start(context.Background())
	coordinator.Stop()

	assert.Equal(t, StateStopped, coordinator.State())
	// Second stop is a no-op, start after stop does nothing
	coordinator.Stop()
	coordinator.Start(context.Background())
	assert.Equal(t, StateStopped, coordinator.State())
}

func TestManagerOwnsCoordinators(t *testing.T) {
	manager := NewManager(testLogger())
	account := testAccount()

	first := manager.Add(account, email.ClientConfig{Account: account}, &fakeStore{}, nil)
	second := manager.Add(account, email.ClientConfig{Account: account}, &fakeStore{}, nil)
	assert.Same(t, first, second)

	statuses := manager.Statuses()
	require.Len(t, statuses, 1)
	assert.Contains(t, statuses, "acct1")

	manager.StopAll()
	assert.Equal(t, StateStopped, first.State())
}
