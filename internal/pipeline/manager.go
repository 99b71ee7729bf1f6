package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Meet0004/email-sync-system-intern/internal/classify"
	"github.com/Meet0004/email-sync-system-intern/internal/email"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// Manager owns the coordinator set, one per configured account. No global
// registry: anything that needs to enumerate or stop connections goes
// through the manager handle.
type Manager struct {
	coordinators map[string]*Coordinator
	mu           sync.RWMutex
	logger       *slog.Logger
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		coordinators: make(map[string]*Coordinator),
		logger:       logger.With("component", "pipeline_manager"),
	}
}

// Add registers a coordinator for an account. Ignored if the account id is
// already bound.
func (m *Manager) Add(account models.AccountConfig, clientCfg email.ClientConfig, store Store, notifier Notifier) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.coordinators[account.ID]; ok {
		return existing
	}

	connector := email.NewClient(clientCfg, m.logger)
	coordinator := NewCoordinator(
		account,
		connector,
		email.NewNormalizer(m.logger),
		classify.New(),
		store,
		notifier,
		m.logger,
	)
	m.coordinators[account.ID] = coordinator
	m.logger.Info("registered account pipeline", "account", account.ID, "email", account.Email)
	return coordinator
}

// StartAll starts every registered coordinator.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, coordinator := range m.coordinators {
		coordinator.Start(ctx)
	}
	m.logger.Info("started account pipelines", "count", len(m.coordinators))
}

// StopAll stops every coordinator and waits for them to drain.
func (m *Manager) StopAll() {
	m.mu.Lock()
	coordinators := make([]*Coordinator, 0, len(m.coordinators))
	for _, c := range m.coordinators {
		coordinators = append(coordinators, c)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, coordinator := range coordinators {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			c.Stop()
		}(coordinator)
	}
	wg.Wait()
	m.logger.Info("all account pipelines stopped")
}

// Statuses reports connection status per account id.
func (m *Manager) Statuses() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]string, len(m.coordinators))
	for id, coordinator := range m.coordinators {
		statuses[id] = coordinator.ConnectionStatus()
	}
	return statuses
}
