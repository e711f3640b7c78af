// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 11:40:19 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/interfaces"
	storebadger "github.com/ternarybob/msgvault/internal/storage/badger"
)

// Tenant names become directory names, so they are restricted hard
var tenantNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Manager provisions one isolated Badger store per tenant, lazily
type Manager struct {
	config *common.Config
	logger arbor.ILogger

	mu      sync.Mutex
	tenants map[string]interfaces.TenantStore
}

// NewManager creates the tenant storage manager
func NewManager(config *common.Config, logger arbor.ILogger) *Manager {
	return &Manager{
		config:  config,
		logger:  logger,
		tenants: make(map[string]interfaces.TenantStore),
	}
}

// Tenant returns the store for the named tenant, opening it on first use
func (m *Manager) Tenant(name string) (interfaces.TenantStore, error) {
	if !tenantNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid tenant name: %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.tenants[name]; ok {
		return store, nil
	}

	path := filepath.Join(m.config.Storage.Path, name)
	store, err := storebadger.NewTenantStore(m.logger, path, m.config.Storage.ResetOnStartup)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant store %s: %w", name, err)
	}

	m.logger.Info().Str("tenant", name).Str("path", path).Msg("Tenant store opened")
	m.tenants[name] = store
	return store, nil
}

// Close closes every open tenant store
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, store := range m.tenants {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close tenant store %s: %w", name, err)
		}
		delete(m.tenants, name)
	}
	return firstErr
}
