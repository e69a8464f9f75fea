package server

import (
	"sync"

	"lambda-http/internal/config"
)

// ConnectionManager keeps one container alive across warm Lambda invocations
type ConnectionManager struct {
	container *Container
	mu        sync.RWMutex
	loadCfg   func() (*config.Config, error)
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = NewConnectionManager(config.GetOptimizedConfig)
	})
	return globalConnectionManager
}

// NewConnectionManager creates a manager that builds its container from loadCfg on first use
func NewConnectionManager(loadCfg func() (*config.Config, error)) *ConnectionManager {
	return &ConnectionManager{loadCfg: loadCfg}
}

// GetContainer returns the container, initializing it if necessary.
// A failed initialization is retried on the next call.
func (cm *ConnectionManager) GetContainer() (*Container, error) {
	cm.mu.RLock()
	if container := cm.container; container != nil {
		cm.mu.RUnlock()
		return container, nil
	}
	cm.mu.RUnlock()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.container != nil {
		return cm.container, nil
	}

	cfg, err := cm.loadCfg()
	if err != nil {
		return nil, err
	}
	container, err := NewContainer(cfg)
	if err != nil {
		return nil, err
	}
	cm.container = container
	return container, nil
}
