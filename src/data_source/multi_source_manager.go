package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/models"
)

// MultiSourceManager owns the configured data sources and their lifecycle.
type MultiSourceManager struct {
	Sources    map[string]interfaces.IDataSource
	Logger     *logger.Logger
	mu         sync.RWMutex
	outputChan chan<- models.MIngest // Send-only, managed by parent
	ctx        context.Context       // Lifecycle context (derived)
	cancelFunc context.CancelFunc    // To stop all sources
	wg         *sync.WaitGroup       // Shared WaitGroup (ptr)
	running    map[string]bool
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IDataSource, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IDataSource),
		Logger:  log,
		running: make(map[string]bool),
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

// AddSource adds a new source and starts it if the manager is running
func (m *MultiSourceManager) AddSource(source interfaces.IDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s", name)

	if m.ctx != nil {
		if err := source.Start(m.ctx, m.outputChan, m.wg); err != nil {
			return fmt.Errorf("failed to start source %s: %w", name, err)
		}
		m.running[name] = true
		m.Logger.Info("Started source: %s", name)
	}

	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource stops and removes a source
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, exists := m.Sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}

	if m.running[name] {
		if err := source.Stop(); err != nil {
			m.Logger.Error("Error stopping source %s: %v", name, err)
		}
	}

	delete(m.Sources, name)
	delete(m.running, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IDataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// SourceStatus describes one source for status endpoints.
type SourceStatus struct {
	Name     string `json:"name"`
	Running  bool   `json:"running"`
	RealTime bool   `json:"real_time"`
}

// GetAllSources returns the status of every source sorted by name
func (m *MultiSourceManager) GetAllSources() []SourceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]SourceStatus, 0, len(m.Sources))
	for name, s := range m.Sources {
		list = append(list, SourceStatus{Name: name, Running: m.running[name], RealTime: s.IsRealTime()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// -----------------------------------------------------------------------------

// Start starts all sources
func (m *MultiSourceManager) Start(parentCtx context.Context, outputChan chan<- models.MIngest, wg *sync.WaitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiSourceManager is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancelFunc = cancel
	m.outputChan = outputChan
	m.wg = wg

	for name, src := range m.Sources {
		if err := src.Start(m.ctx, m.outputChan, m.wg); err != nil {
			m.Logger.Error("Failed to start source %s: %v", name, err)
			return err
		}
		m.running[name] = true
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop stops all sources by cancelling the internal context
func (m *MultiSourceManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil // Already stopped
	}

	m.Logger.Info("Stopping MultiSourceManager...")
	for name, running := range m.running {
		if !running {
			continue
		}
		if err := m.Sources[name].Stop(); err != nil {
			m.Logger.Warning("Failed to stop source %s: %v", name, err)
		}
		m.running[name] = false
	}
	m.cancelFunc()
	m.cancelFunc = nil
	m.ctx = nil

	m.Logger.Info("MultiSourceManager Stopped.")
	return nil
}

// -----------------------------------------------------------------------------

// StartSource starts a specific source by name
func (m *MultiSourceManager) StartSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, exists := m.Sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}
	if m.ctx == nil {
		return fmt.Errorf("MultiSourceManager is not running")
	}
	if m.running[name] {
		return fmt.Errorf("source %s is already running", name)
	}

	if err := source.Start(m.ctx, m.outputChan, m.wg); err != nil {
		return err
	}
	m.running[name] = true
	return nil
}

// -----------------------------------------------------------------------------

// StopSource stops a specific source by name
func (m *MultiSourceManager) StopSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, exists := m.Sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}
	if !m.running[name] {
		return fmt.Errorf("source %s is not running", name)
	}

	if err := source.Stop(); err != nil {
		return err
	}
	m.running[name] = false
	return nil
}
