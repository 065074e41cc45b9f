package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"texture-extractor/internal/logger"
)

// Hook runs once when shutdown starts, in reverse registration order.
type Hook func()

// Manager cancels the run context on SIGINT/SIGTERM or an explicit Shutdown.
type Manager struct {
	hooks   []Hook
	logger  logger.Logger
	mu      sync.Mutex
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	sigChan chan os.Signal
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger: log,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *Manager) Register(hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

func (m *Manager) Listen() {
	m.mu.Lock()
	if m.sigChan != nil {
		m.mu.Unlock()
		return
	}
	m.sigChan = make(chan os.Signal, 1)
	sigChan := m.sigChan
	m.mu.Unlock()

	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown cancels the context and runs hooks. Later calls are no-ops.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.cancel()
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
	}

	for i := len(m.hooks) - 1; i >= 0; i-- {
		m.hooks[i]()
	}

	m.logger.Debug("ShutdownManager", "shutdown sequence completed", map[string]interface{}{
		"hooks": len(m.hooks),
	})
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
