package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
)

// Factory builds the strategy for a kind.
type Factory func(ctx context.Context, kind models.StrategyKind) (Strategy, error)

// Manager owns the active strategy and forwards the capability set to it.
// Switching kinds installs a fresh strategy, never mutates the active one.
type Manager struct {
	factory Factory

	// selectMu serializes switches end to end
	selectMu sync.Mutex

	mu          sync.RWMutex
	current     Strategy
	unsubscribe func()

	subs listeners
}

var _ Strategy = (*Manager)(nil)

func NewManager(factory Factory) *Manager {
	return &Manager{
		factory:     factory,
		current:     Loading{},
		unsubscribe: func() {},
	}
}

// Select switches to the strategy of the given kind. Selecting the active
// kind is a no-op. On failure the manager stays on Loading.
func (m *Manager) Select(ctx context.Context, kind models.StrategyKind) error {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	m.mu.RLock()
	active := m.current.Kind()
	m.mu.RUnlock()
	if active == kind {
		return nil
	}

	previous := m.install(Loading{})
	previous.Close()

	if m.factory == nil {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, kind)
	}
	next, err := m.factory(ctx, kind)
	if err != nil {
		zap.L().Error("Unable to build strategy", zap.String("kind", string(kind)), zap.Error(err))
		return fmt.Errorf("failed to select strategy %s: %w", kind, err)
	}

	m.install(next)
	zap.L().Info("Strategy selected", zap.String("kind", string(kind)))
	return nil
}

func (m *Manager) install(next Strategy) Strategy {
	m.mu.Lock()
	previous := m.current
	m.unsubscribe()
	m.current = next
	m.unsubscribe = next.Subscribe(m.subs.emit)
	m.mu.Unlock()

	m.subs.emit(next.Session())
	return previous
}

func (m *Manager) Current() Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) Kind() models.StrategyKind { return m.Current().Kind() }

func (m *Manager) Session() models.Session { return m.Current().Session() }

func (m *Manager) Login(ctx context.Context) error { return m.Current().Login(ctx) }

func (m *Manager) Logout(ctx context.Context) error { return m.Current().Logout(ctx) }

func (m *Manager) SignMessage(ctx context.Context, message string) (string, error) {
	return m.Current().SignMessage(ctx, message)
}

func (m *Manager) SendTransaction(ctx context.Context, tx provider.TransactionRequest) (common.Hash, error) {
	return m.Current().SendTransaction(ctx, tx)
}

func (m *Manager) Client() *api.Client { return m.Current().Client() }

// Subscribe follows session changes across strategy switches.
func (m *Manager) Subscribe(fn func(models.Session)) func() {
	return m.subs.add(fn)
}

func (m *Manager) Close() {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()

	previous := m.install(Loading{})
	previous.Close()
}
