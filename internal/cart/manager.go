package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/luciamoreno/gemashop-backend/pkg/logger"
)

type snapshotStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type snapshotKeyer interface {
	CartSnapshotKey(sessionID string) string
}

// Manager owns one ledger per session. The in-memory ledger is authoritative;
// every mutation also snapshots to Redis so a restarted process can restore a
// session's cart on first touch. Redis failures degrade to memory-only and
// are logged, never surfaced.
type Manager struct {
	mu      sync.Mutex
	ledgers map[string]*Ledger

	store snapshotStore
	keyer snapshotKeyer
	ttl   time.Duration
	logg  *logger.Logger
}

// ManagerDeps wires the manager's collaborators.
type ManagerDeps struct {
	Store       snapshotStore
	Keyer       snapshotKeyer
	SnapshotTTL time.Duration
	Logger      *logger.Logger
}

// NewManager builds a session cart manager. Store and keyer may be nil
// together, which disables snapshots.
func NewManager(deps ManagerDeps) (*Manager, error) {
	if (deps.Store == nil) != (deps.Keyer == nil) {
		return nil, fmt.Errorf("snapshot store and keyer must be provided together")
	}
	if deps.Store != nil && deps.SnapshotTTL <= 0 {
		return nil, fmt.Errorf("snapshot ttl must be positive")
	}
	return &Manager{
		ledgers: make(map[string]*Ledger),
		store:   deps.Store,
		keyer:   deps.Keyer,
		ttl:     deps.SnapshotTTL,
		logg:    deps.Logger,
	}, nil
}

// AddItem merges the product into the session's cart.
func (m *Manager) AddItem(ctx context.Context, sessionID string, product Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, err := m.ledger(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := ledger.AddItem(product); err != nil {
		return err
	}
	m.persist(ctx, sessionID, ledger)
	return nil
}

// UpdateQuantity applies a signed quantity delta to a cart line.
func (m *Manager) UpdateQuantity(ctx context.Context, sessionID string, itemID uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, err := m.ledger(ctx, sessionID)
	if err != nil {
		return err
	}
	ledger.UpdateQuantity(itemID, delta)
	m.persist(ctx, sessionID, ledger)
	return nil
}

// RemoveItem drops a cart line.
func (m *Manager) RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, err := m.ledger(ctx, sessionID)
	if err != nil {
		return err
	}
	ledger.RemoveItem(itemID)
	m.persist(ctx, sessionID, ledger)
	return nil
}

// Clear empties the session's cart and drops its snapshot.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, err := m.ledger(ctx, sessionID)
	if err != nil {
		return err
	}
	ledger.Clear()

	if m.store != nil {
		if err := m.store.Del(ctx, m.keyer.CartSnapshotKey(sessionID)); err != nil && m.logg != nil {
			m.logg.Warn(ctx, fmt.Sprintf("dropping cart snapshot for session %s: %v", sessionID, err))
		}
	}
	return nil
}

// View returns the session's cart lines and derived totals.
func (m *Manager) View(ctx context.Context, sessionID string) ([]Item, Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, err := m.ledger(ctx, sessionID)
	if err != nil {
		return nil, Totals{}, err
	}
	return ledger.Items(), ledger.Totals(), nil
}

// ValidateForCheckout runs the checkout gate against the session's cart.
func (m *Manager) ValidateForCheckout(ctx context.Context, sessionID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, err := m.ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ledger.ValidateForCheckout()
}

// ledger returns the session's ledger, restoring it from Redis the first time
// the session is touched by this process. Callers must hold m.mu.
func (m *Manager) ledger(ctx context.Context, sessionID string) (*Ledger, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if existing, ok := m.ledgers[sessionID]; ok {
		return existing, nil
	}

	ledger := NewLedger()
	if m.store != nil {
		raw, err := m.store.Get(ctx, m.keyer.CartSnapshotKey(sessionID))
		switch {
		case err == nil:
			var items []Item
			if unmarshalErr := json.Unmarshal([]byte(raw), &items); unmarshalErr != nil {
				if m.logg != nil {
					m.logg.Warn(ctx, fmt.Sprintf("discarding corrupt cart snapshot for session %s: %v", sessionID, unmarshalErr))
				}
			} else {
				ledger = RestoreLedger(items)
			}
		case errors.Is(err, redislib.Nil):
			// no snapshot, fresh cart
		default:
			if m.logg != nil {
				m.logg.Warn(ctx, fmt.Sprintf("restoring cart snapshot for session %s: %v", sessionID, err))
			}
		}
	}

	m.ledgers[sessionID] = ledger
	return ledger, nil
}

// persist snapshots the ledger to Redis. Best effort. Callers must hold m.mu.
func (m *Manager) persist(ctx context.Context, sessionID string, ledger *Ledger) {
	if m.store == nil {
		return
	}
	payload, err := json.Marshal(ledger.Items())
	if err != nil {
		if m.logg != nil {
			m.logg.Warn(ctx, fmt.Sprintf("serializing cart for session %s: %v", sessionID, err))
		}
		return
	}
	if err := m.store.Set(ctx, m.keyer.CartSnapshotKey(sessionID), payload, m.ttl); err != nil && m.logg != nil {
		m.logg.Warn(ctx, fmt.Sprintf("snapshotting cart for session %s: %v", sessionID, err))
	}
}
