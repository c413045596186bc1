package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type mockSnapshotStore struct {
	mu   sync.Mutex
	data map[string]string

	failSet bool
	failGet bool
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{data: make(map[string]string)}
}

func (m *mockSnapshotStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m.failSet {
		return errors.New("redis down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *mockSnapshotStore) Get(ctx context.Context, key string) (string, error) {
	if m.failGet {
		return "", errors.New("redis down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockSnapshotStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockSnapshotStore) CartSnapshotKey(sessionID string) string {
	return "gs:cart:" + sessionID
}

func newTestManager(t *testing.T, store *mockSnapshotStore) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerDeps{
		Store:       store,
		Keyer:       store,
		SnapshotTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestManagerSnapshotsEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	manager := newTestManager(t, store)

	session := "user-1"
	product := testProduct("ring", "250", 5)

	if err := manager.AddItem(ctx, session, product); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, ok := store.data[store.CartSnapshotKey(session)]; !ok {
		t.Fatal("expected snapshot after add")
	}

	if err := manager.UpdateQuantity(ctx, session, product.ID, 2); err != nil {
		t.Fatalf("update quantity: %v", err)
	}

	items, totals, err := manager.View(ctx, session)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("unexpected cart state: %+v", items)
	}
	assertDecimal(t, "subtotal", totals.Subtotal, "750")
}

func TestManagerRestoresFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	session := "user-2"
	product := testProduct("necklace", "900", 4)

	first := newTestManager(t, store)
	if err := first.AddItem(ctx, session, product); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := first.UpdateQuantity(ctx, session, product.ID, 1); err != nil {
		t.Fatalf("update quantity: %v", err)
	}

	// a fresh process sees the same Redis
	second := newTestManager(t, store)
	items, totals, err := second.View(ctx, session)
	if err != nil {
		t.Fatalf("view restored cart: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected restored line, got %d", len(items))
	}
	if items[0].ID != product.ID || items[0].Quantity != 2 {
		t.Fatalf("restored line mismatch: %+v", items[0])
	}
	if items[0].StockCeiling != 4 {
		t.Fatalf("ceiling lost in round trip: %d", items[0].StockCeiling)
	}
	assertDecimal(t, "subtotal", totals.Subtotal, "1800")
}

func TestManagerClearDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	manager := newTestManager(t, store)
	session := "user-3"

	if err := manager.AddItem(ctx, session, testProduct("ring", "250", 5)); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := manager.Clear(ctx, session); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, ok := store.data[store.CartSnapshotKey(session)]; ok {
		t.Fatal("expected snapshot removal on clear")
	}
	items, _, err := manager.View(ctx, session)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(items))
	}
}

func TestManagerToleratesStoreFailures(t *testing.T) {
	ctx := context.Background()
	store := newMockSnapshotStore()
	store.failSet = true
	store.failGet = true
	manager := newTestManager(t, store)
	session := "user-4"
	product := testProduct("ring", "250", 5)

	// Redis being down never fails cart operations
	if err := manager.AddItem(ctx, session, product); err != nil {
		t.Fatalf("add item with store down: %v", err)
	}
	items, _, err := manager.View(ctx, session)
	if err != nil {
		t.Fatalf("view with store down: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected in-memory cart to work, got %d lines", len(items))
	}
}

func TestManagerIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, newMockSnapshotStore())

	if err := manager.AddItem(ctx, "user-a", testProduct("ring", "250", 5)); err != nil {
		t.Fatalf("add item: %v", err)
	}

	items, _, err := manager.View(ctx, "user-b")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(items) != 0 {
		t.Fatal("sessions must not share carts")
	}
}

func TestManagerRejectsBlankSession(t *testing.T) {
	manager := newTestManager(t, newMockSnapshotStore())
	if err := manager.AddItem(context.Background(), "  ", testProduct("ring", "250", 5)); err == nil {
		t.Fatal("expected error for blank session id")
	}
}

func TestManagerRejectsUnknownItemErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, newMockSnapshotStore())
	session := "user-5"
	product := testProduct("bracelet", "120", 0)

	err := manager.AddItem(ctx, session, product)
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}

	if _, err := manager.ValidateForCheckout(ctx, session); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}
