// internal/storage/signal/memory.go
package signal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/signalbook/internal/core"
)

// MemoryStore is an in-memory signal store.
type MemoryStore struct {
	signals []core.Signal
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		signals: make([]core.Signal, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a signal to the store.
func (m *MemoryStore) Save(ctx context.Context, signal core.Signal) (string, error) {
	signal, err := prepareSignal(signal)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(signal.ID) >= 0 {
		return "", core.WrapError(core.ErrInvalidSignal, fmt.Errorf("duplicate id %s", signal.ID))
	}

	m.signals = append(m.signals, signal)

	// Trim if over capacity (remove oldest)
	if m.maxSize > 0 && len(m.signals) > m.maxSize {
		m.signals = m.signals[len(m.signals)-m.maxSize:]
	}

	return signal.ID, nil
}

// AppendAction appends an action to the signal's log.
func (m *MemoryStore) AppendAction(ctx context.Context, signalID string, action core.SignalAction) (*core.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(signalID)
	if i < 0 {
		return nil, core.ErrSignalNotFound
	}

	action, err := prepareAction(m.signals[i].Actions, action)
	if err != nil {
		return nil, err
	}
	m.signals[i].Actions = append(m.signals[i].Actions, action)
	sig := clone(m.signals[i])
	return &sig, nil
}

// GetByID retrieves a signal by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, core.ErrSignalNotFound
	}
	sig := clone(m.signals[i])
	return &sig, nil
}

// List returns signals matching the filter.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.Signal
	for _, sig := range m.signals {
		if filter.Matches(sig) {
			result = append(result, clone(sig))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return page(result, filter.Offset, filter.Limit), nil
}

// Count returns the count of matching signals.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sig := range m.signals {
		if filter.Matches(sig) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) indexOf(id string) int {
	for i := range m.signals {
		if m.signals[i].ID == id {
			return i
		}
	}
	return -1
}

// clone copies the action slice so callers cannot alter the stored log.
func clone(sig core.Signal) core.Signal {
	actions := make([]core.SignalAction, len(sig.Actions))
	copy(actions, sig.Actions)
	sig.Actions = actions
	return sig
}
