package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry manages notifier instances
type Registry struct {
	mu         sync.RWMutex
	notifiers  map[string]Notifier
	closedOnly bool
	timeout    time.Duration
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewRegistry creates a new notifier registry. When closedOnly is set, only
// KindClosed events are delivered.
func NewRegistry(closedOnly bool, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		notifiers:  make(map[string]Notifier),
		closedOnly: closedOnly,
		timeout:    30 * time.Second,
		logger:     logger,
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// Names returns the registered notifier names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NotifyAll sends an event to all registered notifiers and returns the
// failures by notifier name.
func (r *Registry) NotifyAll(ctx context.Context, event Event) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	if r.closedOnly && event.Kind != KindClosed {
		return errs
	}
	for name, n := range r.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			errs[name] = err
		}
	}
	return errs
}

// Dispatch delivers the event in the background and logs failures.
func (r *Registry) Dispatch(event Event) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		for name, err := range r.NotifyAll(ctx, event) {
			r.logger.Warn("notification failed",
				zap.String("notifier", name),
				zap.String("signal_id", event.SignalID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every dispatched event has been delivered.
func (r *Registry) Wait() {
	r.wg.Wait()
}
