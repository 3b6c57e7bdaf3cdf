package sync

import (
	gosync "sync"

	"github.com/bigtime/bigtime/internal/model"
)

// Listener receives engine events. Callbacks run on the syncing goroutine,
// so they must return quickly.
type Listener interface {
	// StatusChanged fires whenever the engine recomputes sync status:
	// before and after every sync pass, and on connectivity changes.
	StatusChanged(status model.SyncStatus)

	// EmployeesSynced fires after an inbound pass changed the local
	// employee table, so UIs can refresh their rosters.
	EmployeesSynced()
}

// notifier fans events out to registered listeners.
type notifier struct {
	mu        gosync.Mutex
	listeners []Listener
}

func (n *notifier) subscribe(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

func (n *notifier) statusChanged(status model.SyncStatus) {
	n.mu.Lock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()
	for _, l := range listeners {
		l.StatusChanged(status)
	}
}

func (n *notifier) employeesSynced() {
	n.mu.Lock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()
	for _, l := range listeners {
		l.EmployeesSynced()
	}
}
