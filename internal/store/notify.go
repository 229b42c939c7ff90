package store

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNilObserver is returned when registering a nil channel.
var ErrNilObserver = errors.New("nil observer")

// Change announces that the rows at URI changed. URI is either a single row
// address or the collection address.
type Change struct {
	URI string
}

// Notifier fans change announcements out to registered channels.
//
// Delivery never blocks: when an observer is not ready to receive, the
// announcement is dropped for that observer and the writer carries on.
type Notifier struct {
	sync.RWMutex
	notifies []chan<- Change
}

// Register adds an observer.
func (n *Notifier) Register(notify chan<- Change) error {
	if notify == nil {
		return fmt.Errorf("register: %w", ErrNilObserver)
	}

	n.Lock()
	defer n.Unlock()

	n.notifies = append(n.notifies, notify)
	return nil
}

// Unregister removes an observer. Unknown channels are ignored.
func (n *Notifier) Unregister(notify chan<- Change) {
	n.Lock()
	defer n.Unlock()

	for i, c := range n.notifies {
		if c == notify {
			n.notifies = append(n.notifies[:i], n.notifies[i+1:]...)
			return
		}
	}
}

// Notify announces a change of uri to every observer.
func (n *Notifier) Notify(uri string) {
	n.RLock()
	defer n.RUnlock()

	for _, notify := range n.notifies {
		select {
		case notify <- Change{URI: uri}:
		default:
			// Observer is behind; drop rather than stall the writer.
		}
	}
}

// Register adds an observer of this store's changes.
func (s *Store) Register(notify chan<- Change) error {
	return s.notifier.Register(notify)
}

// Unregister removes an observer added with Register.
func (s *Store) Unregister(notify chan<- Change) {
	s.notifier.Unregister(notify)
}
