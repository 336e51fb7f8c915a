package store

import (
	"context"
	"slices"
	"sync"
)

// Listeners is a set of session listeners that adapters embed.
type Listeners struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]SessionListener
}

func (l *Listeners) OnSessionChange(listener SessionListener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listeners == nil {
		l.listeners = make(map[int]SessionListener)
	}
	id := l.nextID
	l.nextID++
	l.listeners[id] = listener

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// Notify calls every registered listener in registration order, outside the lock.
func (l *Listeners) Notify(ctx context.Context, event SessionEvent, session *Session) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.listeners))
	for id := range l.listeners {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		l.mu.Lock()
		listener, ok := l.listeners[id]
		l.mu.Unlock()
		if ok {
			listener(ctx, event, session)
		}
	}
}
