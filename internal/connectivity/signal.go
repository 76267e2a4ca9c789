// Package connectivity tracks whether the remote grievance authority is reachable
// and notifies subscribers when that changes.
package connectivity

import "sync"

// Signal is a boolean online/offline flag with change notifications.
type Signal struct {
	mu      sync.RWMutex
	online  bool
	clients map[chan bool]struct{}
}

// NewSignal creates a signal in the given initial state.
func NewSignal(online bool) *Signal {
	return &Signal{
		online:  online,
		clients: make(map[chan bool]struct{}),
	}
}

// Online returns the current state.
func (s *Signal) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// Set updates the state. Subscribers are notified only when it actually changes.
// A subscriber that is not keeping up misses the notification instead of blocking Set.
func (s *Signal) Set(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online == online {
		return
	}
	s.online = online
	for ch := range s.clients {
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe returns a channel receiving every new state, and a cancel func
// that unsubscribes and closes the channel.
func (s *Signal) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 8)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.clients, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
