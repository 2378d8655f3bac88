package server

import "sync"

// Event announces a finished evaluation of one client.
type Event struct {
	Client   string           `json:"-"`
	Sequence uint64           `json:"sequence"`
	Result   EvaluateResponse `json:"result"`
}

// Notifier broadcasts evaluation events to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// NewNotifier creates a new Notifier instance.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives every broadcast event.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 8)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
}

// Broadcast sends evt to all listeners.
// Non-blocking: if a listener's channel is full, the event is skipped.
func (n *Notifier) Broadcast(evt Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
