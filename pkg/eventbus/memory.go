package eventbus

import (
	"strings"
	"sync"
)

// MemoryBus is an in-process Bus used in tests so the coordinator can be
// exercised without a NATS server. Subject matching supports the same
// "*" (single token) and ">" (remaining tokens) wildcards as NATS.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]string // subscription -> subject pattern
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*Subscription]string)}
}

// Publish implements Bus.
func (b *MemoryBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, pattern := range b.subs {
		if subjectMatches(pattern, subject) {
			select {
			case sub.C <- Msg{Subject: subject, Data: data}:
			default:
				// Buffer full, drop rather than block the publisher.
			}
		}
	}
	return nil
}

// Subscribe implements Bus.
func (b *MemoryBus) Subscribe(subject string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(chan Msg, 64)
	sub := &Subscription{C: out}
	sub.unsubscribe = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		close(out)
	}

	b.subs[sub] = subject
	return sub, nil
}

// Close implements Bus.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		close(sub.C)
	}
	b.subs = make(map[*Subscription]string)
	return nil
}

func subjectMatches(pattern, subject string) bool {
	pTokens := strings.Split(pattern, ".")
	sTokens := strings.Split(subject, ".")

	for i, pt := range pTokens {
		if pt == ">" {
			return true
		}
		if i >= len(sTokens) {
			return false
		}
		if pt != "*" && pt != sTokens[i] {
			return false
		}
	}
	return len(pTokens) == len(sTokens)
}
