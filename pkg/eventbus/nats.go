package eventbus

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NatsBus is the production Bus implementation, backed by a NATS server.
type NatsBus struct {
	conn *nats.Conn
}

// Dial connects to the given NATS URL (e.g. "nats://localhost:4222").
func Dial(url string) (*NatsBus, error) {
	conn, err := nats.Connect(url, nats.Name("corral"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &NatsBus{conn: conn}, nil
}

// Publish implements Bus.
func (b *NatsBus) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Subscribe implements Bus.
func (b *NatsBus) Subscribe(subject string) (*Subscription, error) {
	out := make(chan Msg, 64)

	sub, err := b.conn.Subscribe(subject, func(m *nats.Msg) {
		select {
		case out <- Msg{Subject: m.Subject, Data: m.Data}:
		default:
			// Slow subscriber; drop rather than block the NATS dispatch
			// goroutine.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	return &Subscription{
		C: out,
		unsubscribe: func() {
			_ = sub.Unsubscribe()
			close(out)
		},
	}, nil
}

// Healthy reports whether the NATS connection is currently usable,
// with the connection state in the error text when it is not.
func (b *NatsBus) Healthy() error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", b.conn.Status())
	}
	return nil
}

// Close implements Bus.
func (b *NatsBus) Close() error {
	b.conn.Close()
	return nil
}
