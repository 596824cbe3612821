package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwalitptl/notify-api/pkg/messaging"
)

// Broker is an in-process implementation of messaging.Broker with the same
// contract as the Redis broker: no replay, subscribers only see messages
// published while subscribed. Used in tests and single-node deployments.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	closed bool
}

var _ messaging.Broker = (*Broker)(nil)

type subscriber struct {
	ch   chan []byte
	done <-chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]*subscriber)}
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	for _, sub := range b.subs[channel] {
		select {
		case sub.ch <- payload:
		case <-sub.done:
		default:
			// Slow consumer: drop, same as the Redis broker.
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("broker is closed")
	}

	sub := &subscriber{
		ch:   make(chan []byte, 100),
		done: ctx.Done(),
	}
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		subs := b.subs[channel]
		for i, s := range subs {
			if s == sub {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
