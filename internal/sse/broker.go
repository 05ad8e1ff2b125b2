// Package sse fans domain events out to server-sent-event subscribers.
package sse

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Message is one event as published on a topic.
type Message struct {
	Topic string
	Key   string
	Data  []byte
}

// Broker keeps in-process subscribers per topic. It satisfies
// kafka.Publisher so the emitter can feed it next to the Kafka producer.
type Broker struct {
	mu      sync.RWMutex
	clients map[string][]chan Message
	closed  bool
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[string][]chan Message)}
}

// Subscribe registers a client on the given topics. The channel is closed
// once ctx is done or the broker shuts down.
func (b *Broker) Subscribe(ctx context.Context, topics ...string) <-chan Message {
	ch := make(chan Message, 10)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	for _, t := range topics {
		b.clients[t] = append(b.clients[t], ch)
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(ch, topics)
	}()
	return ch
}

// Publish delivers to every subscriber of topic. Slow clients whose buffer
// is full miss the message.
func (b *Broker) Publish(_ context.Context, topic, key string, value []byte) error {
	msg := Message{Topic: topic, Key: key, Data: value}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.clients[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Close disconnects every subscriber.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	seen := make(map[chan Message]bool)
	for _, list := range b.clients {
		for _, ch := range list {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
	}
	b.clients = make(map[string][]chan Message)
	return nil
}

func (b *Broker) remove(ch chan Message, topics []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, t := range topics {
		list := b.clients[t]
		for i, c := range list {
			if c == ch {
				b.clients[t] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(b.clients[t]) == 0 {
			delete(b.clients, t)
		}
	}
	close(ch)
}

// ClientCount returns the number of subscribers on topic.
func (b *Broker) ClientCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[topic])
}

// Write renders msg in the text/event-stream format.
func Write(w io.Writer, msg Message) error {
	_, err := fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", msg.Topic, msg.Key, msg.Data)
	return err
}
