// Package kafkatest records published messages in memory.
package kafkatest

import (
	"context"
	"sync"

	"ms-travel-sales/internal/kafka"
)

type Message struct {
	Topic string
	Key   string
	Value []byte
}

type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Publish(_ context.Context, topic, key string, value []byte) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Topic: topic, Key: key, Value: value})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Topic returns the decoded envelopes published to topic.
func (r *Recorder) Topic(topic string) []kafka.Envelope {
	var out []kafka.Envelope
	for _, m := range r.Messages() {
		if m.Topic != topic {
			continue
		}
		if env, err := kafka.DecodeEnvelope(m.Value); err == nil {
			out = append(out, env)
		}
	}
	return out
}
