package events

import (
	"context"
	"sync"
)

type Recorded struct {
	Topic string
	Key   string
	Event Event
}

// Recorder keeps published events in memory. Tests use it in place of kafka.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Recorded{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the "type" field of every recorded event on topic.
func (r *Recorder) Types(topic string) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Topic == topic {
			t, _ := ev.Event["type"].(string)
			out = append(out, t)
		}
	}
	return out
}
