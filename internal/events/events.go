// Package events forwards council state changes to external sinks
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/council"
)

// Record is the wire form of one council event
type Record struct {
	Type       string    `json:"type"`
	Phase      string    `json:"phase"`
	MessageID  string    `json:"message_id,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text,omitempty"`
	At         time.Time `json:"at"`
}

// NewRecord flattens e. Message fields are empty for events that are not
// about a message.
func NewRecord(e council.Event) Record {
	r := Record{
		Type:  string(e.Type),
		Phase: string(e.Snapshot.Phase),
		At:    e.At,
	}
	if e.Message != nil {
		h := e.Message.Meta()
		r.MessageID = h.ID
		r.Kind = string(e.Message.Kind())
		r.SenderID = h.SenderID
		r.SenderName = h.SenderName
		r.Text = h.Text
	}
	return r
}

// Sink receives records
type Sink interface {
	Send(r Record) error
	Close() error
}

// Source is anything that publishes council events
type Source interface {
	Subscribe(fn func(council.Event)) (cancel func())
}

const queueSize = 256

// Forwarder copies events from a source to sinks on its own goroutine, so
// a slow sink never stalls a round
type Forwarder struct {
	sinks  []Sink
	queue  chan Record
	cancel func()
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	dropped int
}

// Attach subscribes to src and starts forwarding
func Attach(src Source, sinks ...Sink) *Forwarder {
	f := &Forwarder{
		sinks: sinks,
		queue: make(chan Record, queueSize),
	}

	f.wg.Add(1)
	go f.run()

	f.cancel = src.Subscribe(f.enqueue)
	return f
}

func (f *Forwarder) enqueue(e council.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	select {
	case f.queue <- NewRecord(e):
	default:
		f.dropped++
		log.Warn().Str("type", string(e.Type)).Msg("Event queue full, dropping event")
	}
}

func (f *Forwarder) run() {
	defer f.wg.Done()
	for r := range f.queue {
		for _, s := range f.sinks {
			if err := s.Send(r); err != nil {
				log.Warn().Err(err).Str("type", r.Type).Msg("Failed to forward event")
			}
		}
	}
}

// Dropped returns how many events were discarded because the queue was full
func (f *Forwarder) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Close unsubscribes, delivers what is queued and closes the sinks
func (f *Forwarder) Close() error {
	f.cancel()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	f.wg.Wait()

	var err error
	for _, s := range f.sinks {
		err = errors.Join(err, s.Close())
	}
	return err
}
