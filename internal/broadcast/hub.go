// Package broadcast fans job progress events out to live subscribers.
package broadcast

import (
	"sync"
	"time"

	"scribe/internal/jobs"
)

// Event is one observable change in a job's lifecycle. Events for a single
// job carry strictly increasing sequence numbers assigned at publish time.
type Event struct {
	Seq          int64       `json:"seq"`
	JobID        string      `json:"job_id"`
	Stage        jobs.Stage  `json:"stage"`
	Status       jobs.Status `json:"status"`
	Progress     int         `json:"progress"`
	Attempt      int         `json:"attempt"`
	Terminal     bool        `json:"terminal"`
	ErrorMessage string      `json:"error_message,omitempty"`
	At           time.Time   `json:"at"`
}

// Subscription receives events for one job, or for all jobs when subscribed
// without a filter. Slow consumers lose events rather than stall publishers.
type Subscription struct {
	hub   *Hub
	jobID string
	ch    chan Event
	once  sync.Once
}

// Events returns the channel delivering events in publish order.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Hub routes events from the pipeline to subscribers. A job publishes exactly
// one terminal event through a hub; later terminal publishes for the same job
// are dropped.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]map[*Subscription]struct{}
	seq        map[string]int64
	terminal   map[string]struct{}
	defaultBuf int
}

const defaultBuffer = 64

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:       make(map[string]map[*Subscription]struct{}),
		seq:        make(map[string]int64),
		terminal:   make(map[string]struct{}),
		defaultBuf: defaultBuffer,
	}
}

// Subscribe registers a listener for one job's events. An empty jobID
// subscribes to every job. A buffer of zero uses the hub default.
func (h *Hub) Subscribe(jobID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = h.defaultBuf
	}
	sub := &Subscription{hub: h, jobID: jobID, ch: make(chan Event, buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[jobID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[jobID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish stamps the event with the next sequence number for its job and
// delivers it to matching subscribers. It reports whether the event was
// accepted; a second terminal event for a job is rejected.
//
// Delivery happens under the hub lock. Close deregisters under the same lock
// before closing a subscription's channel, so a send can never race the close.
func (h *Hub) Publish(event Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, done := h.terminal[event.JobID]; done {
		return false
	}
	if event.Terminal {
		h.terminal[event.JobID] = struct{}{}
	}
	h.seq[event.JobID]++
	event.Seq = h.seq[event.JobID]
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	for sub := range h.subs[event.JobID] {
		sub.deliver(event)
	}
	for sub := range h.subs[""] {
		sub.deliver(event)
	}
	return true
}

// deliver is a non-blocking send. A subscriber whose buffer is full loses the
// event rather than stalling the pipeline.
func (s *Subscription) deliver(event Event) {
	select {
	case s.ch <- event:
	default:
	}
}

// Forget clears the terminal guard for a job so the retry path can publish a
// fresh event stream. The sequence counter keeps climbing so long-lived
// subscribers never see seq regress for a job.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.terminal, jobID)
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.jobID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.jobID)
	}
}
