package broadcast

import (
	"sync"
	"testing"

	"scribe/internal/jobs"
)

func drain(sub *Subscription) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestPublishAssignsOrderedSequence(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("job-1", 8)
	defer sub.Close()

	for i := 0; i < 3; i++ {
		if !hub.Publish(Event{JobID: "job-1", Stage: jobs.StageUpload, Progress: i * 10}) {
			t.Fatalf("publish %d rejected", i)
		}
	}
	events := drain(sub)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		if ev.At.IsZero() {
			t.Fatalf("event %d missing timestamp", i)
		}
	}
}

func TestSequenceIsPerJob(t *testing.T) {
	hub := NewHub()
	all := hub.Subscribe("", 8)
	defer all.Close()

	hub.Publish(Event{JobID: "job-a"})
	hub.Publish(Event{JobID: "job-b"})
	hub.Publish(Event{JobID: "job-a"})

	events := drain(all)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Seq != 1 || events[1].Seq != 1 || events[2].Seq != 2 {
		t.Fatalf("sequences not per-job: %d %d %d", events[0].Seq, events[1].Seq, events[2].Seq)
	}
}

func TestSecondTerminalEventRejected(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("job-1", 8)
	defer sub.Close()

	if !hub.Publish(Event{JobID: "job-1", Stage: jobs.StageCompleted, Terminal: true}) {
		t.Fatal("first terminal publish rejected")
	}
	if hub.Publish(Event{JobID: "job-1", Stage: jobs.StageFailed, Terminal: true}) {
		t.Fatal("second terminal publish accepted")
	}
	if hub.Publish(Event{JobID: "job-1", Stage: jobs.StageMinutes}) {
		t.Fatal("post-terminal publish accepted")
	}
	events := drain(sub)
	if len(events) != 1 || !events[0].Terminal {
		t.Fatalf("expected exactly the terminal event, got %+v", events)
	}
}

func TestForgetReopensStream(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{JobID: "job-1", Terminal: true})
	if hub.Publish(Event{JobID: "job-1"}) {
		t.Fatal("publish accepted after terminal")
	}

	hub.Forget("job-1")
	sub := hub.Subscribe("job-1", 8)
	defer sub.Close()
	if !hub.Publish(Event{JobID: "job-1", Stage: jobs.StageTranscription}) {
		t.Fatal("publish rejected after Forget")
	}
	events := drain(sub)
	if len(events) != 1 || events[0].Seq != 2 {
		t.Fatalf("expected sequence to continue after Forget, got %+v", events)
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("job-1", 1)
	defer sub.Close()

	hub.Publish(Event{JobID: "job-1", Progress: 1})
	// Buffer is full; this publish must return immediately.
	hub.Publish(Event{JobID: "job-1", Progress: 2})

	events := drain(sub)
	if len(events) != 1 || events[0].Progress != 1 {
		t.Fatalf("expected only the buffered event, got %+v", events)
	}
}

func TestConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub()

	const subscribers = 8
	subs := make([]*Subscription, subscribers)
	for i := range subs {
		subs[i] = hub.Subscribe("job-1", 1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			hub.Publish(Event{JobID: "job-1", Progress: i % 100})
		}
	}()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			sub.Close()
		}(sub)
	}
	wg.Wait()
	<-done

	if !hub.Publish(Event{JobID: "job-1"}) {
		t.Fatal("publish rejected after all subscribers closed")
	}
}

func TestCloseDetachesSubscription(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("job-1", 4)
	sub.Close()
	sub.Close() // idempotent

	if !hub.Publish(Event{JobID: "job-1"}) {
		t.Fatal("publish rejected after subscriber closed")
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("closed subscription still delivering")
	}
}
