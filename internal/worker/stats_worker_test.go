package worker

import (
	"context"
	"testing"
	"time"
)

func TestStatsWorkerCountsBallots(t *testing.T) {
	ch := make(chan VoteEvent, 4)
	w := NewStatsWorker(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	ch <- VoteEvent{PollID: 1, Options: 2}
	ch <- VoteEvent{PollID: 1, Options: 1}
	ch <- VoteEvent{PollID: 2, Options: 1, Anonymous: true}

	deadline := time.Now().Add(time.Second)
	for w.Ballots(1) != 2 || w.Ballots(2) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("worker did not process events: poll1=%d poll2=%d", w.Ballots(1), w.Ballots(2))
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop on cancel")
	}
}

func TestStatsWorkerStopsOnClosedChannel(t *testing.T) {
	ch := make(chan VoteEvent)
	w := NewStatsWorker(ch)
	close(ch)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop on closed channel")
	}
}
