package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cca-polling/internal/logger"
	"cca-polling/internal/metrics"
)

// VoteEvent describes a recorded ballot. It deliberately has no voter field:
// events of anonymous polls must be indistinguishable from each other.
type VoteEvent struct {
	PollID    int64
	Options   int
	Anonymous bool
}

// StatsWorker keeps running ballot counts per poll off the request path.
type StatsWorker struct {
	Ch <-chan VoteEvent

	mu      sync.Mutex
	ballots map[int64]int64
}

func NewStatsWorker(ch <-chan VoteEvent) *StatsWorker {
	return &StatsWorker{Ch: ch, ballots: make(map[int64]int64)}
}

func (w *StatsWorker) Run(ctx context.Context) {
	logger.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("stats worker stopped")
			return
		case ev, ok := <-w.Ch:
			if !ok {
				logger.Info("stats worker channel closed")
				return
			}
			w.handle(ev)
		}
	}
}

func (w *StatsWorker) handle(ev VoteEvent) {
	w.mu.Lock()
	w.ballots[ev.PollID]++
	n := w.ballots[ev.PollID]
	w.mu.Unlock()

	metrics.AddVotesRecorded(ev.Anonymous, ev.Options)
	logger.Debug("ballot recorded",
		zap.Int64("poll_id", ev.PollID),
		zap.Int("options", ev.Options),
		zap.Bool("anonymous", ev.Anonymous),
		zap.Int64("ballots_seen", n),
	)
}

// Ballots returns how many ballots the worker has seen for a poll since start.
func (w *StatsWorker) Ballots(pollID int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ballots[pollID]
}
