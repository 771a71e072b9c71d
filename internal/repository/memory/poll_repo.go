package memory

import (
	"context"
	"sort"
	"time"

	"cca-polling/internal/domain/poll"
)

type PollRepo struct {
	db *DB
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.nextPoll
	r.db.nextPoll++
	p.CreatedAt = time.Now()
	copyPoll := *p
	r.db.polls[p.ID] = &copyPoll

	cloned := make([]poll.Option, len(options))
	for i := range options {
		options[i].ID = r.db.nextOption
		r.db.nextOption++
		options[i].PollID = p.ID
		cloned[i] = options[i]
	}
	r.db.options[p.ID] = cloned
	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.polls[id]
	if !ok {
		return nil, nil, poll.ErrPollNotFound
	}
	copyPoll := *p
	opts := make([]poll.Option, len(r.db.options[id]))
	copy(opts, r.db.options[id])
	return &copyPoll, opts, nil
}

func (r *PollRepo) ListByCCAs(ctx context.Context, ccaIDs []int64) ([]poll.Poll, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	want := make(map[int64]struct{}, len(ccaIDs))
	for _, id := range ccaIDs {
		want[id] = struct{}{}
	}
	res := []poll.Poll{}
	for _, p := range r.db.polls {
		if _, ok := want[p.CCAID]; ok {
			res = append(res, *p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].EndTime.Before(res[j].EndTime) })
	return res, nil
}

func (r *PollRepo) ListWithVoteCounts(ctx context.Context) ([]poll.Summary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := make(map[int64]int64)
	for _, v := range r.db.votes {
		counts[v.PollID]++
	}
	res := make([]poll.Summary, 0, len(r.db.polls))
	for _, p := range r.db.polls {
		res = append(res, poll.Summary{Poll: *p, VoteCount: counts[p.ID]})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].EndTime.After(res[j].EndTime) })
	return res, nil
}

func (r *PollRepo) SetActive(ctx context.Context, id int64, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.polls[id]
	if !ok {
		return poll.ErrPollNotFound
	}
	p.IsActive = active
	return nil
}
