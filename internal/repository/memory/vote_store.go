package memory

import (
	"context"
	"sort"

	"cca-polling/internal/domain/vote"
)

type VoteStore struct {
	db *DB
}

func (s *VoteStore) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.hasVoted(pollID, userID), nil
}

func (s *VoteStore) SelectedOptions(ctx context.Context, pollID, userID int64) ([]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []int64
	for _, v := range s.db.votes {
		if v.PollID == pollID && v.VoterID == userID && userID != vote.AnonymousVoter {
			ids = append(ids, v.OptionID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *VoteStore) GetToken(ctx context.Context, pollID, userID int64) (*vote.Token, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tokens[tokenKey{pollID, userID}]
	if !ok {
		return nil, vote.ErrTokenNotFound
	}
	return &t, nil
}

func (s *VoteStore) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	res := make(map[int64]int64)
	for _, v := range s.db.votes {
		if v.PollID == pollID {
			res[v.OptionID]++
		}
	}
	return res, nil
}

func (s *VoteStore) CountBallots(ctx context.Context, pollID int64, anonymous bool) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	if anonymous {
		for k, t := range s.db.tokens {
			if k.pollID == pollID && t.Used {
				n++
			}
		}
		return n, nil
	}
	voters := make(map[int64]struct{})
	for _, v := range s.db.votes {
		if v.PollID == pollID && v.VoterID != vote.AnonymousVoter {
			voters[v.VoterID] = struct{}{}
		}
	}
	return int64(len(voters)), nil
}

func (s *VoteStore) ListAttributed(ctx context.Context, pollID int64) ([]vote.Vote, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var res []vote.Vote
	for _, v := range s.db.votes {
		if v.PollID == pollID && v.VoterID != vote.AnonymousVoter {
			res = append(res, v)
		}
	}
	return res, nil
}

func (s *VoteStore) DiscardUnusedTokens(ctx context.Context, userID int64) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for k, t := range s.db.tokens {
		if k.userID == userID && !t.Used {
			delete(s.db.tokens, k)
			n++
		}
	}
	return n, nil
}

func (s *VoteStore) InTx(ctx context.Context, fn func(tx vote.Tx) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	tx := &memTx{db: s.db, tokens: make(map[tokenKey]vote.Token)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, t := range tx.tokens {
		s.db.tokens[k] = t
	}
	for _, v := range tx.votes {
		v.ID = s.db.nextVote
		s.db.nextVote++
		s.db.votes = append(s.db.votes, v)
	}
	return nil
}

func (db *DB) hasVoted(pollID, userID int64) bool {
	for _, v := range db.votes {
		if v.PollID == pollID && v.VoterID == userID && userID != vote.AnonymousVoter {
			return true
		}
	}
	return false
}

// memTx runs with DB.mu held and buffers its writes.
type memTx struct {
	db     *DB
	tokens map[tokenKey]vote.Token
	votes  []vote.Vote
}

func (tx *memTx) LockVoter(ctx context.Context, userID int64) error {
	return nil
}

func (tx *memTx) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	if tx.db.hasVoted(pollID, userID) {
		return true, nil
	}
	for _, v := range tx.votes {
		if v.PollID == pollID && v.VoterID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) TokenForUpdate(ctx context.Context, pollID, userID int64) (*vote.Token, error) {
	k := tokenKey{pollID, userID}
	if t, ok := tx.tokens[k]; ok {
		return &t, nil
	}
	if t, ok := tx.db.tokens[k]; ok {
		return &t, nil
	}
	return nil, vote.ErrTokenNotFound
}

func (tx *memTx) SaveToken(ctx context.Context, t *vote.Token) error {
	k := tokenKey{t.PollID, t.UserID}
	if cur, err := tx.TokenForUpdate(ctx, t.PollID, t.UserID); err == nil && cur.Used {
		return nil
	}
	tx.tokens[k] = *t
	return nil
}

func (tx *memTx) MarkTokenUsed(ctx context.Context, pollID, userID int64) error {
	cur, err := tx.TokenForUpdate(ctx, pollID, userID)
	if err != nil {
		return err
	}
	cur.Used = true
	tx.tokens[tokenKey{pollID, userID}] = *cur
	return nil
}

func (tx *memTx) InsertVotes(ctx context.Context, votes []vote.Vote) error {
	for _, v := range votes {
		if v.VoterID != vote.AnonymousVoter {
			for _, existing := range tx.db.votes {
				if existing.PollID == v.PollID && existing.VoterID == v.VoterID && existing.OptionID == v.OptionID {
					return vote.ErrAlreadyVoted
				}
			}
		}
		tx.votes = append(tx.votes, v)
	}
	return nil
}
