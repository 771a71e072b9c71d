package vote

import (
	"context"
	"errors"
	"time"

	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
)

const DefaultTokenTTL = 10 * time.Minute

type PollReader interface {
	GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error)
}

// Members is the membership collaborator.
type Members interface {
	IsEligible(ctx context.Context, userID, ccaID int64) (bool, error)
	IsModerator(ctx context.Context, userID, ccaID int64) (bool, error)
	MemberCount(ctx context.Context, ccaID int64) (int64, error)
	Names(ctx context.Context, userIDs []int64) (map[int64]string, error)
}

type Config struct {
	TokenSecret []byte
	TokenTTL    time.Duration
	Now         func() time.Time
}

type Service struct {
	store   Store
	polls   PollReader
	members Members
	cfg     Config
}

func NewService(store Store, polls PollReader, members Members, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: store, polls: polls, members: members, cfg: cfg}
}

type Status struct {
	Poll              *poll.Poll    `json:"poll"`
	Options           []poll.Option `json:"options"`
	Phase             poll.Phase    `json:"phase"`
	HasVoted          bool          `json:"has_voted"`
	VoteToken         string        `json:"vote_token,omitempty"`
	TokenExpiresAt    *time.Time    `json:"token_expires_at,omitempty"`
	SelectedOptionIDs []int64       `json:"selected_option_ids,omitempty"`
}

// Receipt confirms a recorded ballot. It never names the voter.
type Receipt struct {
	PollID    int64     `json:"poll_id"`
	Options   int       `json:"options"`
	Anonymous bool      `json:"anonymous"`
	VotedAt   time.Time `json:"voted_at"`
}

// Status describes the poll from the caller's point of view. Opening an
// active anonymous poll issues (or rotates) the caller's vote token.
func (s *Service) Status(ctx context.Context, pollID int64, caller user.Caller) (*Status, error) {
	p, opts, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now()
	st := &Status{Poll: p, Options: opts, Phase: poll.PhaseAt(p, now)}

	if caller.IsAdmin() {
		return st, nil
	}
	ok, err := s.members.IsEligible(ctx, caller.UserID, p.CCAID)
	if err != nil {
		return nil, storageFailure(err)
	}
	if !ok {
		return nil, ErrNotEligible
	}

	if !p.IsAnonymous {
		selected, err := s.store.SelectedOptions(ctx, p.ID, caller.UserID)
		if err != nil {
			return nil, storageFailure(err)
		}
		st.HasVoted = len(selected) > 0
		st.SelectedOptionIDs = selected
		return st, nil
	}

	if st.Phase != poll.PhaseActive {
		t, err := s.store.GetToken(ctx, p.ID, caller.UserID)
		if err != nil && !errors.Is(err, ErrTokenNotFound) {
			return nil, storageFailure(err)
		}
		st.HasVoted = t != nil && t.Used
		return st, nil
	}

	issued, err := s.issueOrReuse(ctx, p.ID, caller.UserID, now)
	if err != nil {
		return nil, err
	}
	st.HasVoted = issued.Consumed
	if !issued.Consumed {
		st.VoteToken = issued.Raw
		st.TokenExpiresAt = &issued.ExpiresAt
	}
	return st, nil
}

// Submit records one ballot. Checks run in a fixed order and the first
// failure is returned; token consumption and the vote rows are committed
// together or not at all.
func (s *Service) Submit(ctx context.Context, pollID int64, caller user.Caller, optionIDs []int64, rawToken string) (*Receipt, error) {
	p, opts, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if caller.IsAdmin() {
		return nil, ErrNotEligible
	}
	ok, err := s.members.IsEligible(ctx, caller.UserID, p.CCAID)
	if err != nil {
		return nil, storageFailure(err)
	}
	if !ok {
		return nil, ErrNotEligible
	}

	now := s.cfg.Now()
	if poll.PhaseAt(p, now) != poll.PhaseActive {
		return nil, ErrPollNotActive
	}

	if err := s.checkNotVoted(ctx, p, caller.UserID, rawToken); err != nil {
		return nil, err
	}
	if err := validateSelection(p, opts, optionIDs); err != nil {
		return nil, err
	}
	if p.IsAnonymous && rawToken == "" {
		return nil, ErrMissingToken
	}

	voter := caller.UserID
	if p.IsAnonymous {
		voter = AnonymousVoter
	}
	votes := make([]Vote, 0, len(optionIDs))
	for _, id := range optionIDs {
		votes = append(votes, Vote{PollID: p.ID, OptionID: id, VoterID: voter, VotedAt: now})
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if p.IsAnonymous {
			if err := s.validateAndConsume(ctx, tx, p.ID, caller.UserID, rawToken, now); err != nil {
				return err
			}
		} else {
			if err := tx.LockVoter(ctx, caller.UserID); err != nil {
				return err
			}
			voted, err := tx.HasVoted(ctx, p.ID, caller.UserID)
			if err != nil {
				return err
			}
			if voted {
				return ErrAlreadyVoted
			}
		}
		return tx.InsertVotes(ctx, votes)
	})
	if err != nil {
		return nil, storageFailure(err)
	}

	return &Receipt{PollID: p.ID, Options: len(votes), Anonymous: p.IsAnonymous, VotedAt: now}, nil
}

func (s *Service) loadPoll(ctx context.Context, pollID int64) (*poll.Poll, []poll.Option, error) {
	p, opts, err := s.polls.GetByID(ctx, pollID)
	if errors.Is(err, poll.ErrPollNotFound) {
		return nil, nil, ErrPollNotFound
	}
	if err != nil {
		return nil, nil, storageFailure(err)
	}
	return p, opts, nil
}

// checkNotVoted is the early duplicate check. It is repeated under lock
// inside the write transaction.
func (s *Service) checkNotVoted(ctx context.Context, p *poll.Poll, userID int64, rawToken string) error {
	if !p.IsAnonymous {
		voted, err := s.store.HasVoted(ctx, p.ID, userID)
		if err != nil {
			return storageFailure(err)
		}
		if voted {
			return ErrAlreadyVoted
		}
		return nil
	}

	t, err := s.store.GetToken(ctx, p.ID, userID)
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return storageFailure(err)
	}
	if !t.Used {
		return nil
	}
	if rawToken != "" && tokenMatches(t.Hash, hashToken(s.cfg.TokenSecret, p.ID, userID, rawToken)) {
		return ErrTokenAlreadyUsed
	}
	return ErrAlreadyVoted
}

func validateSelection(p *poll.Poll, opts []poll.Option, optionIDs []int64) error {
	valid := make(map[int64]struct{}, len(opts))
	for _, o := range opts {
		valid[o.ID] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		if _, ok := valid[id]; !ok {
			return ErrInvalidOption
		}
		if _, dup := seen[id]; dup {
			return ErrCardinality
		}
		seen[id] = struct{}{}
	}

	switch p.QuestionType {
	case poll.SingleChoice:
		if len(optionIDs) != 1 {
			return ErrCardinality
		}
	default:
		if len(optionIDs) == 0 {
			return ErrCardinality
		}
	}
	return nil
}
