package vote

import (
	"context"
	"math"
	"sort"

	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
)

type OptionResult struct {
	OptionID   int64   `json:"option_id"`
	Text       string  `json:"text"`
	VoteCount  int64   `json:"vote_count"`
	Percentage float64 `json:"percentage"`
}

type VoterChoice struct {
	VoterName  string `json:"voter_name"`
	OptionText string `json:"option_text"`
}

type Aggregate struct {
	PollID            int64          `json:"poll_id"`
	Question          string         `json:"question"`
	IsAnonymous       bool           `json:"is_anonymous"`
	Phase             poll.Phase     `json:"phase"`
	TotalVotes        int64          `json:"total_votes"`
	TotalBallots      int64          `json:"total_ballots"`
	EligibleMembers   int64          `json:"eligible_members"`
	ParticipationRate float64        `json:"participation_rate"`
	Options           []OptionResult `json:"options"`
	Voters            []VoterChoice  `json:"voters,omitempty"`
}

// Results aggregates a poll. Anonymous results are restricted to the CCA's
// moderators and system administrators, and never carry voter data.
func (s *Service) Results(ctx context.Context, pollID int64, caller user.Caller) (*Aggregate, error) {
	p, opts, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeResults(ctx, p, caller); err != nil {
		return nil, err
	}

	counts, err := s.store.CountByPoll(ctx, p.ID)
	if err != nil {
		return nil, storageFailure(err)
	}
	ballots, err := s.store.CountBallots(ctx, p.ID, p.IsAnonymous)
	if err != nil {
		return nil, storageFailure(err)
	}
	members, err := s.members.MemberCount(ctx, p.CCAID)
	if err != nil {
		return nil, storageFailure(err)
	}

	agg := &Aggregate{
		PollID:          p.ID,
		Question:        p.Question,
		IsAnonymous:     p.IsAnonymous,
		Phase:           poll.PhaseAt(p, s.cfg.Now()),
		TotalBallots:    ballots,
		EligibleMembers: members,
		Options:         make([]OptionResult, 0, len(opts)),
	}
	for _, o := range opts {
		agg.TotalVotes += counts[o.ID]
	}
	for _, o := range opts {
		agg.Options = append(agg.Options, OptionResult{
			OptionID:   o.ID,
			Text:       o.Text,
			VoteCount:  counts[o.ID],
			Percentage: percent(counts[o.ID], agg.TotalVotes),
		})
	}
	sort.Slice(agg.Options, func(i, j int) bool {
		a, b := agg.Options[i], agg.Options[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		return a.OptionID < b.OptionID
	})
	// Ballots, not vote rows: a multiple-choice ballot writes several rows.
	agg.ParticipationRate = percent(ballots, members)

	if p.IsAnonymous {
		return agg, nil
	}

	voters, err := s.attributedChoices(ctx, p.ID, opts)
	if err != nil {
		return nil, err
	}
	agg.Voters = voters
	return agg, nil
}

func (s *Service) authorizeResults(ctx context.Context, p *poll.Poll, caller user.Caller) error {
	if caller.IsAdmin() {
		return nil
	}
	if p.IsAnonymous {
		mod, err := s.members.IsModerator(ctx, caller.UserID, p.CCAID)
		if err != nil {
			return storageFailure(err)
		}
		if !mod {
			return ErrNotAuthorized
		}
		return nil
	}
	ok, err := s.members.IsEligible(ctx, caller.UserID, p.CCAID)
	if err != nil {
		return storageFailure(err)
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) attributedChoices(ctx context.Context, pollID int64, opts []poll.Option) ([]VoterChoice, error) {
	votes, err := s.store.ListAttributed(ctx, pollID)
	if err != nil {
		return nil, storageFailure(err)
	}

	texts := make(map[int64]string, len(opts))
	for _, o := range opts {
		texts[o.ID] = o.Text
	}
	ids := make([]int64, 0, len(votes))
	seen := make(map[int64]struct{}, len(votes))
	for _, v := range votes {
		if _, ok := seen[v.VoterID]; !ok {
			seen[v.VoterID] = struct{}{}
			ids = append(ids, v.VoterID)
		}
	}
	names, err := s.members.Names(ctx, ids)
	if err != nil {
		return nil, storageFailure(err)
	}

	sort.SliceStable(votes, func(i, j int) bool {
		ni, nj := names[votes[i].VoterID], names[votes[j].VoterID]
		if ni != nj {
			return ni < nj
		}
		return votes[i].OptionID < votes[j].OptionID
	})
	res := make([]VoterChoice, 0, len(votes))
	for _, v := range votes {
		res = append(res, VoterChoice{VoterName: names[v.VoterID], OptionText: texts[v.OptionID]})
	}
	return res, nil
}

// percent returns part/whole*100 rounded to one decimal place, or 0 for an
// empty whole.
func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(whole)) / 10
}
