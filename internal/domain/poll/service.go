package poll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"cca-polling/internal/domain/user"
)

const (
	minOptions = 2
	maxOptions = 10
)

var (
	ErrPollNotFound        = errors.New("poll not found")
	ErrQuestionRequired    = errors.New("question required")
	ErrInvalidQuestionType = errors.New("question type must be single or multiple")
	ErrOptionCount         = errors.New("poll must have between 2 and 10 options")
	ErrDuplicateOption     = errors.New("option texts must be unique")
	ErrInvalidDates        = errors.New("end time must be after start time")
	ErrForbidden           = errors.New("caller cannot manage polls of this cca")
)

// Members is the slice of the membership collaborator the poll service needs.
type Members interface {
	IsModerator(ctx context.Context, userID, ccaID int64) (bool, error)
	CCAsOf(ctx context.Context, userID int64) ([]int64, error)
}

// Listing is a poll as shown to a member: its current phase and how long
// until it closes.
type Listing struct {
	Poll
	Phase    Phase  `json:"phase"`
	ClosesIn string `json:"closes_in,omitempty"`
}

type Service struct {
	repo    Repository
	members Members
	now     func() time.Time
}

func NewService(repo Repository, members Members) *Service {
	return &Service{repo: repo, members: members, now: time.Now}
}

func (s *Service) Create(ctx context.Context, caller user.Caller, p *Poll, options []Option) (int64, error) {
	if err := s.authorize(ctx, caller, p.CCAID); err != nil {
		return 0, err
	}

	p.Question = strings.TrimSpace(p.Question)
	if p.Question == "" {
		return 0, ErrQuestionRequired
	}
	if p.QuestionType != SingleChoice && p.QuestionType != MultipleChoice {
		return 0, ErrInvalidQuestionType
	}
	if !p.EndTime.After(p.StartTime) {
		return 0, ErrInvalidDates
	}
	if len(options) < minOptions || len(options) > maxOptions {
		return 0, ErrOptionCount
	}

	seen := make(map[string]struct{}, len(options))
	for i := range options {
		options[i].Text = strings.TrimSpace(options[i].Text)
		key := strings.ToLower(options[i].Text)
		if key == "" {
			return 0, ErrOptionCount
		}
		if _, dup := seen[key]; dup {
			return 0, ErrDuplicateOption
		}
		seen[key] = struct{}{}
	}

	p.IsActive = true
	p.CreatedBy = caller.UserID
	return s.repo.Create(ctx, p, options)
}

func (s *Service) Get(ctx context.Context, id int64) (*Poll, []Option, error) {
	return s.repo.GetByID(ctx, id)
}

// SetActive flips the administrative kill-switch. A disabled poll is closed
// regardless of its time window.
func (s *Service) SetActive(ctx context.Context, caller user.Caller, id int64, active bool) error {
	p, _, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, caller, p.CCAID); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

// ListForMember returns the polls of every CCA the caller belongs to.
func (s *Service) ListForMember(ctx context.Context, caller user.Caller) ([]Listing, error) {
	ccaIDs, err := s.members.CCAsOf(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(ccaIDs) == 0 {
		return []Listing{}, nil
	}

	polls, err := s.repo.ListByCCAs(ctx, ccaIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := make([]Listing, 0, len(polls))
	for _, p := range polls {
		l := Listing{Poll: p, Phase: PhaseAt(&p, now)}
		if l.Phase != PhaseClosed {
			l.ClosesIn = humanize.RelTime(p.EndTime, now, "ago", "left")
		}
		res = append(res, l)
	}
	return res, nil
}

func (s *Service) ListAll(ctx context.Context, caller user.Caller) ([]Summary, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.ListWithVoteCounts(ctx)
}

func (s *Service) authorize(ctx context.Context, caller user.Caller, ccaID int64) error {
	if caller.IsAdmin() {
		return nil
	}
	ok, err := s.members.IsModerator(ctx, caller.UserID, ccaID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
