package poll

import (
	"context"
	"time"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single"
	MultipleChoice QuestionType = "multiple"
)

type Poll struct {
	ID           int64        `json:"id"`
	CCAID        int64        `json:"cca_id"`
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"question_type"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      time.Time    `json:"end_time"`
	IsAnonymous  bool         `json:"is_anonymous"`
	IsActive     bool         `json:"is_active"`
	CreatedBy    int64        `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Option struct {
	ID     int64  `json:"id"`
	PollID int64  `json:"poll_id"`
	Text   string `json:"text"`
}

// Summary is a poll row annotated with its stored vote row count, used by
// the administrator listing.
type Summary struct {
	Poll
	VoteCount int64 `json:"vote_count"`
}

type Repository interface {
	Create(ctx context.Context, p *Poll, options []Option) (int64, error)
	// GetByID returns ErrPollNotFound when no poll has the given id.
	GetByID(ctx context.Context, id int64) (*Poll, []Option, error)
	ListByCCAs(ctx context.Context, ccaIDs []int64) ([]Poll, error)
	ListWithVoteCounts(ctx context.Context) ([]Summary, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
