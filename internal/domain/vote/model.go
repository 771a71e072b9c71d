package vote

import (
	"context"
	"time"
)

// AnonymousVoter is the voter identity recorded on every vote row of an
// anonymous poll. Stores persist it as NULL.
const AnonymousVoter int64 = 0

type Vote struct {
	ID       int64     `json:"id"`
	PollID   int64     `json:"poll_id"`
	OptionID int64     `json:"option_id"`
	VoterID  int64     `json:"voter_id,omitempty"`
	VotedAt  time.Time `json:"voted_at"`
}

// Token is the stored half of an anonymous-poll vote token. Only the hash of
// the raw value is ever persisted. There is at most one row per (poll, user).
type Token struct {
	Hash      string
	PollID    int64
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	Used      bool
}

// Store is the read side of the poll store plus the entry point for atomic
// units of work.
type Store interface {
	HasVoted(ctx context.Context, pollID, userID int64) (bool, error)
	SelectedOptions(ctx context.Context, pollID, userID int64) ([]int64, error)
	// GetToken returns ErrTokenNotFound when no token was ever issued.
	GetToken(ctx context.Context, pollID, userID int64) (*Token, error)
	CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error)
	// CountBallots counts distinct ballots: voters for attributable polls,
	// consumed tokens for anonymous ones.
	CountBallots(ctx context.Context, pollID int64, anonymous bool) (int64, error)
	ListAttributed(ctx context.Context, pollID int64) ([]Vote, error)
	// DiscardUnusedTokens drops every live token of the user across polls.
	// Consumed tokens stay, they are the anonymous ballot count.
	DiscardUnusedTokens(ctx context.Context, userID int64) (int64, error)
	// InTx runs fn in a single transaction. Any error returned by fn rolls
	// everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side, only reachable inside Store.InTx. The ForUpdate and
// Lock methods hold row locks until the transaction ends.
type Tx interface {
	LockVoter(ctx context.Context, userID int64) error
	HasVoted(ctx context.Context, pollID, userID int64) (bool, error)
	TokenForUpdate(ctx context.Context, pollID, userID int64) (*Token, error)
	// SaveToken inserts the token or rotates the hash of an unused one.
	SaveToken(ctx context.Context, t *Token) error
	MarkTokenUsed(ctx context.Context, pollID, userID int64) error
	// InsertVotes returns ErrAlreadyVoted on a duplicate attributable vote.
	InsertVotes(ctx context.Context, votes []Vote) error
}
