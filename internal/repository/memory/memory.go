// Package memory is a process-local backend for every repository. All state
// sits behind one mutex; vote transactions hold it for their whole duration
// and buffer writes until commit.
package memory

import (
	"sync"

	"cca-polling/internal/domain/membership"
	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
)

type tokenKey struct {
	pollID int64
	userID int64
}

type DB struct {
	mu      sync.Mutex
	users   map[int64]*user.User
	byMail  map[string]int64
	polls   map[int64]*poll.Poll
	options map[int64][]poll.Option
	ccas    map[int64]*membership.CCA
	roles   map[int64]map[int64]membership.Role
	votes   []vote.Vote
	tokens  map[tokenKey]vote.Token

	nextUser, nextPoll, nextOption, nextCCA, nextVote int64
}

func New() *DB {
	return &DB{
		users:      make(map[int64]*user.User),
		byMail:     make(map[string]int64),
		polls:      make(map[int64]*poll.Poll),
		options:    make(map[int64][]poll.Option),
		ccas:       make(map[int64]*membership.CCA),
		roles:      make(map[int64]map[int64]membership.Role),
		tokens:     make(map[tokenKey]vote.Token),
		nextUser:   1,
		nextPoll:   1,
		nextOption: 1,
		nextCCA:    1,
		nextVote:   1,
	}
}

func (db *DB) Users() *UserRepo         { return &UserRepo{db: db} }
func (db *DB) Polls() *PollRepo         { return &PollRepo{db: db} }
func (db *DB) Members() *MembershipRepo { return &MembershipRepo{db: db} }
func (db *DB) Votes() *VoteStore        { return &VoteStore{db: db} }

// VoteRows returns a copy of every stored vote row.
func (db *DB) VoteRows() []vote.Vote {
	db.mu.Lock()
	defer db.mu.Unlock()
	res := make([]vote.Vote, len(db.votes))
	copy(res, db.votes)
	return res
}
