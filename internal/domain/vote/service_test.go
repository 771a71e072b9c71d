package vote_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"cca-polling/internal/domain/membership"
	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
	"cca-polling/internal/repository/memory"
)

// flakyStore fails the next vote insert after any token changes made in the
// same transaction.
type flakyStore struct {
	vote.Store

	mu         sync.Mutex
	failInsert error
}

func (s *flakyStore) failNextInsert(err error) {
	s.mu.Lock()
	s.failInsert = err
	s.mu.Unlock()
}

func (s *flakyStore) InTx(ctx context.Context, fn func(tx vote.Tx) error) error {
	return s.Store.InTx(ctx, func(tx vote.Tx) error {
		return fn(&flakyTx{Tx: tx, store: s})
	})
}

type flakyTx struct {
	vote.Tx
	store *flakyStore
}

func (tx *flakyTx) InsertVotes(ctx context.Context, votes []vote.Vote) error {
	tx.store.mu.Lock()
	err := tx.store.failInsert
	tx.store.failInsert = nil
	tx.store.mu.Unlock()
	if err != nil {
		return err
	}
	return tx.Tx.InsertVotes(ctx, votes)
}

type fixture struct {
	db        *memory.DB
	store     *flakyStore
	svc       *vote.Service
	now       time.Time
	ccaID     int64
	members   []user.Caller
	moderator user.Caller
	admin     user.Caller
	outsider  user.Caller
}

func newFixture(t *testing.T, memberCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{db: memory.New(), now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}

	checker := membership.NewChecker(f.db.Members())
	cca, err := checker.CreateCCA(ctx, "Robotics")
	if err != nil {
		t.Fatalf("create cca: %v", err)
	}
	f.ccaID = cca.ID

	newUser := func(name, role string) user.Caller {
		u := &user.User{Email: name + "@school.test", Name: name, Role: role, IsActive: true}
		if err := f.db.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		return user.Caller{UserID: u.ID, Role: u.Role}
	}

	for i := 0; i < memberCount-1; i++ {
		m := newUser("member"+strconv.Itoa(i+1), user.RoleStudent)
		if err := checker.AddMember(ctx, cca.ID, m.UserID, membership.RoleMember); err != nil {
			t.Fatalf("add member: %v", err)
		}
		f.members = append(f.members, m)
	}
	f.moderator = newUser("moderator", user.RoleStudent)
	if err := checker.AddMember(ctx, cca.ID, f.moderator.UserID, membership.RoleModerator); err != nil {
		t.Fatalf("add moderator: %v", err)
	}
	f.admin = newUser("admin", user.RoleAdmin)
	f.outsider = newUser("outsider", user.RoleStudent)

	f.store = &flakyStore{Store: f.db.Votes()}
	f.svc = vote.NewService(f.store, f.db.Polls(), checker, vote.Config{
		TokenSecret: []byte("test-secret"),
		TokenTTL:    10 * time.Minute,
		Now:         func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) createPoll(t *testing.T, qt poll.QuestionType, anonymous bool, texts ...string) (int64, []int64) {
	t.Helper()
	p := &poll.Poll{
		CCAID:        f.ccaID,
		Question:     "Which day works?",
		QuestionType: qt,
		StartTime:    f.now.Add(-time.Hour),
		EndTime:      f.now.Add(24 * time.Hour),
		IsAnonymous:  anonymous,
		IsActive:     true,
	}
	opts := make([]poll.Option, len(texts))
	for i, text := range texts {
		opts[i] = poll.Option{Text: text}
	}
	id, err := f.db.Polls().Create(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	ids := make([]int64, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return id, ids
}

func (f *fixture) token(t *testing.T, pollID int64, caller user.Caller) string {
	t.Helper()
	st, err := f.svc.Status(context.Background(), pollID, caller)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.VoteToken == "" {
		t.Fatalf("expected a vote token, got status %+v", st)
	}
	return st.VoteToken
}

func TestAttributableVoteExactlyOnce(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, false, "Mon", "Tue")
	m := f.members[0]

	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, ""); err != nil {
		t.Fatalf("expected first vote ok, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[1]}, ""); !errors.Is(err, vote.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}

	rows := f.db.VoteRows()
	if len(rows) != 1 || rows[0].VoterID != m.UserID {
		t.Fatalf("expected one attributed row, got %+v", rows)
	}

	st, err := f.svc.Status(ctx, pollID, m)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.HasVoted || len(st.SelectedOptionIDs) != 1 || st.SelectedOptionIDs[0] != opts[0] {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestAnonymousPollScenario(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, true, "O1", "O2", "O3")
	m1 := f.members[0]

	tok := f.token(t, pollID, m1)
	if _, err := f.svc.Submit(ctx, pollID, m1, []int64{opts[1]}, tok); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, m1, []int64{opts[1]}, tok); !errors.Is(err, vote.ErrTokenAlreadyUsed) {
		t.Fatalf("expected token already used, got %v", err)
	}

	for _, row := range f.db.VoteRows() {
		if row.VoterID != vote.AnonymousVoter {
			t.Fatalf("anonymous vote row carries voter %d", row.VoterID)
		}
	}

	st, err := f.svc.Status(ctx, pollID, m1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.HasVoted || st.VoteToken != "" {
		t.Fatalf("expected voted status without token, got %+v", st)
	}

	agg, err := f.svc.Results(ctx, pollID, f.moderator)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if agg.Options[0].OptionID != opts[1] || agg.Options[0].VoteCount != 1 {
		t.Fatalf("expected O2 to lead with 1 vote, got %+v", agg.Options)
	}
	if agg.ParticipationRate != 10 {
		t.Fatalf("expected 10%% participation, got %v", agg.ParticipationRate)
	}
	if agg.Voters != nil {
		t.Fatalf("anonymous results must not list voters")
	}

	if _, err := f.svc.Results(ctx, pollID, f.members[1]); !errors.Is(err, vote.ErrNotAuthorized) {
		t.Fatalf("expected member to be refused anonymous results, got %v", err)
	}
	if _, err := f.svc.Results(ctx, pollID, f.admin); err != nil {
		t.Fatalf("admin results: %v", err)
	}
}

func TestAttributableMultipleChoiceScenario(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.MultipleChoice, false, "O1", "O2", "O3")
	m2 := f.members[1]

	receipt, err := f.svc.Submit(ctx, pollID, m2, []int64{opts[0], opts[2]}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Options != 2 || receipt.Anonymous {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	rows := f.db.VoteRows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.VoterID != m2.UserID {
			t.Fatalf("row not linked to voter: %+v", row)
		}
	}

	if _, err := f.svc.Submit(ctx, pollID, m2, []int64{opts[1]}, ""); !errors.Is(err, vote.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}

	agg, err := f.svc.Results(ctx, pollID, f.members[0])
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(agg.Voters) != 2 || agg.Voters[0].VoterName != "member2" || agg.Voters[0].OptionText != "O1" {
		t.Fatalf("unexpected voter pairs %+v", agg.Voters)
	}
	if agg.TotalBallots != 1 || agg.ParticipationRate != 25 {
		t.Fatalf("expected one ballot at 25%%, got %d at %v", agg.TotalBallots, agg.ParticipationRate)
	}
}

func TestVotingOutsideActivePhase(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, false, "A", "B")
	m := f.members[0]
	start := f.now

	f.now = start.Add(-2 * time.Hour)
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, ""); !errors.Is(err, vote.ErrPollNotActive) {
		t.Fatalf("expected not active before start, got %v", err)
	}

	f.now = start.Add(25 * time.Hour)
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, ""); !errors.Is(err, vote.ErrPollNotActive) {
		t.Fatalf("expected not active after end, got %v", err)
	}

	f.now = start
	if err := f.db.Polls().SetActive(ctx, pollID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, ""); !errors.Is(err, vote.ErrPollNotActive) {
		t.Fatalf("expected not active when disabled, got %v", err)
	}
}

func TestCardinalityAndOptionChecks(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	single, sOpts := f.createPoll(t, poll.SingleChoice, false, "A", "B", "C")
	multi, mOpts := f.createPoll(t, poll.MultipleChoice, false, "A", "B", "C")

	tests := []struct {
		name    string
		pollID  int64
		options []int64
		want    error
	}{
		{"single none", single, nil, vote.ErrCardinality},
		{"single two", single, []int64{sOpts[0], sOpts[1]}, vote.ErrCardinality},
		{"single foreign option", single, []int64{mOpts[0]}, vote.ErrInvalidOption},
		{"multi none", multi, []int64{}, vote.ErrCardinality},
		{"multi duplicate", multi, []int64{mOpts[0], mOpts[0]}, vote.ErrCardinality},
		{"multi unknown", multi, []int64{mOpts[0], 999}, vote.ErrInvalidOption},
		{"single ok", single, []int64{sOpts[2]}, nil},
		{"multi all", multi, mOpts, nil},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, tt.pollID, f.members[i], tt.options, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEligibilityChecks(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, false, "A", "B")

	if _, err := f.svc.Submit(ctx, 404, f.members[0], []int64{opts[0]}, ""); !errors.Is(err, vote.ErrPollNotFound) {
		t.Fatalf("expected poll not found, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, f.admin, []int64{opts[0]}, ""); !errors.Is(err, vote.ErrNotEligible) {
		t.Fatalf("expected admin to be refused, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, f.outsider, []int64{opts[0]}, ""); !errors.Is(err, vote.ErrNotEligible) {
		t.Fatalf("expected outsider to be refused, got %v", err)
	}
	if _, err := f.svc.Status(ctx, pollID, f.outsider); !errors.Is(err, vote.ErrNotEligible) {
		t.Fatalf("expected outsider status to be refused, got %v", err)
	}
	if _, err := f.svc.Results(ctx, pollID, f.outsider); !errors.Is(err, vote.ErrNotAuthorized) {
		t.Fatalf("expected outsider results to be refused, got %v", err)
	}
}

func TestTokenRotationAndExpiry(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, true, "A", "B")
	m := f.members[0]

	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, ""); !errors.Is(err, vote.ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}

	first := f.token(t, pollID, m)
	second := f.token(t, pollID, m)
	if first == second {
		t.Fatalf("expected token rotation on reload")
	}
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, first); !errors.Is(err, vote.ErrInvalidToken) {
		t.Fatalf("expected rotated-out token to be invalid, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, f.members[1], []int64{opts[0]}, second); !errors.Is(err, vote.ErrInvalidToken) {
		t.Fatalf("expected token of another member to be invalid, got %v", err)
	}

	f.now = f.now.Add(11 * time.Minute)
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, second); !errors.Is(err, vote.ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}

	third := f.token(t, pollID, m)
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, third); err != nil {
		t.Fatalf("expected reissued token to work, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[1]}, second); !errors.Is(err, vote.ErrAlreadyVoted) {
		t.Fatalf("expected already voted with stale token, got %v", err)
	}
}

func TestFailedWriteRollsBackTokenConsumption(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, true, "A", "B")
	m := f.members[0]
	tok := f.token(t, pollID, m)

	f.store.failNextInsert(errors.New("disk full"))
	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, tok); !errors.Is(err, vote.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if rows := f.db.VoteRows(); len(rows) != 0 {
		t.Fatalf("expected no rows after rollback, got %d", len(rows))
	}
	stored, err := f.db.Votes().GetToken(ctx, pollID, m.UserID)
	if err != nil || stored.Used {
		t.Fatalf("expected token to stay unused, got %+v (%v)", stored, err)
	}

	if _, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, tok); err != nil {
		t.Fatalf("expected retry with same token to succeed, got %v", err)
	}
}

func TestRevokeTokensKeepsConsumedBallots(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	votedPoll, votedOpts := f.createPoll(t, poll.SingleChoice, true, "A", "B")
	openPoll, openOpts := f.createPoll(t, poll.SingleChoice, true, "C", "D")
	m := f.members[0]

	if _, err := f.svc.Submit(ctx, votedPoll, m, []int64{votedOpts[0]}, f.token(t, votedPoll, m)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	live := f.token(t, openPoll, m)
	other := f.token(t, openPoll, f.members[1])

	n, err := f.svc.RevokeTokens(ctx, m.UserID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one live token revoked, got %d", n)
	}

	if _, err := f.svc.Submit(ctx, openPoll, m, []int64{openOpts[0]}, live); !errors.Is(err, vote.ErrInvalidToken) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, openPoll, f.members[1], []int64{openOpts[1]}, other); err != nil {
		t.Fatalf("other member's token must survive, got %v", err)
	}

	agg, err := f.svc.Results(ctx, votedPoll, f.moderator)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if agg.TotalBallots != 1 {
		t.Fatalf("consumed token must still count as a ballot, got %d", agg.TotalBallots)
	}
}

func TestConcurrentSubmissionsWithSameToken(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.SingleChoice, true, "A", "B")
	m := f.members[0]
	tok := f.token(t, pollID, m)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, pollID, m, []int64{opts[0]}, tok)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, vote.ErrTokenAlreadyUsed), errors.Is(err, vote.ErrAlreadyVoted):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful submission, got %d", ok)
	}
	if rows := f.db.VoteRows(); len(rows) != 1 {
		t.Fatalf("expected one vote row, got %d", len(rows))
	}
}

func TestConcurrentAttributableSubmissions(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	pollID, opts := f.createPoll(t, poll.MultipleChoice, false, "A", "B")
	m := f.members[0]

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Submit(ctx, pollID, m, opts, "")
		}()
	}
	wg.Wait()

	if rows := f.db.VoteRows(); len(rows) != len(opts) {
		t.Fatalf("expected a single ballot of %d rows, got %d", len(opts), len(rows))
	}
}
