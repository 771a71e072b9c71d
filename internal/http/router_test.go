package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cca-polling/internal/domain/membership"
	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
	jwtpkg "cca-polling/internal/platform/jwt"
	"cca-polling/internal/repository/memory"
	"cca-polling/internal/worker"
)

type testEnv struct {
	server *httptest.Server
	db     *memory.DB
	events chan worker.VoteEvent
	tokens map[string]string
	ids    map[string]int64
}

type envOptions struct {
	ratePerMin int
	burst      int
	ready      func(ctx context.Context) error
}

func setupServer(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	db := memory.New()
	members := membership.NewChecker(db.Members())
	userSvc := user.NewService(db.Users())
	env := &testEnv{
		db:     db,
		events: make(chan worker.VoteEvent, 16),
		tokens: make(map[string]string),
		ids:    make(map[string]int64),
	}

	if opts.ratePerMin == 0 {
		opts.ratePerMin = 600
		opts.burst = 100
	}
	router := NewRouter(Deps{
		Users:          userSvc,
		Polls:          poll.NewService(db.Polls(), members),
		Votes:          vote.NewService(db.Votes(), db.Polls(), members, vote.Config{TokenSecret: []byte("router-test")}),
		Members:        members,
		JWT:            jwtpkg.NewManager("test-secret", "test", time.Hour),
		VoteEvents:     env.events,
		Ready:          opts.ready,
		VoteRatePerMin: opts.ratePerMin,
		VoteRateBurst:  opts.burst,
	})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)

	for _, name := range []string{"admin", "mod", "m1", "m2", "outsider"} {
		u, err := userSvc.Register(context.Background(), name+"@school.test", name, "pass123")
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		env.ids[name] = u.ID
	}
	if err := db.Users().UpdateRole(context.Background(), env.ids["admin"], user.RoleAdmin); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	for name := range env.ids {
		env.tokens[name] = env.login(t, name+"@school.test", "pass123")
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path, who string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[who])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		t.Fatalf("login %s: decode token: %v", email, err)
	}
	return out.Token
}

func expectStatus(t *testing.T, resp *http.Response, want int, into any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		t.Fatalf("expected status %d, got %d (%v)", want, resp.StatusCode, body)
	}
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	var body map[string]string
	expectStatus(t, resp, status, &body)
	if body["error"] != code {
		t.Fatalf("expected error code %q, got %v", code, body)
	}
}

// setupPoll creates a CCA where mod moderates and m1, m2 are members, then
// has mod create a poll. It returns the poll id and its option ids.
func (e *testEnv) setupPoll(t *testing.T, questionType string, anonymous bool) (int64, []int64) {
	t.Helper()
	var cca membership.CCA
	expectStatus(t, e.do(t, http.MethodPost, "/api/v1/ccas", "admin", map[string]string{"name": fmt.Sprintf("Club %d", time.Now().UnixNano())}), http.StatusCreated, &cca)

	for name, role := range map[string]string{"mod": "moderator", "m1": "member", "m2": "member"} {
		path := fmt.Sprintf("/api/v1/ccas/%d/members", cca.ID)
		expectStatus(t, e.do(t, http.MethodPost, path, "admin", map[string]any{"user_id": e.ids[name], "role": role}), http.StatusNoContent, nil)
	}

	now := time.Now()
	var created struct {
		ID int64 `json:"id"`
	}
	expectStatus(t, e.do(t, http.MethodPost, "/api/v1/polls", "mod", map[string]any{
		"cca_id":        cca.ID,
		"question":      "Where should we go?",
		"question_type": questionType,
		"start_time":    now.Add(-time.Hour),
		"end_time":      now.Add(time.Hour),
		"is_anonymous":  anonymous,
		"options":       []string{"Museum", "Park", "Cinema"},
	}), http.StatusCreated, &created)

	_, opts, err := e.db.Polls().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("load poll: %v", err)
	}
	ids := make([]int64, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return created.ID, ids
}

func TestHealthReadyAndAuth(t *testing.T) {
	env := setupServer(t, envOptions{ready: func(ctx context.Context) error { return errors.New("down") }})

	expectStatus(t, env.do(t, http.MethodGet, "/health", "", nil), http.StatusOK, nil)
	expectError(t, env.do(t, http.MethodGet, "/ready", "", nil), http.StatusServiceUnavailable, "db_unavailable")
	expectError(t, env.do(t, http.MethodGet, "/api/v1/polls", "", nil), http.StatusUnauthorized, "missing_token")
	expectError(t, env.do(t, http.MethodPost, "/api/v1/ccas", "m1", map[string]string{"name": "x"}), http.StatusForbidden, "forbidden")
	expectError(t, env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "m1@school.test", "password": "nope"}), http.StatusUnauthorized, "invalid_credentials")
	expectError(t, env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "M1@school.test", "name": "dup", "password": "x"}), http.StatusConflict, "email_taken")
}

func TestAnonymousPollOverHTTP(t *testing.T) {
	env := setupServer(t, envOptions{})
	pollID, opts := env.setupPoll(t, "single", true)
	base := fmt.Sprintf("/api/v1/polls/%d", pollID)

	var st vote.Status
	resp := env.do(t, http.MethodGet, base, "m1", nil)
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected token response to be uncacheable")
	}
	expectStatus(t, resp, http.StatusOK, &st)
	if st.VoteToken == "" || st.Phase != poll.PhaseActive {
		t.Fatalf("expected active poll with token, got %+v", st)
	}

	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m1", map[string]any{"option_ids": []int64{opts[1]}}), http.StatusBadRequest, "missing_vote_token")

	var receipt vote.Receipt
	expectStatus(t, env.do(t, http.MethodPost, base+"/vote", "m1", map[string]any{"option_ids": []int64{opts[1]}, "vote_token": st.VoteToken}), http.StatusCreated, &receipt)
	if !receipt.Anonymous || receipt.Options != 1 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	select {
	case ev := <-env.events:
		if ev.PollID != pollID || !ev.Anonymous {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatalf("expected a vote event")
	}

	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m1", map[string]any{"option_ids": []int64{opts[1]}, "vote_token": st.VoteToken}), http.StatusConflict, "vote_token_used")
	expectError(t, env.do(t, http.MethodGet, base+"/results", "m2", nil), http.StatusForbidden, "not_authorized")

	var agg vote.Aggregate
	expectStatus(t, env.do(t, http.MethodGet, base+"/results", "mod", nil), http.StatusOK, &agg)
	if agg.TotalVotes != 1 || agg.Options[0].OptionID != opts[1] || agg.ParticipationRate != 33.3 || len(agg.Voters) != 0 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestAttributableVoteOverHTTP(t *testing.T) {
	env := setupServer(t, envOptions{})
	pollID, opts := env.setupPoll(t, "single", false)
	base := fmt.Sprintf("/api/v1/polls/%d", pollID)

	expectError(t, env.do(t, http.MethodPost, base+"/vote", "outsider", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusForbidden, "not_eligible")
	expectError(t, env.do(t, http.MethodPost, base+"/vote", "admin", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusForbidden, "not_eligible")
	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m2", map[string]any{"option_ids": []int64{opts[0], opts[1]}}), http.StatusBadRequest, "cardinality_violation")
	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m2", map[string]any{"option_ids": []int64{9999}}), http.StatusBadRequest, "invalid_option")

	expectStatus(t, env.do(t, http.MethodPost, base+"/vote", "m1", map[string]any{"option_ids": []int64{opts[2]}}), http.StatusCreated, nil)
	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m1", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusConflict, "already_voted")

	var st vote.Status
	expectStatus(t, env.do(t, http.MethodGet, base, "m1", nil), http.StatusOK, &st)
	if !st.HasVoted || len(st.SelectedOptionIDs) != 1 || st.SelectedOptionIDs[0] != opts[2] || st.VoteToken != "" {
		t.Fatalf("unexpected status %+v", st)
	}

	var agg vote.Aggregate
	expectStatus(t, env.do(t, http.MethodGet, base+"/results", "m2", nil), http.StatusOK, &agg)
	if len(agg.Voters) != 1 || agg.Voters[0].VoterName != "m1" || agg.Voters[0].OptionText != "Cinema" {
		t.Fatalf("unexpected voters %+v", agg.Voters)
	}

	expectStatus(t, env.do(t, http.MethodPatch, base+"/active", "mod", map[string]bool{"is_active": false}), http.StatusNoContent, nil)
	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m2", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusBadRequest, "poll_not_active")
	expectError(t, env.do(t, http.MethodPatch, base+"/active", "m2", map[string]bool{"is_active": true}), http.StatusForbidden, "forbidden")
	expectError(t, env.do(t, http.MethodGet, "/api/v1/polls/424242", "m1", nil), http.StatusNotFound, "poll_not_found")
}

func TestPollListings(t *testing.T) {
	env := setupServer(t, envOptions{})
	pollID, opts := env.setupPoll(t, "multiple", false)

	expectStatus(t, env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/vote", pollID), "m1", map[string]any{"option_ids": opts[:2]}), http.StatusCreated, nil)

	var listing []poll.Listing
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/polls", "m2", nil), http.StatusOK, &listing)
	if len(listing) != 1 || listing[0].Phase != poll.PhaseActive || listing[0].ClosesIn == "" {
		t.Fatalf("unexpected member listing %+v", listing)
	}

	var empty []poll.Listing
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/polls", "outsider", nil), http.StatusOK, &empty)
	if len(empty) != 0 {
		t.Fatalf("outsider should see no polls, got %d", len(empty))
	}

	var summaries []poll.Summary
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/polls", "admin", nil), http.StatusOK, &summaries)
	if len(summaries) != 1 || summaries[0].VoteCount != 2 {
		t.Fatalf("unexpected admin listing %+v", summaries)
	}
}

func TestVoteRateLimit(t *testing.T) {
	env := setupServer(t, envOptions{ratePerMin: 1, burst: 1})
	pollID, opts := env.setupPoll(t, "single", false)
	path := fmt.Sprintf("/api/v1/polls/%d/vote", pollID)

	expectStatus(t, env.do(t, http.MethodPost, path, "m1", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusCreated, nil)
	expectError(t, env.do(t, http.MethodPost, path, "m2", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusTooManyRequests, "rate_limited")
}

func TestAdminUserManagement(t *testing.T) {
	env := setupServer(t, envOptions{})
	env.setupPoll(t, "single", false)

	path := fmt.Sprintf("/api/v1/users/%d/role", env.ids["m1"])
	expectError(t, env.do(t, http.MethodPatch, path, "admin", map[string]string{"role": "overlord"}), http.StatusBadRequest, "invalid_role")
	expectError(t, env.do(t, http.MethodPatch, "/api/v1/users/9999/deactivate", "admin", nil), http.StatusNotFound, "user_not_found")
	expectError(t, env.do(t, http.MethodGet, "/api/v1/users/9999", "admin", nil), http.StatusNotFound, "user_not_found")
	expectError(t, env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/deactivate", env.ids["admin"]), "admin", nil), http.StatusBadRequest, "own_account")

	var m1 accountView
	expectStatus(t, env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", env.ids["m1"]), "admin", nil), http.StatusOK, &m1)
	if m1.Email != "m1@school.test" || len(m1.CCAIDs) != 1 {
		t.Fatalf("unexpected account %+v", m1)
	}

	expectStatus(t, env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/deactivate", env.ids["m2"]), "admin", nil), http.StatusNoContent, nil)
	expectError(t, env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "m2@school.test", "password": "pass123"}), http.StatusUnauthorized, "inactive_user")

	var accounts []accountView
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/users", "admin", nil), http.StatusOK, &accounts)
	if len(accounts) != 5 {
		t.Fatalf("expected 5 accounts, got %d", len(accounts))
	}
	for _, a := range accounts {
		if a.ID == env.ids["outsider"] && (a.CCAIDs == nil || len(a.CCAIDs) != 0) {
			t.Fatalf("outsider should list an empty cca set, got %+v", a)
		}
		if a.ID == env.ids["m2"] && a.IsActive {
			t.Fatalf("m2 should be listed as inactive")
		}
	}
}

func TestDeactivatedMemberLosesAccess(t *testing.T) {
	env := setupServer(t, envOptions{})
	pollID, opts := env.setupPoll(t, "single", true)
	base := fmt.Sprintf("/api/v1/polls/%d", pollID)

	var st vote.Status
	expectStatus(t, env.do(t, http.MethodGet, base, "m2", nil), http.StatusOK, &st)
	if st.VoteToken == "" {
		t.Fatalf("expected a vote token for m2")
	}

	expectStatus(t, env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/deactivate", env.ids["m2"]), "admin", nil), http.StatusNoContent, nil)

	expectError(t, env.do(t, http.MethodPost, base+"/vote", "m2", map[string]any{"option_ids": []int64{opts[0]}, "vote_token": st.VoteToken}), http.StatusUnauthorized, "inactive_user")
	expectError(t, env.do(t, http.MethodGet, base, "m2", nil), http.StatusUnauthorized, "inactive_user")

	if _, err := env.db.Votes().GetToken(context.Background(), pollID, env.ids["m2"]); !errors.Is(err, vote.ErrTokenNotFound) {
		t.Fatalf("expected m2's unused token to be withdrawn, got %v", err)
	}

	var agg vote.Aggregate
	expectStatus(t, env.do(t, http.MethodGet, base+"/results", "mod", nil), http.StatusOK, &agg)
	if agg.TotalVotes != 0 || agg.TotalBallots != 0 {
		t.Fatalf("deactivated member must not have voted, got %+v", agg)
	}
}

func TestPromotedAccountStopsVoting(t *testing.T) {
	env := setupServer(t, envOptions{})
	pollID, opts := env.setupPoll(t, "single", false)

	var promoted accountView
	expectStatus(t, env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/role", env.ids["m1"]), "admin", map[string]string{"role": "admin"}), http.StatusOK, &promoted)
	if promoted.Role != user.RoleAdmin || len(promoted.CCAIDs) != 1 {
		t.Fatalf("unexpected promoted account %+v", promoted)
	}

	// m1 still holds the token issued while a student.
	expectError(t, env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/vote", pollID), "m1", map[string]any{"option_ids": []int64{opts[0]}}), http.StatusForbidden, "not_eligible")

	var summaries []poll.Summary
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/polls", "m1", nil), http.StatusOK, &summaries)
	if len(summaries) != 1 || summaries[0].VoteCount != 0 {
		t.Fatalf("expected admin listing with no votes, got %+v", summaries)
	}
}
