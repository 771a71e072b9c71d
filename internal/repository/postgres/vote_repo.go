package postgres

import (
	"context"
	"database/sql"
	"errors"

	"cca-polling/internal/domain/vote"
)

// VoteRepo implements vote.Store. Anonymous ballots are written with a NULL
// voter_id.
type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func hasVoted(ctx context.Context, q querier, pollID, userID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM poll_votes WHERE poll_id = $1 AND voter_id = $2)`,
		pollID, userID).Scan(&exists)
	return exists, err
}

func getToken(ctx context.Context, q querier, query string, pollID, userID int64) (*vote.Token, error) {
	t := &vote.Token{}
	err := q.QueryRowContext(ctx, query, pollID, userID).
		Scan(&t.Hash, &t.PollID, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &t.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vote.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

const selectToken = `
        SELECT token_hash, poll_id, user_id, issued_time, expiry_time, is_used
        FROM vote_tokens WHERE poll_id = $1 AND user_id = $2
    `

func (r *VoteRepo) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	return hasVoted(ctx, r.db, pollID, userID)
}

func (r *VoteRepo) SelectedOptions(ctx context.Context, pollID, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT option_id FROM poll_votes
        WHERE poll_id = $1 AND voter_id = $2
        ORDER BY option_id
    `, pollID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *VoteRepo) GetToken(ctx context.Context, pollID, userID int64) (*vote.Token, error) {
	return getToken(ctx, r.db, selectToken, pollID, userID)
}

func (r *VoteRepo) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT option_id, COUNT(*)
        FROM poll_votes
        WHERE poll_id = $1
        GROUP BY option_id
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]int64)
	for rows.Next() {
		var optID, c int64
		if err := rows.Scan(&optID, &c); err != nil {
			return nil, err
		}
		res[optID] = c
	}
	return res, rows.Err()
}

func (r *VoteRepo) CountBallots(ctx context.Context, pollID int64, anonymous bool) (int64, error) {
	query := `SELECT COUNT(DISTINCT voter_id) FROM poll_votes WHERE poll_id = $1 AND voter_id IS NOT NULL`
	if anonymous {
		query = `SELECT COUNT(*) FROM vote_tokens WHERE poll_id = $1 AND is_used`
	}
	var n int64
	err := r.db.QueryRowContext(ctx, query, pollID).Scan(&n)
	return n, err
}

func (r *VoteRepo) ListAttributed(ctx context.Context, pollID int64) ([]vote.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, option_id, voter_id, voted_time
        FROM poll_votes
        WHERE poll_id = $1 AND voter_id IS NOT NULL
        ORDER BY id
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []vote.Vote
	for rows.Next() {
		var v vote.Vote
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionID, &v.VoterID, &v.VotedAt); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r *VoteRepo) DiscardUnusedTokens(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vote_tokens WHERE user_id = $1 AND NOT is_used`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *VoteRepo) InTx(ctx context.Context, fn func(tx vote.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&voteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type voteTx struct {
	tx *sql.Tx
}

// LockVoter serialises concurrent ballots of the same user.
func (t *voteTx) LockVoter(ctx context.Context, userID int64) error {
	var id int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (t *voteTx) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	return hasVoted(ctx, t.tx, pollID, userID)
}

func (t *voteTx) TokenForUpdate(ctx context.Context, pollID, userID int64) (*vote.Token, error) {
	return getToken(ctx, t.tx, selectToken+" FOR UPDATE", pollID, userID)
}

func (t *voteTx) SaveToken(ctx context.Context, tok *vote.Token) error {
	_, err := t.tx.ExecContext(ctx, `
        INSERT INTO vote_tokens (poll_id, user_id, token_hash, issued_time, expiry_time, is_used)
        VALUES ($1, $2, $3, $4, $5, FALSE)
        ON CONFLICT (poll_id, user_id) DO UPDATE
        SET token_hash = EXCLUDED.token_hash,
            issued_time = EXCLUDED.issued_time,
            expiry_time = EXCLUDED.expiry_time
        WHERE NOT vote_tokens.is_used
    `, tok.PollID, tok.UserID, tok.Hash, tok.IssuedAt, tok.ExpiresAt)
	return err
}

func (t *voteTx) MarkTokenUsed(ctx context.Context, pollID, userID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE vote_tokens SET is_used = TRUE WHERE poll_id = $1 AND user_id = $2 AND NOT is_used`,
		pollID, userID)
	err = expectOne(res, err)
	if errors.Is(err, sql.ErrNoRows) {
		return vote.ErrTokenAlreadyUsed
	}
	return err
}

func (t *voteTx) InsertVotes(ctx context.Context, votes []vote.Vote) error {
	for i := range votes {
		v := &votes[i]
		err := t.tx.QueryRowContext(ctx, `
            INSERT INTO poll_votes (poll_id, option_id, voter_id, voted_time)
            VALUES ($1, $2, NULLIF($3::bigint, 0), $4)
            RETURNING id
        `, v.PollID, v.OptionID, v.VoterID, v.VotedAt).Scan(&v.ID)
		if isUniqueViolation(err) {
			return vote.ErrAlreadyVoted
		}
		if err != nil {
			return err
		}
	}
	return nil
}
