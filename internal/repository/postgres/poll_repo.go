package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"cca-polling/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

const pollColumns = `id, cca_id, question, question_type, start_time, end_time, is_anonymous, is_active, COALESCE(created_by, 0), created_at`

func scanPoll(row interface{ Scan(...any) error }, p *poll.Poll) error {
	return row.Scan(&p.ID, &p.CCAID, &p.Question, &p.QuestionType,
		&p.StartTime, &p.EndTime, &p.IsAnonymous, &p.IsActive, &p.CreatedBy, &p.CreatedAt)
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryPoll := `
        INSERT INTO polls (cca_id, question, question_type, start_time, end_time, is_anonymous, is_active, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8::bigint, 0))
        RETURNING id, created_at
    `
	err = tx.QueryRowContext(ctx, queryPoll,
		p.CCAID,
		p.Question,
		p.QuestionType,
		p.StartTime,
		p.EndTime,
		p.IsAnonymous,
		p.IsActive,
		p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return 0, err
	}

	queryOpt := `INSERT INTO poll_options (poll_id, text) VALUES ($1, $2) RETURNING id`
	for i := range options {
		options[i].PollID = p.ID
		if err := tx.QueryRowContext(ctx, queryOpt, p.ID, options[i].Text).Scan(&options[i].ID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	p := &poll.Poll{}
	row := r.db.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id)
	if err := scanPoll(row, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, poll.ErrPollNotFound
		}
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, text
        FROM poll_options WHERE poll_id = $1 ORDER BY id
    `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var opts []poll.Option
	for rows.Next() {
		var o poll.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text); err != nil {
			return nil, nil, err
		}
		opts = append(opts, o)
	}
	return p, opts, rows.Err()
}

func (r *PollRepo) ListByCCAs(ctx context.Context, ccaIDs []int64) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pollColumns+` FROM polls WHERE cca_id = ANY($1) ORDER BY end_time`,
		pq.Array(ccaIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []poll.Poll{}
	for rows.Next() {
		var p poll.Poll
		if err := scanPoll(rows, &p); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *PollRepo) ListWithVoteCounts(ctx context.Context) ([]poll.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT p.id, p.cca_id, p.question, p.question_type, p.start_time, p.end_time,
               p.is_anonymous, p.is_active, COALESCE(p.created_by, 0), p.created_at,
               COUNT(v.id)
        FROM polls p
        LEFT JOIN poll_votes v ON v.poll_id = p.id
        GROUP BY p.id
        ORDER BY p.end_time DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []poll.Summary{}
	for rows.Next() {
		var s poll.Summary
		if err := rows.Scan(&s.ID, &s.CCAID, &s.Question, &s.QuestionType,
			&s.StartTime, &s.EndTime, &s.IsAnonymous, &s.IsActive, &s.CreatedBy, &s.CreatedAt,
			&s.VoteCount); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *PollRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE polls SET is_active = $1 WHERE id = $2`, active, id)
	err = expectOne(res, err)
	if errors.Is(err, sql.ErrNoRows) {
		return poll.ErrPollNotFound
	}
	return err
}
