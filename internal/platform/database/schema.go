package database

import (
	"context"
	"database/sql"
)

// schema is idempotent. voter_id is NULL on anonymous ballots; the partial
// unique index only constrains attributable rows.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'student',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ccas (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS cca_members (
		cca_id  BIGINT NOT NULL REFERENCES ccas(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role    TEXT NOT NULL,
		PRIMARY KEY (cca_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS polls (
		id            BIGSERIAL PRIMARY KEY,
		cca_id        BIGINT NOT NULL REFERENCES ccas(id) ON DELETE CASCADE,
		question      TEXT NOT NULL,
		question_type TEXT NOT NULL CHECK (question_type IN ('single', 'multiple')),
		start_time    TIMESTAMPTZ NOT NULL,
		end_time      TIMESTAMPTZ NOT NULL,
		is_anonymous  BOOLEAN NOT NULL DEFAULT FALSE,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_by    BIGINT REFERENCES users(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time)
	)`,
	`CREATE TABLE IF NOT EXISTS poll_options (
		id      BIGSERIAL PRIMARY KEY,
		poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		text    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS poll_votes (
		id         BIGSERIAL PRIMARY KEY,
		poll_id    BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		option_id  BIGINT NOT NULL REFERENCES poll_options(id) ON DELETE CASCADE,
		voter_id   BIGINT REFERENCES users(id),
		voted_time TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS poll_votes_attributed_uniq
		ON poll_votes (poll_id, voter_id, option_id) WHERE voter_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS poll_votes_poll_idx ON poll_votes (poll_id)`,
	`CREATE TABLE IF NOT EXISTS vote_tokens (
		poll_id     BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash  TEXT NOT NULL,
		issued_time TIMESTAMPTZ NOT NULL,
		expiry_time TIMESTAMPTZ NOT NULL,
		is_used     BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (poll_id, user_id)
	)`,
}

func CreateSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
