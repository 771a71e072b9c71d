package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"cca-polling/internal/domain/membership"
)

type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (r *MembershipRepo) CreateCCA(ctx context.Context, c *membership.CCA) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO ccas (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
}

func (r *MembershipRepo) AddMember(ctx context.Context, ccaID, userID int64, role membership.Role) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO cca_members (cca_id, user_id, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (cca_id, user_id) DO UPDATE SET role = EXCLUDED.role
    `, ccaID, userID, string(role))
	return err
}

func (r *MembershipRepo) RoleOf(ctx context.Context, userID, ccaID int64) (membership.Role, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM cca_members WHERE cca_id = $1 AND user_id = $2`, ccaID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", membership.ErrNotMember
	}
	return membership.Role(role), err
}

func (r *MembershipRepo) CountMembers(ctx context.Context, ccaID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cca_members WHERE cca_id = $1`, ccaID).Scan(&n)
	return n, err
}

func (r *MembershipRepo) CCAsOf(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cca_id FROM cca_members WHERE user_id = $1 ORDER BY cca_id`, userID)
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

func (r *MembershipRepo) Names(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]string, len(userIDs))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		res[id] = name
	}
	return res, rows.Err()
}
