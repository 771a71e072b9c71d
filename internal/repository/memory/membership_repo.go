package memory

import (
	"context"
	"sort"

	"cca-polling/internal/domain/membership"
)

type MembershipRepo struct {
	db *DB
}

func (r *MembershipRepo) CreateCCA(ctx context.Context, c *membership.CCA) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.nextCCA
	r.db.nextCCA++
	copyCCA := *c
	r.db.ccas[c.ID] = &copyCCA
	return nil
}

func (r *MembershipRepo) AddMember(ctx context.Context, ccaID, userID int64, role membership.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.roles[ccaID] == nil {
		r.db.roles[ccaID] = make(map[int64]membership.Role)
	}
	r.db.roles[ccaID][userID] = role
	return nil
}

func (r *MembershipRepo) RoleOf(ctx context.Context, userID, ccaID int64) (membership.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	role, ok := r.db.roles[ccaID][userID]
	if !ok {
		return "", membership.ErrNotMember
	}
	return role, nil
}

func (r *MembershipRepo) CountMembers(ctx context.Context, ccaID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.roles[ccaID])), nil
}

func (r *MembershipRepo) CCAsOf(ctx context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []int64
	for ccaID, members := range r.db.roles {
		if _, ok := members[userID]; ok {
			ids = append(ids, ccaID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MembershipRepo) Names(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res := make(map[int64]string, len(userIDs))
	for _, id := range userIDs {
		if u, ok := r.db.users[id]; ok {
			res[id] = u.Name
		}
	}
	return res, nil
}
