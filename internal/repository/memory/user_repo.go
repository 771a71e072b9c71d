package memory

import (
	"context"
	"sort"
	"time"

	"cca-polling/internal/domain/user"
)

type UserRepo struct {
	db *DB
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u.ID = r.db.nextUser
	r.db.nextUser++
	u.CreatedAt = time.Now()
	copyUser := *u
	r.db.users[u.ID] = &copyUser
	r.db.byMail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, ok := r.db.byMail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	copyUser := *r.db.users[id]
	return &copyUser, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	copyUser := *u
	return &copyUser, nil
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res := make([]user.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Role = role
	return nil
}

func (r *UserRepo) Deactivate(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.IsActive = false
	return nil
}
