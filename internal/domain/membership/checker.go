package membership

import (
	"context"
	"errors"
	"strings"
)

// Checker answers membership questions for the voting subsystem. It only
// knows about CCA roles; system roles such as administrator are the
// caller's concern.
type Checker struct {
	repo Repository
}

func NewChecker(repo Repository) *Checker {
	return &Checker{repo: repo}
}

// IsEligible reports whether userID may vote in polls owned by ccaID, which
// is true for members in any role.
func (c *Checker) IsEligible(ctx context.Context, userID, ccaID int64) (bool, error) {
	_, err := c.repo.RoleOf(ctx, userID, ccaID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Checker) IsModerator(ctx context.Context, userID, ccaID int64) (bool, error) {
	role, err := c.repo.RoleOf(ctx, userID, ccaID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == RoleModerator, nil
}

func (c *Checker) MemberCount(ctx context.Context, ccaID int64) (int64, error) {
	return c.repo.CountMembers(ctx, ccaID)
}

func (c *Checker) CCAsOf(ctx context.Context, userID int64) ([]int64, error) {
	return c.repo.CCAsOf(ctx, userID)
}

func (c *Checker) Names(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	if len(userIDs) == 0 {
		return map[int64]string{}, nil
	}
	return c.repo.Names(ctx, userIDs)
}

func (c *Checker) CreateCCA(ctx context.Context, name string) (*CCA, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameMissing
	}
	cca := &CCA{Name: name}
	if err := c.repo.CreateCCA(ctx, cca); err != nil {
		return nil, err
	}
	return cca, nil
}

func (c *Checker) AddMember(ctx context.Context, ccaID, userID int64, role Role) error {
	if role != RoleMember && role != RoleModerator {
		return ErrInvalidRole
	}
	return c.repo.AddMember(ctx, ccaID, userID, role)
}
