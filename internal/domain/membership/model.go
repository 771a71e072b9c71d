package membership

import (
	"context"
	"errors"
)

type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
)

var (
	ErrNotMember   = errors.New("user is not a member of this cca")
	ErrInvalidRole = errors.New("membership role must be member or moderator")
	ErrNameMissing = errors.New("cca name required")
)

type CCA struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Repository interface {
	CreateCCA(ctx context.Context, c *CCA) error
	// AddMember inserts the membership or updates its role.
	AddMember(ctx context.Context, ccaID, userID int64, role Role) error
	// RoleOf returns ErrNotMember when the user holds no role in the CCA.
	RoleOf(ctx context.Context, userID, ccaID int64) (Role, error)
	CountMembers(ctx context.Context, ccaID int64) (int64, error)
	CCAsOf(ctx context.Context, userID int64) ([]int64, error)
	Names(ctx context.Context, userIDs []int64) (map[int64]string, error)
}
