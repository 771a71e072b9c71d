package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cca-polling/internal/domain/membership"
)

type MembershipRepo struct {
	db *gorm.DB
}

func (r *MembershipRepo) CreateCCA(ctx context.Context, c *membership.CCA) error {
	m := ccaModel{Name: c.Name}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	c.ID = m.ID
	return nil
}

func (r *MembershipRepo) AddMember(ctx context.Context, ccaID, userID int64, role membership.Role) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cca_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&memberModel{CCAID: ccaID, UserID: userID, Role: string(role)}).Error
}

func (r *MembershipRepo) RoleOf(ctx context.Context, userID, ccaID int64) (membership.Role, error) {
	var m memberModel
	err := r.db.WithContext(ctx).Where("cca_id = ? AND user_id = ?", ccaID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", membership.ErrNotMember
	}
	if err != nil {
		return "", err
	}
	return membership.Role(m.Role), nil
}

func (r *MembershipRepo) CountMembers(ctx context.Context, ccaID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&memberModel{}).Where("cca_id = ?", ccaID).Count(&n).Error
	return n, err
}

func (r *MembershipRepo) CCAsOf(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&memberModel{}).
		Where("user_id = ?", userID).
		Order("cca_id").
		Pluck("cca_id", &ids).Error
	return ids, err
}

func (r *MembershipRepo) Names(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make(map[int64]string, len(rows))
	for _, u := range rows {
		res[u.ID] = u.Name
	}
	return res, nil
}
