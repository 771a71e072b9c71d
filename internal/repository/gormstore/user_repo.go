package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cca-polling/internal/domain/user"
)

type UserRepo struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user.ErrNotFound
	}
	return err
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	m := userModel{
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user.ErrEmailTaken
		}
		return err
	}
	u.ID = m.ID
	u.CreatedAt = m.CreatedAt
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	u := m.toDomain()
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	u := m.toDomain()
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]user.User, 0, len(rows))
	for _, m := range rows {
		res = append(res, m.toDomain())
	}
	return res, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role string) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Update("role", role)
	return affected(res)
}

func (r *UserRepo) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Update("is_active", false)
	return affected(res)
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}
