package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cca-polling/internal/domain/poll"
)

type PollRepo struct {
	db *gorm.DB
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (int64, error) {
	m := pollModel{
		CCAID:        p.CCAID,
		Question:     p.Question,
		QuestionType: string(p.QuestionType),
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		IsAnonymous:  p.IsAnonymous,
		IsActive:     p.IsActive,
		CreatedBy:    p.CreatedBy,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		rows := make([]optionModel, len(options))
		for i, o := range options {
			rows[i] = optionModel{PollID: m.ID, Text: o.Text}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].ID = rows[i].ID
			options[i].PollID = m.ID
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	p.ID = m.ID
	p.CreatedAt = m.CreatedAt
	return m.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	var m pollModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, poll.ErrPollNotFound
		}
		return nil, nil, err
	}

	var rows []optionModel
	if err := r.db.WithContext(ctx).Where("poll_id = ?", id).Order("id").Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	opts := make([]poll.Option, 0, len(rows))
	for _, o := range rows {
		opts = append(opts, poll.Option{ID: o.ID, PollID: o.PollID, Text: o.Text})
	}
	p := m.toDomain()
	return &p, opts, nil
}

func (r *PollRepo) ListByCCAs(ctx context.Context, ccaIDs []int64) ([]poll.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).Where("cca_id IN ?", ccaIDs).Order("end_time").Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]poll.Poll, 0, len(rows))
	for _, m := range rows {
		res = append(res, m.toDomain())
	}
	return res, nil
}

func (r *PollRepo) ListWithVoteCounts(ctx context.Context) ([]poll.Summary, error) {
	var rows []struct {
		pollModel
		VoteCount int64
	}
	err := r.db.WithContext(ctx).
		Table("polls").
		Select("polls.*, COUNT(poll_votes.id) AS vote_count").
		Joins("LEFT JOIN poll_votes ON poll_votes.poll_id = polls.id").
		Group("polls.id").
		Order("polls.end_time DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]poll.Summary, 0, len(rows))
	for _, row := range rows {
		res = append(res, poll.Summary{Poll: row.toDomain(), VoteCount: row.VoteCount})
	}
	return res, nil
}

func (r *PollRepo) SetActive(ctx context.Context, id int64, active bool) error {
	var m pollModel
	if err := r.db.WithContext(ctx).Select("id").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return poll.ErrPollNotFound
		}
		return err
	}
	return r.db.WithContext(ctx).Model(&pollModel{}).Where("id = ?", id).Update("is_active", active).Error
}
