package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cca-polling/internal/domain/vote"
)

type VoteStore struct {
	db *gorm.DB
}

func (s *VoteStore) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	return hasVoted(s.db.WithContext(ctx), pollID, userID)
}

func hasVoted(db *gorm.DB, pollID, userID int64) (bool, error) {
	var n int64
	err := db.Model(&voteModel{}).Where("poll_id = ? AND voter_id = ?", pollID, userID).Limit(1).Count(&n).Error
	return n > 0, err
}

func (s *VoteStore) SelectedOptions(ctx context.Context, pollID, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&voteModel{}).
		Where("poll_id = ? AND voter_id = ?", pollID, userID).
		Order("option_id").
		Pluck("option_id", &ids).Error
	return ids, err
}

func (s *VoteStore) GetToken(ctx context.Context, pollID, userID int64) (*vote.Token, error) {
	return findToken(s.db.WithContext(ctx), pollID, userID)
}

func findToken(db *gorm.DB, pollID, userID int64) (*vote.Token, error) {
	var m tokenModel
	err := db.Where("poll_id = ? AND user_id = ?", pollID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, vote.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (s *VoteStore) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error) {
	var rows []struct {
		OptionID int64
		N        int64
	}
	err := s.db.WithContext(ctx).Model(&voteModel{}).
		Select("option_id, COUNT(*) AS n").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make(map[int64]int64, len(rows))
	for _, r := range rows {
		res[r.OptionID] = r.N
	}
	return res, nil
}

func (s *VoteStore) CountBallots(ctx context.Context, pollID int64, anonymous bool) (int64, error) {
	var n int64
	db := s.db.WithContext(ctx)
	if anonymous {
		err := db.Model(&tokenModel{}).Where("poll_id = ? AND is_used = ?", pollID, true).Count(&n).Error
		return n, err
	}
	err := db.Model(&voteModel{}).
		Where("poll_id = ? AND voter_id IS NOT NULL", pollID).
		Distinct("voter_id").
		Count(&n).Error
	return n, err
}

func (s *VoteStore) ListAttributed(ctx context.Context, pollID int64) ([]vote.Vote, error) {
	var rows []voteModel
	err := s.db.WithContext(ctx).
		Where("poll_id = ? AND voter_id IS NOT NULL", pollID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]vote.Vote, 0, len(rows))
	for _, m := range rows {
		res = append(res, m.toDomain())
	}
	return res, nil
}

func (s *VoteStore) DiscardUnusedTokens(ctx context.Context, userID int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND is_used = ?", userID, false).
		Delete(&tokenModel{})
	return res.RowsAffected, res.Error
}

func (s *VoteStore) InTx(ctx context.Context, fn func(tx vote.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) locked() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) LockVoter(ctx context.Context, userID int64) error {
	var m userModel
	err := t.locked().Select("id").Where("id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (t *gormTx) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	return hasVoted(t.db, pollID, userID)
}

func (t *gormTx) TokenForUpdate(ctx context.Context, pollID, userID int64) (*vote.Token, error) {
	return findToken(t.locked(), pollID, userID)
}

// SaveToken upserts on the (poll, user) key. The CASE guards keep a consumed
// row untouched on every dialect, including MySQL where ON DUPLICATE KEY
// UPDATE takes no WHERE clause.
func (t *gormTx) SaveToken(ctx context.Context, tok *vote.Token) error {
	return t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"token_hash":  gorm.Expr("CASE WHEN is_used THEN token_hash ELSE ? END", tok.Hash),
			"issued_time": gorm.Expr("CASE WHEN is_used THEN issued_time ELSE ? END", tok.IssuedAt),
			"expiry_time": gorm.Expr("CASE WHEN is_used THEN expiry_time ELSE ? END", tok.ExpiresAt),
		}),
	}).Create(&tokenModel{
		PollID:     tok.PollID,
		UserID:     tok.UserID,
		TokenHash:  tok.Hash,
		IssuedTime: tok.IssuedAt,
		ExpiryTime: tok.ExpiresAt,
	}).Error
}

func (t *gormTx) MarkTokenUsed(ctx context.Context, pollID, userID int64) error {
	res := t.db.Model(&tokenModel{}).
		Where("poll_id = ? AND user_id = ? AND is_used = ?", pollID, userID, false).
		Update("is_used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return vote.ErrTokenAlreadyUsed
	}
	return nil
}

func (t *gormTx) InsertVotes(ctx context.Context, votes []vote.Vote) error {
	rows := make([]voteModel, len(votes))
	for i, v := range votes {
		rows[i] = voteModel{PollID: v.PollID, OptionID: v.OptionID, VotedTime: v.VotedAt}
		if v.VoterID != vote.AnonymousVoter {
			id := v.VoterID
			rows[i].VoterID = &id
		}
	}
	if err := t.db.Create(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return vote.ErrAlreadyVoted
		}
		return err
	}
	for i := range votes {
		votes[i].ID = rows[i].ID
	}
	return nil
}
