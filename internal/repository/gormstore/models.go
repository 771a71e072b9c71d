package gormstore

import (
	"time"

	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
)

type userModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	Name         string `gorm:"size:255;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:32;not null;default:student"`
	IsActive     bool   `gorm:"not null"`
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() user.User {
	return user.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
	}
}

type ccaModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:255;uniqueIndex;not null"`
}

func (ccaModel) TableName() string { return "ccas" }

type memberModel struct {
	CCAID  int64  `gorm:"column:cca_id;primaryKey;autoIncrement:false"`
	UserID int64  `gorm:"primaryKey;autoIncrement:false;index"`
	Role   string `gorm:"size:32;not null"`
}

func (memberModel) TableName() string { return "cca_members" }

type pollModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	CCAID        int64  `gorm:"column:cca_id;index;not null"`
	Question     string `gorm:"not null"`
	QuestionType string `gorm:"size:16;not null"`
	StartTime    time.Time
	EndTime      time.Time
	IsAnonymous  bool
	IsActive     bool
	CreatedBy    int64
	CreatedAt    time.Time
}

func (pollModel) TableName() string { return "polls" }

func (m pollModel) toDomain() poll.Poll {
	return poll.Poll{
		ID:           m.ID,
		CCAID:        m.CCAID,
		Question:     m.Question,
		QuestionType: poll.QuestionType(m.QuestionType),
		StartTime:    m.StartTime,
		EndTime:      m.EndTime,
		IsAnonymous:  m.IsAnonymous,
		IsActive:     m.IsActive,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}

type optionModel struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	PollID int64  `gorm:"index;not null"`
	Text   string `gorm:"not null"`
}

func (optionModel) TableName() string { return "poll_options" }

// voteModel.VoterID is nil on anonymous ballots. NULLs never collide in the
// unique index, so it only constrains attributable rows.
type voteModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	PollID    int64  `gorm:"not null;index;uniqueIndex:poll_votes_attributed_uniq,priority:1"`
	OptionID  int64  `gorm:"not null;uniqueIndex:poll_votes_attributed_uniq,priority:3"`
	VoterID   *int64 `gorm:"uniqueIndex:poll_votes_attributed_uniq,priority:2"`
	VotedTime time.Time
}

func (voteModel) TableName() string { return "poll_votes" }

func (m voteModel) toDomain() vote.Vote {
	v := vote.Vote{ID: m.ID, PollID: m.PollID, OptionID: m.OptionID, VotedAt: m.VotedTime}
	if m.VoterID != nil {
		v.VoterID = *m.VoterID
	}
	return v
}

type tokenModel struct {
	PollID     int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID     int64  `gorm:"primaryKey;autoIncrement:false"`
	TokenHash  string `gorm:"size:64;not null"`
	IssuedTime time.Time
	ExpiryTime time.Time
	IsUsed     bool `gorm:"not null"`
}

func (tokenModel) TableName() string { return "vote_tokens" }

func (m tokenModel) toDomain() *vote.Token {
	return &vote.Token{
		Hash:      m.TokenHash,
		PollID:    m.PollID,
		UserID:    m.UserID,
		IssuedAt:  m.IssuedTime,
		ExpiresAt: m.ExpiryTime,
		Used:      m.IsUsed,
	}
}
