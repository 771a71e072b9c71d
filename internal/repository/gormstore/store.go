// Package gormstore backs every repository with gorm, over SQLite or MySQL.
package gormstore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// Open connects with the named dialect and migrates the schema. SQLite has
// no row locks, so its pool is limited to one connection and transactions
// run one at a time.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("gormstore: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(
		&userModel{},
		&ccaModel{},
		&memberModel{},
		&pollModel{},
		&optionModel{},
		&voteModel{},
		&tokenModel{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Users() *UserRepo         { return &UserRepo{db: s.db} }
func (s *Store) Polls() *PollRepo         { return &PollRepo{db: s.db} }
func (s *Store) Members() *MembershipRepo { return &MembershipRepo{db: s.db} }
func (s *Store) Votes() *VoteStore        { return &VoteStore{db: s.db} }
