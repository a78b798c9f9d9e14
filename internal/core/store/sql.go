package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateModel 一行一个键
type StateModel struct {
	Key       string `gorm:"column:state_key;primaryKey;size:64"` // key 在 mysql 是保留字
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (StateModel) TableName() string { return "client_state" }

type SQL struct {
	db *gorm.DB
}

// NewSQL 自动迁移 client_state 表
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&StateModel{}); err != nil {
		return nil, err
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var m StateModel
	err := s.db.WithContext(ctx).Where("state_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Value, true, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m := StateModel{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("state_key = ?", key).Delete(&StateModel{}).Error
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
