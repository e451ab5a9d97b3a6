package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai_gallery_simulator/metrics"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry kv_entries 表的一行。
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLStore 基于 gorm 的存储，SQLite 与 PostgreSQL 共用同一张表。
type SQLStore struct {
	db      *gorm.DB
	backend string
}

func NewSQLiteStore(path string) (*SQLStore, error) {
	return openSQL(sqlite.Open(path), "sqlite")
}

func NewPostgresStore(dsn string) (*SQLStore, error) {
	return openSQL(postgres.Open(dsn), "postgres")
}

func openSQL(dialector gorm.Dialector, backend string) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", backend, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if backend == "sqlite" {
		// :memory: 每个连接是独立数据库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", backend, err)
	}
	return &SQLStore{db: db, backend: backend}, nil
}

// keyIs 让 gorm 给列名加引号，key 在部分方言里是关键字。
func keyIs(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e kvEntry
	err := s.db.WithContext(ctx).Where(keyIs(key)).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.count("get", err)
	}
	return e.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	e := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	return s.count("set", err)
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where(keyIs(key)).Delete(&kvEntry{}).Error
	return s.count("remove", err)
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) count(op string, err error) error {
	if err != nil {
		metrics.StoreErrors.WithLabelValues(s.backend, op).Inc()
	}
	return err
}
