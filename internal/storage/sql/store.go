package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/outloudvi/mail-list-rss/internal/domain"
	"github.com/outloudvi/mail-list-rss/internal/storage"
)

// Options 连接池配置。
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store 基于 GORM 的 SQL 存储实现，支持 PostgreSQL 与 MySQL。
type Store struct {
	db *gorm.DB
}

// NewStore 按数据库类型创建存储实例。
func NewStore(dbType, dsn string, opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
	return NewStoreWithDialector(dialector, opts)
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例。
func NewStoreWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := &Store{db: db}
	if err := db.AutoMigrate(&domain.Feed{}); err != nil {
		return nil, fmt.Errorf("failed to migrate feeds table: %w", err)
	}
	return store, nil
}

// InsertFeed 保存条目。主键冲突时覆盖写入（upsert 语义），
// 不做冲突以外的唯一性约束。
func (s *Store) InsertFeed(ctx context.Context, feed *domain.Feed) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(feed).Error
}

// GetFeed 按 ID 取条目。
func (s *Store) GetFeed(ctx context.Context, id string) (*domain.Feed, error) {
	var feed domain.Feed
	err := s.db.WithContext(ctx).First(&feed, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrFeedNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

// ListFeeds 按入库时间倒序分页列出条目。
func (s *Store) ListFeeds(ctx context.Context, limit, skip int) ([]domain.Feed, error) {
	var feeds []domain.Feed
	q := s.db.WithContext(ctx).Order("created_at DESC").Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

// ListRecentFeeds 按入库时间倒序取最新条目，fromBox 为空表示不过滤。
func (s *Store) ListRecentFeeds(ctx context.Context, fromBox string, limit int) ([]domain.Feed, error) {
	var feeds []domain.Feed
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if fromBox != "" {
		q = q.Where("from_box = ?", fromBox)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

// ListBoxes 列出去重后的目标邮箱。
func (s *Store) ListBoxes(ctx context.Context) ([]string, error) {
	var boxes []string
	err := s.db.WithContext(ctx).
		Model(&domain.Feed{}).
		Distinct("from_box").
		Order("from_box").
		Pluck("from_box", &boxes).Error
	if err != nil {
		return nil, err
	}
	return boxes, nil
}

// Health 探活。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
