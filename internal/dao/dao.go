// Package dao 实现数据访问层
package dao

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gookit/goutil/fsutil"
	"github.com/haierkeys/fast-note-image-uploader/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path sqlite 文件路径
	Path        string
	TablePrefix string
	AutoMigrate bool
	// Debug 打印 SQL
	Debug bool
}

type Dao struct {
	Db     *gorm.DB
	logger *zap.Logger
}

// New 创建 Dao
func New(db *gorm.DB, lg *zap.Logger) *Dao {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Dao{Db: db, logger: lg}
}

func (d *Dao) Logger() *zap.Logger {
	return d.logger
}

// Close 关闭底层连接
func (d *Dao) Close() error {
	sqlDB, err := d.Db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewDBEngine 打开 sqlite 数据库
func NewDBEngine(c DatabaseConfig) (*gorm.DB, error) {
	if c.Path == "" {
		return nil, errors.New("database path is empty")
	}
	if c.Path != ":memory:" {
		if err := fsutil.MkParentDir(c.Path); err != nil {
			return nil, errors.Wrap(err, "create database dir")
		}
	}

	logMode := logger.Silent
	if c.Debug {
		logMode = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(c.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 单写者
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if c.AutoMigrate {
		if err := model.AutoMigrateAll(db); err != nil {
			return nil, errors.Wrap(err, "auto migrate")
		}
	}
	return db, nil
}
