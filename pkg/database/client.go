package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-branch-ledger/pkg/logger"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// Dialector 依 Driver 建立對應的 gorm.Dialector
func Dialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewClient 建立並回傳一個新的資料庫客戶端實例 (GORM)
//
// 參數:
//
//	cfg: Config - 連線配置
//	zapLogger: SQL log 輸出
//
// 回傳值:
//
//	*Client: 封裝後的客戶端
//	error: 若連線失敗則回傳錯誤
func NewClient(cfg Config, zapLogger *zap.Logger) (*Client, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithDialector(dialector, cfg, zapLogger)
}

// NewClientWithDialector 以指定的 dialector 建立客戶端 (測試時可注入 sqlmock)
func NewClientWithDialector(dialector gorm.Dialector, cfg Config, zapLogger *zap.Logger) (*Client, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	gormConfig := &gorm.Config{
		// 預設跳過事務模式，需要時由呼叫端明確開啟 Transaction
		SkipDefaultTransaction: true,
		Logger: logger.NewGormLogger(
			zapLogger.With(zap.String("driver", cfg.Driver)),
			logger.MapGormLogLevel(cfg.LogLevel),
			cfg.SlowThreshold,
		),
	}

	var db *gorm.DB
	var err error

	// Retry mechanism for database connection
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			// Try pinging to ensure connection is actually alive
			rawDB, dbErr := db.DB()
			if dbErr == nil {
				if err = rawDB.Ping(); err == nil {
					break // Connection successful
				}
			} else {
				err = dbErr
			}
		}

		if i < maxRetries-1 {
			zapLogger.Warn("failed to connect to database, retrying",
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
				zap.Duration("retry_in", cfg.RetryInterval),
				zap.Error(err),
			)
			time.Sleep(cfg.RetryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", cfg.Driver, maxRetries, err)
	}

	// 取得底層 sql.DB 物件以設定連線池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Client{db: db}, nil
}

// DB 回傳底層的 *gorm.DB 實例，供業務邏輯層使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
