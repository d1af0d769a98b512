package database

import (
	"fmt"
	"time"
)

// 支援的 driver
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config 定義資料庫連線與連線池的配置
type Config struct {
	Driver string `yaml:"driver"` // sqlite 或 mysql

	// SQLite 設定
	Path string `yaml:"path"` // 資料庫檔案路徑

	// MySQL 設定
	Host     string `yaml:"host"`     // 資料庫主機地址
	Port     int    `yaml:"port"`     // 資料庫埠號 (預設 3306)
	User     string `yaml:"user"`     // 使用者名稱
	Password string `yaml:"password"` // 密碼
	DBName   string `yaml:"db_name"`  // 資料庫名稱

	// 連線池設定 (Connection Pool)
	// 每次操作都重新開關連線，因此預設只開一條
	MaxOpenConns    int           `yaml:"max_open_conns"`    // 最大開啟連線數
	MaxIdleConns    int           `yaml:"max_idle_conns"`    // 最大閒置連線數
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"` // 連線最大存活時間

	// 連線重試
	MaxRetries    int           `yaml:"max_retries"`    // 最多嘗試次數
	RetryInterval time.Duration `yaml:"retry_interval"` // 重試間隔

	// GORM 設定
	LogLevel      string        `yaml:"log_level"`      // Log 等級: "silent", "error", "warn", "info"
	SlowThreshold time.Duration `yaml:"slow_threshold"` // 超過即記為慢查詢，0 表示不記錄
}

// DefaultConfig 回傳本機 SQLite 的預設配置
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		Path:            "accounts.db",
		Port:            3306,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
		MaxRetries:      1,
		RetryInterval:   2 * time.Second,
		LogLevel:        "error",
		SlowThreshold:   200 * time.Millisecond,
	}
}

// DSN (Data Source Name) 產生連線字串
// MySQL 格式: user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite path is empty")
		}
		return c.Path, nil
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User,
			c.Password,
			c.Host,
			c.Port,
			c.DBName,
		), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}
