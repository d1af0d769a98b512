package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-branch-ledger/pkg/database"
	"github.com/JoeShih716/go-branch-ledger/pkg/logger"
)

// DefaultPath 預設設定檔位置
const DefaultPath = "config/config.yaml"

// PathEnv 可覆寫設定檔位置的環境變數
const PathEnv = "BRANCH_CONFIG"

// 持久化後端
const (
	BackendText   = "text"
	BackendBinary = "binary"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// Config 程式的完整設定
type Config struct {
	Branch  BranchConfig  `yaml:"branch"`
	Storage StorageConfig `yaml:"storage"`
	Log     logger.Config `yaml:"log"`
}

// BranchConfig 分行設定
type BranchConfig struct {
	Name        string `yaml:"name"`
	LenientLoad bool   `yaml:"lenient_load"` // 載入失敗時以空分行啟動 (降級，關閉時不存檔)
}

// StorageConfig 持久化後端設定
type StorageConfig struct {
	Backend    string          `yaml:"backend"` // text, binary, sql, memory
	TextPath   string          `yaml:"text_path"`
	BinaryPath string          `yaml:"binary_path"`
	Database   database.Config `yaml:"database"`
}

// Default 沒有設定檔時使用的配置
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Path 回傳設定檔位置，環境變數優先
func Path() string {
	if path := os.Getenv(PathEnv); path != "" {
		return path
	}
	return DefaultPath
}

// Load 讀取並解析設定檔
// 檔案不存在時回傳預設配置；yaml 沒寫的欄位補上預設值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 yaml 內容
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 檢查設定值是否合法
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendText, BackendBinary, BackendMemory:
	case BackendSQL:
		if _, err := c.Storage.Database.DSN(); err != nil {
			return fmt.Errorf("invalid database config: %w", err)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// applyDefaults 補全 yaml 沒寫的設定
func (c *Config) applyDefaults() {
	if c.Branch.Name == "" {
		c.Branch.Name = "Main"
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendText
	}
	if c.Storage.TextPath == "" {
		c.Storage.TextPath = "accounts.txt"
	}
	if c.Storage.BinaryPath == "" {
		c.Storage.BinaryPath = "accounts.dat"
	}

	// 補全資料庫預設配置
	db := &c.Storage.Database
	defaults := database.DefaultConfig()
	if db.Driver == "" {
		db.Driver = defaults.Driver
	}
	if db.Driver == database.DriverSQLite && db.Path == "" {
		db.Path = defaults.Path
	}
	if db.Port == 0 {
		db.Port = defaults.Port
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = defaults.MaxOpenConns
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = defaults.MaxIdleConns
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if db.MaxRetries == 0 {
		db.MaxRetries = defaults.MaxRetries
	}
	if db.RetryInterval == 0 {
		db.RetryInterval = defaults.RetryInterval
	}
	if db.LogLevel == "" {
		db.LogLevel = defaults.LogLevel
	}
	if db.SlowThreshold == 0 {
		db.SlowThreshold = defaults.SlowThreshold
	}

	// 補全 log 預設配置
	logDefaults := logger.DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = logDefaults.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = logDefaults.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = logDefaults.Output
	}
}
