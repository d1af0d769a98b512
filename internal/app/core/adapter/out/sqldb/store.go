package sqldb

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-branch-ledger/pkg/atomicfile"
	"github.com/JoeShih716/go-branch-ledger/pkg/database"
)

// TableName 帳戶表名稱
const TableName = "CONTA"

// createTableSQL 兩欄位、沒有主鍵與唯一限制
const createTableSQL = "CREATE TABLE " + TableName + " (NUMERO INT NOT NULL, SALDO REAL NOT NULL)"

// hasTableSQL MySQL 檢查目前資料庫是否已有帳戶表
const hasTableSQL = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"

// sqlAccount 對應資料庫的 CONTA 表
type sqlAccount struct {
	Number  int64           `gorm:"column:NUMERO;not null"`
	Balance decimal.Decimal `gorm:"column:SALDO;type:real;not null"`
}

func (*sqlAccount) TableName() string {
	return TableName
}

// Opener 開啟一條新的資料庫連線
type Opener func() (*database.Client, error)

// Store 以關聯式資料庫保存帳戶
// 每個操作都自己開啟並關閉連線，不跨操作重用
type Store struct {
	cfg    database.Config
	open   Opener
	logger *zap.Logger
}

// NewStore 依配置建立 Store
func NewStore(cfg database.Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewStoreWithOpener(cfg, func() (*database.Client, error) {
		return database.NewClient(cfg, logger)
	}, logger)
}

// NewStoreWithOpener 以自訂的 Opener 建立 Store (測試時注入 sqlmock)
func NewStoreWithOpener(cfg database.Config, open Opener, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cfg:    cfg,
		open:   open,
		logger: logger.Named("sqldb").With(zap.String("driver", cfg.Driver)),
	}
}

// withDB 開啟連線執行 fn，結束後關閉
func (s *Store) withDB(ctx context.Context, fn func(db *gorm.DB) error) error {
	client, err := s.open()
	if err != nil {
		s.logger.Error("failed to open database", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.logger.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := fn(client.DB().WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

// Initialized SQLite 看資料庫檔案是否存在；MySQL 看帳戶表是否存在
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	if s.cfg.Driver == database.DriverSQLite {
		return atomicfile.Exists(s.cfg.Path)
	}

	var count int64
	err := s.withDB(ctx, func(db *gorm.DB) error {
		return db.Raw(hasTableSQL, TableName).Scan(&count).Error
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Initialize 建立帳戶表
func (s *Store) Initialize(ctx context.Context) error {
	err := s.withDB(ctx, func(db *gorm.DB) error {
		return db.Exec(createTableSQL).Error
	})
	if err != nil {
		s.logger.Error("failed to create table", zap.Error(err))
		return err
	}
	s.logger.Info("table created", zap.String("table", TableName))
	return nil
}

// LoadAll 全表掃描
func (s *Store) LoadAll(ctx context.Context) ([]*domain.Account, error) {
	var rows []sqlAccount
	err := s.withDB(ctx, func(db *gorm.DB) error {
		return db.Find(&rows).Error
	})
	if err != nil {
		s.logger.Error("failed to load accounts", zap.Error(err))
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, domain.NewAccount(row.Number, row.Balance))
	}
	return accounts, nil
}

// SaveAll 逐筆 upsert：存在則 UPDATE，否則 INSERT
// 全部包在同一個 Transaction 中，任一筆失敗整批 rollback
// 不會刪除記憶體中已不存在的帳戶
func (s *Store) SaveAll(ctx context.Context, accounts []*domain.Account) error {
	err := s.withDB(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			for _, account := range accounts {
				if err := upsert(tx, account); err != nil {
					return fmt.Errorf("account %d: %w", account.Number, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		s.logger.Error("failed to save accounts", zap.Error(err))
		return err
	}
	return nil
}

// Exists 帳號是否已有資料列
func (s *Store) Exists(ctx context.Context, number int64) (bool, error) {
	var found bool
	err := s.withDB(ctx, func(db *gorm.DB) error {
		var err error
		found, err = exists(db, number)
		return err
	})
	return found, err
}

// Insert 新增一筆資料列
func (s *Store) Insert(ctx context.Context, account *domain.Account) error {
	return s.withDB(ctx, func(db *gorm.DB) error {
		return insert(db, account)
	})
}

// Update 更新帳號對應資料列的餘額
func (s *Store) Update(ctx context.Context, account *domain.Account) error {
	return s.withDB(ctx, func(db *gorm.DB) error {
		return update(db, account)
	})
}

// Delete 刪除帳號對應的資料列 (SaveAll 不會呼叫)
func (s *Store) Delete(ctx context.Context, number int64) error {
	return s.withDB(ctx, func(db *gorm.DB) error {
		return db.Where("NUMERO = ?", number).Delete(&sqlAccount{}).Error
	})
}

func upsert(tx *gorm.DB, account *domain.Account) error {
	found, err := exists(tx, account.Number)
	if err != nil {
		return err
	}
	if found {
		return update(tx, account)
	}
	return insert(tx, account)
}

func exists(db *gorm.DB, number int64) (bool, error) {
	var count int64
	if err := db.Model(&sqlAccount{}).Where("NUMERO = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func insert(db *gorm.DB, account *domain.Account) error {
	return db.Create(&sqlAccount{Number: account.Number, Balance: account.Balance}).Error
}

func update(db *gorm.DB, account *domain.Account) error {
	return db.Model(&sqlAccount{}).Where("NUMERO = ?", account.Number).Update("SALDO", account.Balance).Error
}

var _ usecase.AccountStore = (*Store)(nil)
