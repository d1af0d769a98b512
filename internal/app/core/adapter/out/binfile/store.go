package binfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-branch-ledger/pkg/atomicfile"
)

// DefaultPath 預設的快照檔名稱
const DefaultPath = "accounts.dat"

// Store 將所有帳戶序列化為一個二進位快照，一次寫入、一次讀取
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore 建立二進位快照 Store，path 為空時使用 DefaultPath
func NewStore(path string, logger *zap.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		logger: logger.Named("binfile").With(zap.String("path", path)),
		now:    time.Now,
	}
}

// Initialized 快照檔是否存在
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	return atomicfile.Exists(s.path)
}

// Initialize 不需要事先建立，第一次 SaveAll 時才會產生檔案
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

// LoadAll 一次讀入並解碼整個快照
func (s *Store) LoadAll(ctx context.Context) ([]*domain.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("failed to read snapshot", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}

	snapshot, err := Decode(data)
	if err != nil {
		s.logger.Error("failed to decode snapshot", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}

	s.logger.Debug("snapshot loaded",
		zap.Stringer("snapshot_id", snapshot.ID),
		zap.Time("written_at", snapshot.WrittenAt),
		zap.Int("accounts", len(snapshot.Accounts)),
	)
	return snapshot.Accounts, nil
}

// SaveAll 寫入新的快照取代舊檔
func (s *Store) SaveAll(ctx context.Context, accounts []*domain.Account) error {
	snapshot := Snapshot{
		ID:        uuid.New(),
		WrittenAt: s.now(),
		Accounts:  accounts,
	}
	if err := atomicfile.WriteFile(s.path, Encode(snapshot), atomicfile.FileModeReadOnly); err != nil {
		s.logger.Error("failed to save snapshot", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	s.logger.Debug("snapshot saved", zap.Stringer("snapshot_id", snapshot.ID), zap.Int("accounts", len(accounts)))
	return nil
}

var _ usecase.AccountStore = (*Store)(nil)
