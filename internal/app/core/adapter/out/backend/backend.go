package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/binfile"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/sqldb"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/textfile"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-branch-ledger/internal/config"
)

// New 依設定建立對應的持久化後端
//
// 參數:
//
//	cfg: 後端設定
//	logger: 後端使用的 logger，nil 時不輸出
//
// 回傳:
//
//	usecase.AccountStore: 後端實作
//	error: 未知的後端名稱
func New(cfg config.StorageConfig, logger *zap.Logger) (usecase.AccountStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case config.BackendText:
		return textfile.NewStore(cfg.TextPath, logger), nil
	case config.BackendBinary:
		return binfile.NewStore(cfg.BinaryPath, logger), nil
	case config.BackendSQL:
		return sqldb.NewStore(cfg.Database, logger), nil
	case config.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
