package usecase

import (
	"context"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
)

// AccountStore 是帳戶持久化的介面，每種儲存後端 (文字檔/二進位快照/資料庫) 都要實作
type AccountStore interface {
	// Initialized 儲存是否已建立 (通常是檔案是否存在)，不得有副作用
	Initialized(ctx context.Context) (bool, error)
	// Initialize 建立空的儲存，只在 Initialized 為 false 時呼叫
	Initialize(ctx context.Context) error
	// LoadAll 載入所有帳戶，讀取或解碼失敗回傳 domain.ErrStorageIO
	LoadAll(ctx context.Context) ([]*domain.Account, error)
	// SaveAll 以傳入的完整帳戶集合作為新的持久化狀態
	SaveAll(ctx context.Context, accounts []*domain.Account) error
}
