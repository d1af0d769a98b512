package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
)

// Store 是一個只存在記憶體中的 AccountStore
// 存入與讀出都會複製帳戶，外部修改不會影響已保存的快照
//
// 結構:
//
//	accounts: 帳號 -> 帳戶快照
//	initialized: 是否已建立
//	mu: Mutex 用於保護快照
type Store struct {
	accounts    map[int64]domain.Account
	initialized bool
	mu          sync.RWMutex
}

// NewStore 建立尚未初始化的空 Store
func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]domain.Account),
	}
}

// NewSeededStore 建立已初始化並帶有帳戶的 Store
func NewSeededStore(accounts ...*domain.Account) *Store {
	s := NewStore()
	s.initialized = true
	for _, account := range accounts {
		s.accounts[account.Number] = *account
	}
	return s
}

// Initialized implements usecase.AccountStore.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, nil
}

// Initialize implements usecase.AccountStore.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	s.accounts = make(map[int64]domain.Account)
	return nil
}

// LoadAll 依帳號排序回傳帳戶副本
func (s *Store) LoadAll(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, domain.NewAccount(account.Number, account.Balance))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// SaveAll 以傳入的帳戶取代整份快照
func (s *Store) SaveAll(ctx context.Context, accounts []*domain.Account) error {
	snapshot := make(map[int64]domain.Account, len(accounts))
	for _, account := range accounts {
		snapshot[account.Number] = *account
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snapshot
	s.initialized = true
	return nil
}

var _ usecase.AccountStore = (*Store)(nil)
