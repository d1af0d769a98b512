package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
)

// Branch 分行：帳戶目錄 + 操作分發
//
// 結構:
//
//	name: 分行名稱
//	store: 持久化後端
//	accounts: 帳號 -> 帳戶
//	mu: 保護 accounts 與每個帳戶的餘額
//	degraded: 以寬鬆模式啟動且載入失敗，關閉時不可存檔
type Branch struct {
	name     string
	store    AccountStore
	logger   *zap.Logger
	accounts map[int64]*domain.Account
	mu       sync.RWMutex

	lenientLoad bool
	degraded    bool
}

// Option 定義了 Branch 的配置選項函數
type Option func(*Branch)

// WithLogger 設定 Branch 使用的 logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Branch) {
		b.logger = logger
	}
}

// WithLenientLoad 載入失敗時以空分行啟動而非回傳錯誤
// 此時分行為降級狀態，Shutdown 會拒絕覆寫既有儲存
func WithLenientLoad() Option {
	return func(b *Branch) {
		b.lenientLoad = true
	}
}

// NewBranch 建立分行並從儲存啟動
//
// 參數:
//
//	ctx: 上下文
//	name: 分行名稱
//	store: 持久化後端
//	opts: 選項
//
// 回傳:
//
//	*Branch: 分行
//	error: 儲存無法建立 (domain.ErrStorageInit) 或無法載入 (domain.ErrStorageIO)
func NewBranch(ctx context.Context, name string, store AccountStore, opts ...Option) (*Branch, error) {
	b := &Branch{
		name:     name,
		store:    store,
		logger:   zap.NewNop(),
		accounts: make(map[int64]*domain.Account),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("branch", name))

	if err := b.bootstrap(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// bootstrap 第一次執行時建立儲存，否則載入既有帳戶
func (b *Branch) bootstrap(ctx context.Context) error {
	initialized, err := b.store.Initialized(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageInit, err)
	}

	if !initialized {
		if err := b.store.Initialize(ctx); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStorageInit, err)
		}
		b.logger.Info("storage initialized")
		return nil
	}

	accounts, err := b.store.LoadAll(ctx)
	if err == nil {
		err = b.restore(accounts)
	}
	if err != nil {
		if !b.lenientLoad {
			return err
		}
		b.logger.Warn("failed to load accounts, starting empty", zap.Error(err))
		b.accounts = make(map[int64]*domain.Account)
		b.degraded = true
		return nil
	}
	b.logger.Info("accounts loaded", zap.Int("count", len(b.accounts)))
	return nil
}

// restore 將載入的帳戶放入目錄，帳號必須為正且不可重複
func (b *Branch) restore(accounts []*domain.Account) error {
	restored := make(map[int64]*domain.Account, len(accounts))
	for _, account := range accounts {
		if account.Number <= 0 {
			return fmt.Errorf("%w: %w: %d", domain.ErrStorageIO, domain.ErrInvalidAccountNumber, account.Number)
		}
		if _, ok := restored[account.Number]; ok {
			return fmt.Errorf("%w: %w: %d", domain.ErrStorageIO, domain.ErrAccountAlreadyExists, account.Number)
		}
		restored[account.Number] = account
	}
	b.accounts = restored
	return nil
}

// Name 分行名稱
func (b *Branch) Name() string {
	return b.name
}

// Degraded 分行是否以空資料降級啟動
func (b *Branch) Degraded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.degraded
}

// CreateAccount 開立餘額為 0 的新帳戶，回傳帳號
// 最大帳號已是 math.MaxInt64 時回傳 domain.ErrAccountNumbersExhausted
func (b *Branch) CreateAccount() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	highest := b.highestNumber()
	if highest == math.MaxInt64 {
		return 0, domain.ErrAccountNumbersExhausted
	}

	account := domain.NewAccount(highest+1, decimal.Zero)
	b.accounts[account.Number] = account
	b.logger.Debug("account created", zap.Int64("account", account.Number))
	return account.Number, nil
}

// highestNumber 目前最大帳號，空分行為 0
func (b *Branch) highestNumber() int64 {
	var highest int64
	for number := range b.accounts {
		if number > highest {
			highest = number
		}
	}
	return highest
}

// Deposit 存款
func (b *Branch) Deposit(number int64, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	account, err := b.lookup(number)
	if err != nil {
		return err
	}
	return account.Deposit(amount)
}

// Withdraw 提款
func (b *Branch) Withdraw(number int64, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	account, err := b.lookup(number)
	if err != nil {
		return err
	}
	return account.Withdraw(amount)
}

// Transfer 轉帳，先檢查來源再檢查目的地
func (b *Branch) Transfer(src, dst int64, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := b.lookup(src)
	if err != nil {
		return err
	}
	to, err := b.lookup(dst)
	if err != nil {
		return err
	}

	outcome, err := from.Transfer(to, amount)
	if outcome == domain.TransferCompensated || outcome == domain.TransferCompensationSkipped {
		b.logger.Warn("transfer not applied",
			zap.Int64("from", src),
			zap.Int64("to", dst),
			zap.String("amount", amount.String()),
			zap.Stringer("outcome", outcome),
			zap.Error(err),
		)
	}
	return err
}

// Balance 查詢帳戶餘額
func (b *Branch) Balance(number int64) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	account, err := b.lookup(number)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Accounts 回傳依帳號排序的帳戶值拷貝
func (b *Branch) Accounts() []domain.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Account, 0, len(b.accounts))
	for _, account := range b.sorted() {
		out = append(out, *account)
	}
	return out
}

// Report 產生分行所有帳戶的文字報表
func (b *Branch) Report() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n==== Branch %s ====\n", b.name)
	if len(b.accounts) == 0 {
		sb.WriteString("No accounts in this branch.\n")
		return sb.String()
	}
	for _, account := range b.sorted() {
		sb.WriteString(account.Statement())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Shutdown 將所有帳戶一次存回儲存，這是唯一的持久化時機
func (b *Branch) Shutdown(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.degraded {
		return domain.ErrDegradedBranch
	}

	accounts := b.sorted()
	if err := b.store.SaveAll(ctx, accounts); err != nil {
		b.logger.Error("failed to save accounts", zap.Error(err))
		return err
	}
	b.logger.Info("accounts saved", zap.Int("count", len(accounts)))
	return nil
}

func (b *Branch) lookup(number int64) (*domain.Account, error) {
	account, ok := b.accounts[number]
	if !ok {
		return nil, &domain.UnknownAccountError{Number: number}
	}
	return account, nil
}

// sorted 呼叫端需持有鎖
func (b *Branch) sorted() []*domain.Account {
	accounts := make([]*domain.Account, 0, len(b.accounts))
	for _, account := range b.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Number < accounts[j].Number
	})
	return accounts
}
