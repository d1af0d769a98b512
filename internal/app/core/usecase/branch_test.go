package usecase_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// stubStore 可以指定每個步驟失敗的 AccountStore
type stubStore struct {
	initialized    bool
	initializedErr error
	initErr        error
	loadErr        error
	saveErr        error
	loaded         []*domain.Account

	initCalls int
	saved     []*domain.Account
	saveCalls int
}

func (s *stubStore) Initialized(context.Context) (bool, error) {
	return s.initialized, s.initializedErr
}

func (s *stubStore) Initialize(context.Context) error {
	s.initCalls++
	return s.initErr
}

func (s *stubStore) LoadAll(context.Context) ([]*domain.Account, error) {
	return s.loaded, s.loadErr
}

func (s *stubStore) SaveAll(_ context.Context, accounts []*domain.Account) error {
	s.saveCalls++
	s.saved = accounts
	return s.saveErr
}

func newBranch(t *testing.T, store usecase.AccountStore, opts ...usecase.Option) *usecase.Branch {
	t.Helper()
	b, err := usecase.NewBranch(context.Background(), "Central", store, opts...)
	require.NoError(t, err)
	return b
}

func createAccount(t *testing.T, b *usecase.Branch) int64 {
	t.Helper()
	number, err := b.CreateAccount()
	require.NoError(t, err)
	return number
}

func TestNewBranch_FirstRunInitializesStorage(t *testing.T) {
	store := &stubStore{}
	b := newBranch(t, store)

	assert.Equal(t, 1, store.initCalls)
	assert.Equal(t, "Central", b.Name())
	assert.Empty(t, b.Accounts())
}

func TestNewBranch_InitFailureIsFatal(t *testing.T) {
	cases := map[string]*stubStore{
		"initialize fails": {initErr: errors.New("disk full")},
		"probe fails":      {initializedErr: errors.New("permission denied")},
	}
	for name, store := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := usecase.NewBranch(context.Background(), "Central", store)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, domain.ErrStorageInit)
		})
	}
}

func TestNewBranch_LoadsExistingAccounts(t *testing.T) {
	store := memory.NewSeededStore(
		domain.NewAccount(3, d("10")),
		domain.NewAccount(7, d("20")),
	)
	b := newBranch(t, store)

	accounts := b.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(3), accounts[0].Number)
	assert.Equal(t, int64(7), accounts[1].Number)

	assert.Equal(t, int64(8), createAccount(t, b))
}

func TestNewBranch_LoadFailure(t *testing.T) {
	loadErr := errors.Join(domain.ErrStorageIO, errors.New("bad line"))

	t.Run("strict mode fails construction", func(t *testing.T) {
		b, err := usecase.NewBranch(context.Background(), "Central", &stubStore{initialized: true, loadErr: loadErr})
		assert.Nil(t, b)
		assert.ErrorIs(t, err, domain.ErrStorageIO)
	})

	t.Run("lenient mode starts empty and refuses to save", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		store := &stubStore{initialized: true, loadErr: loadErr}

		b := newBranch(t, store, usecase.WithLenientLoad(), usecase.WithLogger(zap.New(core)))
		assert.True(t, b.Degraded())
		assert.Empty(t, b.Accounts())
		assert.Equal(t, 1, logs.FilterMessage("failed to load accounts, starting empty").Len())

		assert.ErrorIs(t, b.Shutdown(context.Background()), domain.ErrDegradedBranch)
		assert.Zero(t, store.saveCalls)
	})
}

func TestNewBranch_RejectsDuplicateNumbers(t *testing.T) {
	store := &stubStore{
		initialized: true,
		loaded: []*domain.Account{
			domain.NewAccount(1, d("10")),
			domain.NewAccount(1, d("20")),
		},
	}

	_, err := usecase.NewBranch(context.Background(), "Central", store)
	assert.ErrorIs(t, err, domain.ErrStorageIO)
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyExists)
}

func TestNewBranch_RejectsNonPositiveNumbers(t *testing.T) {
	store := &stubStore{
		initialized: true,
		loaded:      []*domain.Account{domain.NewAccount(0, d("10"))},
	}

	_, err := usecase.NewBranch(context.Background(), "Central", store)
	assert.ErrorIs(t, err, domain.ErrStorageIO)
	assert.ErrorIs(t, err, domain.ErrInvalidAccountNumber)
}

func TestBranch_CreateAccountStopsAtMaxNumber(t *testing.T) {
	b := newBranch(t, memory.NewSeededStore(domain.NewAccount(math.MaxInt64-1, d("0"))))
	assert.Equal(t, int64(math.MaxInt64), createAccount(t, b))

	// 下一個帳號會溢位，拒絕開戶且不新增帳戶
	_, err := b.CreateAccount()
	assert.ErrorIs(t, err, domain.ErrAccountNumbersExhausted)
	assert.Len(t, b.Accounts(), 2)
}

func TestBranch_MaxNumberSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeededStore(domain.NewAccount(math.MaxInt64, d("5")))

	b := newBranch(t, store)
	_, err := b.CreateAccount()
	assert.ErrorIs(t, err, domain.ErrAccountNumbersExhausted)
	require.NoError(t, b.Shutdown(ctx))

	restored := newBranch(t, store)
	accounts := restored.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(math.MaxInt64), accounts[0].Number)
}

func TestBranch_CreateAccountNumbering(t *testing.T) {
	b := newBranch(t, memory.NewStore())

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, createAccount(t, b))
	}
}

func TestBranch_UnknownAccount(t *testing.T) {
	b := newBranch(t, memory.NewStore())
	existing := createAccount(t, b)

	var unknown *domain.UnknownAccountError

	err := b.Deposit(42, d("1"))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, int64(42), unknown.Number)

	err = b.Withdraw(43, d("1"))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, int64(43), unknown.Number)

	// 來源與目的地都不存在時回報來源
	err = b.Transfer(10, 11, d("1"))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, int64(10), unknown.Number)

	err = b.Transfer(existing, 11, d("1"))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, int64(11), unknown.Number)

	_, err = b.Balance(99)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestBranch_DepositWithdrawScenario(t *testing.T) {
	b := newBranch(t, memory.NewStore())
	n := createAccount(t, b)

	require.NoError(t, b.Deposit(n, d("100")))
	require.NoError(t, b.Withdraw(n, d("30")))
	assert.Contains(t, b.Report(), "Account 1 - balance: 70.00")

	err := b.Withdraw(n, d("1000"))
	var insufficient *domain.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, d("70").Equal(insufficient.Balance))

	assert.Contains(t, b.Report(), "Account 1 - balance: 70.00")
}

func TestBranch_TransferScenario(t *testing.T) {
	b := newBranch(t, memory.NewStore())
	a1 := createAccount(t, b)
	a2 := createAccount(t, b)
	require.NoError(t, b.Deposit(a1, d("50")))

	require.NoError(t, b.Transfer(a1, a2, d("50")))
	bal1, _ := b.Balance(a1)
	bal2, _ := b.Balance(a2)
	assert.True(t, bal1.IsZero())
	assert.True(t, d("50").Equal(bal2))

	assert.ErrorIs(t, b.Transfer(a1, a2, d("1")), domain.ErrInsufficientBalance)
	bal1, _ = b.Balance(a1)
	bal2, _ = b.Balance(a2)
	assert.True(t, bal1.IsZero())
	assert.True(t, d("50").Equal(bal2))
}

func TestBranch_Report(t *testing.T) {
	b := newBranch(t, memory.NewStore())
	assert.Equal(t, "\n==== Branch Central ====\nNo accounts in this branch.\n", b.Report())

	createAccount(t, b)
	createAccount(t, b)
	require.NoError(t, b.Deposit(2, d("12.5")))

	want := "\n==== Branch Central ====\n" +
		"Account 1 - balance: 0.00\n" +
		"Account 2 - balance: 12.50\n"
	assert.Equal(t, want, b.Report())
}

func TestBranch_ShutdownRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	b := newBranch(t, store)
	a1 := createAccount(t, b)
	a2 := createAccount(t, b)
	require.NoError(t, b.Deposit(a1, d("100")))
	require.NoError(t, b.Transfer(a1, a2, d("40")))
	require.NoError(t, b.Shutdown(ctx))

	restored := newBranch(t, store)
	assert.Equal(t, b.Accounts(), restored.Accounts())
	assert.Equal(t, int64(3), createAccount(t, restored))
}

func TestBranch_ShutdownReportsSaveFailure(t *testing.T) {
	store := &stubStore{saveErr: domain.ErrStorageIO}
	b := newBranch(t, store)
	createAccount(t, b)

	assert.ErrorIs(t, b.Shutdown(context.Background()), domain.ErrStorageIO)
	assert.Equal(t, 1, store.saveCalls)
	require.Len(t, store.saved, 1)
}

func TestBranch_ConcurrentTransfersConserveTotal(t *testing.T) {
	b := newBranch(t, memory.NewStore())
	a1 := createAccount(t, b)
	a2 := createAccount(t, b)
	require.NoError(t, b.Deposit(a1, d("1000")))
	require.NoError(t, b.Deposit(a2, d("1000")))

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = b.Transfer(a1, a2, d("1"))
		}()
		go func() {
			defer wg.Done()
			_ = b.Transfer(a2, a1, d("1"))
		}()
	}
	wg.Wait()

	bal1, _ := b.Balance(a1)
	bal2, _ := b.Balance(a2)
	assert.False(t, bal1.IsNegative())
	assert.False(t, bal2.IsNegative())
	assert.True(t, d("2000").Equal(bal1.Add(bal2)))
}
