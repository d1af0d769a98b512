package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/backend"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-branch-ledger/internal/config"
	"github.com/JoeShih716/go-branch-ledger/pkg/logger"
)

const (
	AccountCount   = 100
	TransferCount  = 100000
	Concurrency    = 100
	InitialDeposit = 1000
)

func main() {
	if err := run(); err != nil {
		log.Printf("Bench failed: %v", err)
		os.Exit(1)
	}
}

// run 對設定的後端產生大量轉帳，關閉後重新載入並檢查總額與每個帳戶的餘額
func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// 檔案類後端寫到暫存目錄，避免覆寫正式資料
	runID := uuid.New()
	dir := filepath.Join(os.TempDir(), "branch-bench-"+runID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)
	cfg.Storage.TextPath = filepath.Join(dir, "accounts.txt")
	cfg.Storage.BinaryPath = filepath.Join(dir, "accounts.dat")
	cfg.Storage.Database.Path = filepath.Join(dir, "accounts.db")

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	branch, err := openBranch(ctx, cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("start branch: %w", err)
	}

	numbers := make([]int64, 0, AccountCount)
	for i := 0; i < AccountCount; i++ {
		number, err := branch.CreateAccount()
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if err := branch.Deposit(number, decimal.NewFromInt(InitialDeposit)); err != nil {
			return fmt.Errorf("fund account %d: %w", number, err)
		}
		numbers = append(numbers, number)
	}

	var completed, rejected atomic.Int64
	var wg sync.WaitGroup
	wg.Add(TransferCount)

	sem := make(chan struct{}, Concurrency)

	startTime := time.Now()

	for i := 0; i < TransferCount; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			src := numbers[rand.Intn(len(numbers))]
			dst := numbers[rand.Intn(len(numbers))]
			amount := decimal.New(rand.Int63n(50000)+1, -2)

			if err := branch.Transfer(src, dst, amount); err != nil {
				rejected.Add(1)
				if idx%10000 == 0 {
					zapLogger.Debug("transfer rejected", zap.Int("idx", idx), zap.Error(err))
				}
				return
			}
			completed.Add(1)
		}(i)
	}

	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Run %s on %s backend\n", runID, cfg.Storage.Backend)
	fmt.Printf("Completed %d transfers (%d rejected) in %v\n", completed.Load(), rejected.Load(), elapsed)
	fmt.Printf("TPS: %.2f\n", float64(TransferCount)/elapsed.Seconds())

	before := branch.Accounts()
	if err := branch.Shutdown(ctx); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}

	// memory 後端每次都是新的 Store，沒有可重新載入的資料
	if cfg.Storage.Backend == config.BackendMemory {
		return verifyTotal(before)
	}

	reloaded, err := openBranch(ctx, cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("reload branch: %w", err)
	}
	after := reloaded.Accounts()
	if len(after) != len(before) {
		return fmt.Errorf("reloaded %d accounts, expected %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Number != before[i].Number || !after[i].Balance.Equal(before[i].Balance) {
			return fmt.Errorf("account %d mismatch after reload: %s != %s",
				before[i].Number, after[i].Balance.StringFixed(2), before[i].Balance.StringFixed(2))
		}
	}
	return verifyTotal(after)
}

func openBranch(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) (*usecase.Branch, error) {
	store, err := backend.New(cfg.Storage, zapLogger)
	if err != nil {
		return nil, err
	}
	return usecase.NewBranch(ctx, cfg.Branch.Name, store, usecase.WithLogger(zapLogger))
}

// verifyTotal 轉帳不會改變總額
func verifyTotal(accounts []domain.Account) error {
	total := decimal.Zero
	for _, account := range accounts {
		total = total.Add(account.Balance)
	}
	expected := decimal.NewFromInt(AccountCount * InitialDeposit)
	if !total.Equal(expected) {
		return fmt.Errorf("total balance %s, expected %s", total.StringFixed(2), expected.StringFixed(2))
	}
	fmt.Printf("Total balance verified: %s\n", total.StringFixed(2))
	return nil
}
