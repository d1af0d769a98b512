package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/in/console"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/adapter/out/backend"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-branch-ledger/internal/config"
	"github.com/JoeShih716/go-branch-ledger/pkg/logger"
)

// shutdownTimeout 收到訊號後存檔的最長時間
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(context.Background(), config.Path(), os.Stdin, os.Stdout); err != nil {
		log.Printf("Branch exited with error: %v", err)
		os.Exit(1)
	}
}

// run 組裝並執行分行，回傳前一定會 Sync logger
func run(parent context.Context, cfgPath string, in io.Reader, out io.Writer) error {
	// 1. 載入設定
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zapLogger.Info("config loaded",
		zap.String("path", cfgPath),
		zap.String("backend", cfg.Storage.Backend),
	)

	// 3. 建立持久化後端
	store, err := backend.New(cfg.Storage, zapLogger)
	if err != nil {
		zapLogger.Error("failed to create storage backend", zap.Error(err))
		return err
	}

	// 4. 啟動分行 (建立或載入儲存)
	opts := []usecase.Option{usecase.WithLogger(zapLogger)}
	if cfg.Branch.LenientLoad {
		opts = append(opts, usecase.WithLenientLoad())
	}
	branch, err := usecase.NewBranch(parent, cfg.Branch.Name, store, opts...)
	if err != nil {
		zapLogger.Error("failed to start branch", zap.Error(err))
		return err
	}
	zapLogger.Info("branch started",
		zap.String("branch", branch.Name()),
		zap.Int("accounts", len(branch.Accounts())),
		zap.Bool("degraded", branch.Degraded()),
	)

	// 5. 啟動文字選單 (Driving Adapter)
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- console.New(branch, in, out, zapLogger).Run(ctx)
	}()

	// Graceful Shutdown: 選單離開時已自行存檔，收到訊號則在這裡存檔
	select {
	case err := <-done:
		if err == nil {
			zapLogger.Info("branch exited")
			return nil
		}
		if !errors.Is(err, context.Canceled) {
			zapLogger.Error("branch exited with error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down branch...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := branch.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("failed to save accounts", zap.Error(err))
		return err
	}
	zapLogger.Info("branch exited")
	return nil
}
