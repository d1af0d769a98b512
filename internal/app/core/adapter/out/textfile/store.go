package textfile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-branch-ledger/pkg/atomicfile"
)

// DefaultPath 預設的文字檔名稱
const DefaultPath = "accounts.txt"

// Store 以文字檔保存帳戶，每行一筆 `number,balance`
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore 建立文字檔 Store，path 為空時使用 DefaultPath
func NewStore(path string, logger *zap.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		logger: logger.Named("textfile").With(zap.String("path", path)),
	}
}

// Initialized 檔案是否存在
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	return atomicfile.Exists(s.path)
}

// Initialize 建立空檔案
func (s *Store) Initialize(ctx context.Context) error {
	if err := atomicfile.Create(s.path, atomicfile.FileModeReadOnly); err != nil {
		s.logger.Error("failed to create file", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

// LoadAll 讀取整個檔案，任何一行格式錯誤都視為整個檔案讀取失敗
func (s *Store) LoadAll(ctx context.Context) ([]*domain.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("failed to read file", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}

	accounts, err := Decode(data)
	if err != nil {
		s.logger.Error("failed to parse file", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	return accounts, nil
}

// SaveAll 整份覆寫 (先寫暫存檔再 rename)
func (s *Store) SaveAll(ctx context.Context, accounts []*domain.Account) error {
	if err := atomicfile.WriteFile(s.path, Encode(accounts), atomicfile.FileModeReadOnly); err != nil {
		s.logger.Error("failed to save file", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

// Encode 每個帳戶一行 `number,balance\n`
func Encode(accounts []*domain.Account) []byte {
	var buf bytes.Buffer
	for _, account := range accounts {
		buf.WriteString(strconv.FormatInt(account.Number, 10))
		buf.WriteByte(',')
		buf.WriteString(account.Balance.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Decode 解析 Encode 的輸出
func Decode(data []byte) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		account, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		accounts = append(accounts, account)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func parseLine(text string) (*domain.Account, error) {
	numberField, balanceField, ok := strings.Cut(strings.TrimSuffix(text, "\r"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed record %q", text)
	}
	number, err := strconv.ParseInt(strings.TrimSpace(numberField), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("account number: %w", err)
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(balanceField))
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return domain.NewAccount(number, balance), nil
}

var _ usecase.AccountStore = (*Store)(nil)
