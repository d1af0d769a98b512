package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 帳戶已存在 (載入時帳號重複)
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrInvalidAccountNumber 帳號必須為正整數
	ErrInvalidAccountNumber = errors.New("invalid account number")

	// ErrAccountNumbersExhausted 帳號已用到最大值，無法再開戶
	ErrAccountNumbersExhausted = errors.New("no account numbers left")

	// ErrStorageInit 無法建立持久化儲存，分行無法啟動
	ErrStorageInit = errors.New("storage initialization failed")

	// ErrStorageIO 持久化讀寫失敗
	ErrStorageIO = errors.New("storage io failed")

	// ErrDegradedBranch 分行以空資料降級啟動，拒絕覆寫既有儲存
	ErrDegradedBranch = errors.New("branch started from unreadable storage, refusing to save")
)

// UnknownAccountError 操作指定了不存在的帳號
type UnknownAccountError struct {
	Number int64
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("account %d not found", e.Number)
}

func (e *UnknownAccountError) Unwrap() error {
	return ErrAccountNotFound
}

// InsufficientFundsError 提款/轉帳金額超過餘額
// Balance 為失敗當下的餘額，供前端顯示
type InsufficientFundsError struct {
	Number  int64
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance in account %d (balance %s)", e.Number, e.Balance.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientBalance
}
