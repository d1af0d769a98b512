package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account 單一帳戶 (帳號 + 餘額)
type Account struct {
	Number  int64
	Balance decimal.Decimal
}

// NewAccount 建立帳戶；新開戶餘額為 0，從儲存還原時帶入既有餘額
func NewAccount(number int64, balance decimal.Decimal) *Account {
	return &Account{
		Number:  number,
		Balance: balance,
	}
}

// Creditor 可以被存入金額的對象 (轉帳目的地)
type Creditor interface {
	Deposit(amount decimal.Decimal) error
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}

	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款，餘額不足時餘額維持不變
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}

	if a.Balance.LessThan(amount) {
		return &InsufficientFundsError{Number: a.Number, Balance: a.Balance}
	}

	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Transfer 轉帳：先從自己扣款，再存入目的地
//
// 參數:
//
//	dst: 目的地
//	amount: 金額
//
// 回傳:
//
//	TransferOutcome: 轉帳結果 (含是否已補償)
//	error: 失敗原因 (扣款或存入的原始錯誤)
func (a *Account) Transfer(dst Creditor, amount decimal.Decimal) (TransferOutcome, error) {
	before := a.Balance

	// 1. 扣款，失敗則不需補償
	if err := a.Withdraw(amount); err != nil {
		return TransferRejected, err
	}

	// 2. 存入目的地
	if err := dst.Deposit(amount); err != nil {
		return a.compensate(before, amount), err
	}
	return TransferCompleted, nil
}

// compensate 存入失敗時退回扣款
// 只有餘額仍是 before - amount 時才退回，期間若有其他變動則放棄
func (a *Account) compensate(before, amount decimal.Decimal) TransferOutcome {
	if !a.Balance.Equal(before.Sub(amount)) {
		return TransferCompensationSkipped
	}
	a.Balance = a.Balance.Add(amount)
	return TransferCompensated
}

// Statement 單行帳戶摘要
func (a *Account) Statement() string {
	return fmt.Sprintf("Account %d - balance: %s", a.Number, a.Balance.StringFixed(2))
}
