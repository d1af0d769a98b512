package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-branch-ledger/internal/app/core/usecase"
)

// 選單選項
const (
	OptionCreate = iota + 1
	OptionReport
	OptionDeposit
	OptionWithdraw
	OptionTransfer
	OptionExit
)

// errInputClosed 輸入已結束 (EOF)，視同離開
var errInputClosed = errors.New("input closed")

// Teller 選單需要的分行操作
type Teller interface {
	Name() string
	CreateAccount() (int64, error)
	Deposit(number int64, amount decimal.Decimal) error
	Withdraw(number int64, amount decimal.Decimal) error
	Transfer(src, dst int64, amount decimal.Decimal) error
	Report() string
	Shutdown(ctx context.Context) error
}

// Console 文字選單，只負責讀取輸入、呼叫分行、輸出結果
type Console struct {
	teller Teller
	in     *bufio.Scanner
	out    io.Writer
	logger *zap.Logger
}

// New 建立文字選單
func New(teller Teller, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		teller: teller,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger.Named("console"),
	}
}

// Run 反覆顯示選單直到使用者選擇離開或輸入結束，離開時呼叫 Shutdown 存檔
// ctx 取消時直接回傳 ctx.Err()，由呼叫端負責存檔
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		option, err := c.readMenu()
		if errors.Is(err, errInputClosed) {
			return c.exit(ctx)
		}
		if err != nil {
			return err
		}

		c.println()
		switch option {
		case OptionCreate:
			c.create()
		case OptionReport:
			c.println(c.teller.Report())
		case OptionDeposit:
			err = c.deposit()
		case OptionWithdraw:
			err = c.withdraw()
		case OptionTransfer:
			err = c.transfer()
		case OptionExit:
			return c.exit(ctx)
		default:
			c.println("Invalid option!")
			c.println()
			continue
		}
		if errors.Is(err, errInputClosed) {
			return c.exit(ctx)
		}
		c.pause()
	}
}

func (c *Console) readMenu() (int, error) {
	c.printf("Welcome to branch %s!\n\n", c.teller.Name())
	c.println("1 - Create account")
	c.println("2 - Branch report")
	c.println("3 - Deposit")
	c.println("4 - Withdraw")
	c.println("5 - Transfer")
	c.println("6 - Exit")
	return c.readInt("Enter your option: ")
}

func (c *Console) create() {
	number, err := c.teller.CreateAccount()
	if err != nil {
		c.println("Could not create account!")
		c.println(err.Error())
		return
	}
	c.printf("Account %d created!\n", number)
}

func (c *Console) deposit() error {
	number, err := c.readAccount("")
	if err != nil {
		return err
	}
	amount, err := c.readAmount()
	if err != nil {
		return err
	}

	if err := c.teller.Deposit(number, amount); err != nil {
		c.println(err.Error())
		return nil
	}
	c.println("Deposit completed successfully!")
	return nil
}

func (c *Console) withdraw() error {
	number, err := c.readAccount("")
	if err != nil {
		return err
	}
	amount, err := c.readAmount()
	if err != nil {
		return err
	}

	if err := c.teller.Withdraw(number, amount); err != nil {
		c.failure("Could not withdraw!", err)
		return nil
	}
	c.println("Withdrawal completed successfully!")
	return nil
}

func (c *Console) transfer() error {
	src, err := c.readAccount("to debit")
	if err != nil {
		return err
	}
	dst, err := c.readAccount("to credit")
	if err != nil {
		return err
	}
	amount, err := c.readAmount()
	if err != nil {
		return err
	}

	if err := c.teller.Transfer(src, dst, amount); err != nil {
		c.failure("Could not transfer!", err)
		return nil
	}
	c.println("Transfer completed successfully!")
	return nil
}

// failure 餘額不足時另外顯示當時的餘額
func (c *Console) failure(headline string, err error) {
	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		c.println(err.Error())
		c.printf("The account only had %s!\n", insufficient.Balance.StringFixed(2))
		return
	}
	c.println(headline)
	c.println(err.Error())
}

func (c *Console) exit(ctx context.Context) error {
	c.printf("\nThank you for using the services of branch %s!\n\n", c.teller.Name())
	if err := c.teller.Shutdown(ctx); err != nil {
		c.printf("Could not save accounts: %v\n", err)
		return err
	}
	return nil
}

func (c *Console) readAccount(purpose string) (int64, error) {
	prompt := "Enter the account number: "
	if purpose != "" {
		prompt = fmt.Sprintf("Enter the account number %s: ", purpose)
	}
	for {
		line, err := c.readLine(prompt)
		if err != nil {
			return 0, err
		}
		number, err := strconv.ParseInt(line, 10, 64)
		if err == nil {
			return number, nil
		}
		c.println("Invalid account number, try again.")
	}
}

func (c *Console) readAmount() (decimal.Decimal, error) {
	for {
		line, err := c.readLine("Enter the amount: ")
		if err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(line)
		if err == nil {
			return amount, nil
		}
		c.println("Invalid amount, try again.")
	}
}

func (c *Console) readInt(prompt string) (int, error) {
	for {
		line, err := c.readLine(prompt)
		if err != nil {
			return 0, err
		}
		value, err := strconv.Atoi(line)
		if err == nil {
			return value, nil
		}
		c.println("Please enter a number.")
	}
}

func (c *Console) readLine(prompt string) (string, error) {
	c.printf("%s", prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			c.logger.Error("failed to read input", zap.Error(err))
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) pause() {
	c.printf("\n... press ENTER to continue...")
	c.in.Scan()
	c.printf("\n\n")
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

var _ Teller = (*usecase.Branch)(nil)
