package binfile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/JoeShih716/go-branch-ledger/internal/app/core/domain"
)

// 快照以 protobuf wire format 編碼，欄位編號如下
//
//	snapshot { 1: header, 2: repeated account }
//	header   { 1: version, 2: id (16 bytes uuid), 3: written_at (unix millis) }
//	account  { 1: number, 2: balance (decimal string) }
const (
	fieldSnapshotHeader  protowire.Number = 1
	fieldSnapshotAccount protowire.Number = 2

	fieldHeaderVersion   protowire.Number = 1
	fieldHeaderID        protowire.Number = 2
	fieldHeaderWrittenAt protowire.Number = 3

	fieldAccountNumber  protowire.Number = 1
	fieldAccountBalance protowire.Number = 2

	formatVersion = 1
)

var (
	// ErrMissingHeader 快照沒有標頭
	ErrMissingHeader = errors.New("snapshot header missing")
	// ErrUnsupportedVersion 快照版本不支援
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Snapshot 一次寫入的完整帳戶快照
type Snapshot struct {
	ID        uuid.UUID
	WrittenAt time.Time
	Accounts  []*domain.Account
}

// Encode 將快照編碼為單一 blob
func Encode(s Snapshot) []byte {
	var header []byte
	header = protowire.AppendTag(header, fieldHeaderVersion, protowire.VarintType)
	header = protowire.AppendVarint(header, formatVersion)
	header = protowire.AppendTag(header, fieldHeaderID, protowire.BytesType)
	header = protowire.AppendBytes(header, s.ID[:])
	header = protowire.AppendTag(header, fieldHeaderWrittenAt, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(s.WrittenAt.UnixMilli()))

	var out []byte
	out = protowire.AppendTag(out, fieldSnapshotHeader, protowire.BytesType)
	out = protowire.AppendBytes(out, header)

	for _, account := range s.Accounts {
		var record []byte
		record = protowire.AppendTag(record, fieldAccountNumber, protowire.VarintType)
		record = protowire.AppendVarint(record, protowire.EncodeZigZag(account.Number))
		record = protowire.AppendTag(record, fieldAccountBalance, protowire.BytesType)
		record = protowire.AppendString(record, account.Balance.String())

		out = protowire.AppendTag(out, fieldSnapshotAccount, protowire.BytesType)
		out = protowire.AppendBytes(out, record)
	}
	return out
}

// Decode 解碼整個 blob，任何錯誤都使整個快照無效
func Decode(b []byte) (Snapshot, error) {
	var s Snapshot
	s.Accounts = make([]*domain.Account, 0)
	haveHeader := false

	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch {
		case num == fieldSnapshotHeader && typ == protowire.BytesType:
			if err := decodeHeader(value, &s); err != nil {
				return fmt.Errorf("header: %w", err)
			}
			haveHeader = true
		case num == fieldSnapshotAccount && typ == protowire.BytesType:
			account, err := decodeAccount(value)
			if err != nil {
				return fmt.Errorf("account %d: %w", len(s.Accounts), err)
			}
			s.Accounts = append(s.Accounts, account)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	if !haveHeader {
		return Snapshot{}, ErrMissingHeader
	}
	return s, nil
}

func decodeHeader(b []byte, s *Snapshot) error {
	var version uint64
	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch {
		case num == fieldHeaderVersion && typ == protowire.VarintType:
			v, _ := protowire.ConsumeVarint(value)
			version = v
		case num == fieldHeaderID && typ == protowire.BytesType:
			id, err := uuid.FromBytes(value)
			if err != nil {
				return err
			}
			s.ID = id
		case num == fieldHeaderWrittenAt && typ == protowire.VarintType:
			ms, _ := protowire.ConsumeVarint(value)
			s.WrittenAt = time.UnixMilli(int64(ms))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if version != formatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return nil
}

func decodeAccount(b []byte) (*domain.Account, error) {
	var (
		number     int64
		balance    decimal.Decimal
		hasBalance bool
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch {
		case num == fieldAccountNumber && typ == protowire.VarintType:
			v, _ := protowire.ConsumeVarint(value)
			number = protowire.DecodeZigZag(v)
		case num == fieldAccountBalance && typ == protowire.BytesType:
			d, err := decimal.NewFromString(string(value))
			if err != nil {
				return err
			}
			balance = d
			hasBalance = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !hasBalance {
		return nil, errors.New("balance missing")
	}
	return domain.NewAccount(number, balance), nil
}

// walk 依序走訪每個欄位；varint 欄位的 value 是原始 varint bytes，bytes 欄位則是內容
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var value []byte
		switch typ {
		case protowire.VarintType:
			_, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			value, b = b[:m], b[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			value, b = v, b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}

		if err := fn(num, typ, value); err != nil {
			return err
		}
	}
	return nil
}
