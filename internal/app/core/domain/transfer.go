package domain

// TransferOutcome 轉帳結果
// 為了極致節省記憶體，使用 uint8
type TransferOutcome uint8

const (
	// 轉帳完成
	TransferCompleted TransferOutcome = iota + 1
	// 扣款失敗，雙方都沒有變動
	TransferRejected
	// 扣款成功但存入失敗，已退回來源帳戶
	TransferCompensated
	// 扣款成功但存入失敗，來源餘額已被其他操作改變，未退回
	TransferCompensationSkipped
)

func (o TransferOutcome) String() string {
	switch o {
	case TransferCompleted:
		return "completed"
	case TransferRejected:
		return "rejected"
	case TransferCompensated:
		return "compensated"
	case TransferCompensationSkipped:
		return "compensation_skipped"
	default:
		return "unknown"
	}
}

// Applied 轉帳是否真的生效
func (o TransferOutcome) Applied() bool {
	return o == TransferCompleted
}
