package domain

// SettlementStatus описывает исход операции у платёжного провайдера.
type SettlementStatus string

const (
	// SettlementStatusReversed — средства возвращены покупателю.
	SettlementStatusReversed SettlementStatus = "reversed"
	// SettlementStatusFailed — провайдер отклонил операцию или произошла ошибка.
	SettlementStatusFailed SettlementStatus = "failed"
)
