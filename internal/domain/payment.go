package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccess    PaymentStatus = "success"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// Payment is owned by the payment gateway integration; consumed read-only.
type Payment struct {
	ID             string
	StoreID        string
	OrderID        string
	PaymentNumber  string
	Amount         int64
	Currency       string
	Status         PaymentStatus
	RefundedAmount int64
	PaidAt         *time.Time
	RefundedAt     *time.Time
}
