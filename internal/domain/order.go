package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Order is owned by checkout; the ledger consumes it read-only. Commission
// and SellerAmount are snapshotted from the store's commission rate at
// payment time and never recomputed.
type Order struct {
	ID           string
	StoreID      string
	OrderNumber  string
	Status       OrderStatus
	Subtotal     int64
	Total        int64
	Commission   int64
	SellerAmount int64
	Currency     string
	PaidAt       *time.Time
	CreatedAt    time.Time
}
