package service_interfaces

import (
	"context"

	"github.com/storelane/ledger-engine/internal/domain"
)

type PaymentService interface {
	// RecordOrderPayment records the financial effect of a paid order: a
	// payment credit and a commission debit, appended as one atomic batch.
	// A second call with the same payment id returns ErrDuplicateEntry
	// without touching the chain; callers treat that as success.
	RecordOrderPayment(ctx context.Context, tenant domain.TenantContext, order domain.Order, payment domain.Payment) error

	// RecordOrderRefund reverses a recorded payment: a refund debit and a
	// proportional commission adjustment, appended as one atomic batch.
	// Idempotent on payment id the same way RecordOrderPayment is.
	RecordOrderRefund(ctx context.Context, tenant domain.TenantContext, order domain.Order, payment domain.Payment) error
}
