package repo_interfaces

import (
	"context"
	"time"

	"github.com/storelane/ledger-engine/internal/domain"
)

type PayoutRepository interface {
	// Create persists the payout and assigns its id and PO-YYYY-NNNNNN
	// number from a persisted sequence.
	Create(ctx context.Context, payout domain.Payout) (domain.Payout, error)
	GetByID(ctx context.Context, id string) (domain.Payout, error)
	ListByStore(ctx context.Context, storeID string) ([]domain.Payout, error)
	UpdateStatus(ctx context.Context, id string, status domain.PayoutStatus, transactionID *string, failureReason *string, processedAt *time.Time) (domain.Payout, error)
}
