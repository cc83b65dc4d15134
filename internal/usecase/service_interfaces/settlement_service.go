package service_interfaces

import (
	"context"
	"time"

	"github.com/storelane/ledger-engine/internal/domain"
)

type SettlementService interface {
	// SelectEligibleEntries returns the store's order_payment entries whose
	// settlement date has passed and that are not attached to any payout,
	// ordered by creation time ascending.
	SelectEligibleEntries(ctx context.Context, storeID string, asOf time.Time) ([]domain.LedgerEntry, error)

	// CreatePayout groups the entries into a pending payout and appends the
	// matching ledger debit. Fails with ErrConcurrencyConflict when another
	// payout claimed any of the entries first; callers must re-select.
	CreatePayout(ctx context.Context, tenant domain.TenantContext, storeID string, entries []domain.LedgerEntry, method domain.PayoutMethod, details domain.AccountDetails) (domain.Payout, error)

	// MarkPayoutProcessing transitions pending -> processing.
	MarkPayoutProcessing(ctx context.Context, tenant domain.TenantContext, payoutID string) (domain.Payout, error)

	// MarkPayoutCompleted transitions processing -> completed and settles the
	// contributing entries, their commission entries, and the payout debit.
	MarkPayoutCompleted(ctx context.Context, tenant domain.TenantContext, payoutID string, transactionID string) (domain.Payout, error)

	// MarkPayoutFailed transitions processing -> failed, appends one
	// compensating adjustment reversing the debit, and releases the
	// contributing entries for future selection.
	MarkPayoutFailed(ctx context.Context, tenant domain.TenantContext, payoutID string, reason string) (domain.Payout, error)

	// MarkPayoutCancelled is MarkPayoutFailed for the cancelled terminal
	// state; also legal straight from pending.
	MarkPayoutCancelled(ctx context.Context, tenant domain.TenantContext, payoutID string, reason string) (domain.Payout, error)

	// RunSettlement sweeps all stores with eligible entries and creates one
	// payout per store, processing stores in parallel.
	RunSettlement(ctx context.Context, asOf time.Time) error
}
