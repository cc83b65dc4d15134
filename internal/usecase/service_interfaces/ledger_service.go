package service_interfaces

import (
	"context"

	"github.com/storelane/ledger-engine/internal/domain"
)

type LedgerService interface {
	// AppendEntry appends one entry to the store's chain. Retries transient
	// balance races internally before surfacing ErrConcurrencyConflict.
	AppendEntry(ctx context.Context, storeID string, draft domain.EntryDraft) (domain.LedgerEntry, error)

	// AppendBatch appends the drafts as one indivisible chain extension.
	AppendBatch(ctx context.Context, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error)

	// AppendPayoutDebit appends the payout debit entry and attaches payoutID
	// to the contributing entries in one atomic unit. Attachment races are
	// surfaced as ErrConcurrencyConflict without internal retry; callers must
	// re-select eligible entries before trying again.
	AppendPayoutDebit(ctx context.Context, storeID string, draft domain.EntryDraft, payoutID string, attachEntryIDs []string) (domain.LedgerEntry, error)

	// GetBalance returns the total recorded balance: the latest entry's
	// balanceAfter, or 0 for an empty chain.
	GetBalance(ctx context.Context, storeID string) (int64, error)

	// GetSettledBalance returns the sum of settled entries' amounts.
	GetSettledBalance(ctx context.Context, storeID string) (int64, error)

	// VerifyChain walks the store's chain and checks the balance linkage.
	// Detected corruption halts further writes for the store until manual
	// reconciliation.
	VerifyChain(ctx context.Context, storeID string) error
}
