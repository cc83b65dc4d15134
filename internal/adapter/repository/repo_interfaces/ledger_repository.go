package repo_interfaces

import (
	"context"
	"time"

	"github.com/storelane/ledger-engine/internal/domain"
)

// LedgerRepository is the only writer of ledger entries. Implementations must
// serialize all appends for one store against each other while letting
// different stores proceed fully in parallel.
type LedgerRepository interface {
	// AppendEntries materializes the drafts as chained entries for storeID as
	// one indivisible unit: either every draft becomes visible, in order, or
	// none do. Returns ErrConcurrencyConflict when the balance transition
	// raced with another append.
	AppendEntries(ctx context.Context, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error)

	// AppendWithAttachment appends one entry and attaches payoutID to the
	// given entries inside the same serialization domain for the store.
	// Returns ErrConcurrencyConflict if any of the entries is already
	// attached to a payout.
	AppendWithAttachment(ctx context.Context, storeID string, draft domain.EntryDraft, payoutID string, attachEntryIDs []string) (domain.LedgerEntry, error)

	// LastEntry returns the newest entry for the store, or ErrRecordNotFound
	// when the chain is empty.
	LastEntry(ctx context.Context, storeID string) (domain.LedgerEntry, error)

	// ListByStore returns the full chain for the store in creation order.
	ListByStore(ctx context.Context, storeID string) ([]domain.LedgerEntry, error)

	// FindByPaymentID returns the first entry of the given type referencing
	// the payment, or ErrRecordNotFound.
	FindByPaymentID(ctx context.Context, paymentID string, entryType domain.EntryType) (domain.LedgerEntry, error)

	// FindCommissionByOrderID returns the commission entry recorded for the
	// order, or ErrRecordNotFound.
	FindCommissionByOrderID(ctx context.Context, orderID string) (domain.LedgerEntry, error)

	// ListByOrderID returns every entry referencing the order, in chain
	// order: the payment credit, commission debit, refunds and reversals.
	ListByOrderID(ctx context.Context, orderID string) ([]domain.LedgerEntry, error)

	// FindByPayoutID returns the payout debit entry referencing the payout,
	// or ErrRecordNotFound.
	FindByPayoutID(ctx context.Context, payoutID string) (domain.LedgerEntry, error)

	// DetachPayout clears the payout attachment from entries of a failed or
	// cancelled payout so they become eligible for selection again.
	DetachPayout(ctx context.Context, payoutID string) error

	// ListUnattachedOrderPayments returns order_payment entries for the store
	// not yet attached to any payout, ordered by creation time ascending.
	ListUnattachedOrderPayments(ctx context.Context, storeID string) ([]domain.LedgerEntry, error)

	// ListStoreIDsWithUnattached returns the ids of stores holding at least
	// one unattached order_payment entry.
	ListStoreIDsWithUnattached(ctx context.Context) ([]string, error)

	// UpdateStatus transitions the given entries' status. SettledAt is set
	// when status is settled.
	UpdateStatus(ctx context.Context, entryIDs []string, status domain.EntryStatus, settledAt *time.Time) error
}
