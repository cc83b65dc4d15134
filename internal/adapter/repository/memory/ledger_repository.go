package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/storelane/ledger-engine/internal/domain"
)

// LedgerRepository keeps per-store entry chains in memory. A dedicated mutex
// per store serializes appends for that store; appends to different stores
// never contend. Used by the test suite and local wiring.
type LedgerRepository struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	chains map[string][]domain.LedgerEntry
	index  map[string]entryRef
}

type entryRef struct {
	storeID  string
	position int
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		locks:  make(map[string]*sync.Mutex),
		chains: make(map[string][]domain.LedgerEntry),
		index:  make(map[string]entryRef),
	}
}

func (r *LedgerRepository) storeLock(storeID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[storeID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[storeID] = lock
	}
	return lock
}

func (r *LedgerRepository) AppendEntries(ctx context.Context, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := r.storeLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	return r.appendLocked(storeID, drafts)
}

func (r *LedgerRepository) AppendWithAttachment(ctx context.Context, storeID string, draft domain.EntryDraft, payoutID string, attachEntryIDs []string) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}

	lock := r.storeLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	chain := r.chains[storeID]
	positions := make([]int, 0, len(attachEntryIDs))
	for _, id := range attachEntryIDs {
		ref, ok := r.index[id]
		if !ok || ref.storeID != storeID {
			r.mu.Unlock()
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		if chain[ref.position].References.PayoutID != nil {
			r.mu.Unlock()
			return domain.LedgerEntry{}, domain.ErrConcurrencyConflict
		}
		positions = append(positions, ref.position)
	}
	for _, pos := range positions {
		id := payoutID
		chain[pos].References.PayoutID = &id
	}
	r.mu.Unlock()

	created, err := r.appendLocked(storeID, []domain.EntryDraft{draft})
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	return created[0], nil
}

// appendLocked requires the store lock to be held.
func (r *LedgerRepository) appendLocked(storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain := r.chains[storeID]
	balance := int64(0)
	if len(chain) > 0 {
		balance = chain[len(chain)-1].BalanceAfter
	}

	now := time.Now().UTC()
	created := make([]domain.LedgerEntry, 0, len(drafts))
	for _, draft := range drafts {
		entry := domain.LedgerEntry{
			ID:            ulid.Make().String(),
			StoreID:       storeID,
			Type:          draft.Type,
			Status:        domain.EntryStatusPending,
			Amount:        draft.Amount,
			Currency:      draft.Currency,
			BalanceBefore: balance,
			BalanceAfter:  balance + draft.Amount,
			References:    draft.References,
			Description:   draft.Description,
			CreatedAt:     now,
		}
		balance = entry.BalanceAfter
		created = append(created, entry)
	}

	for _, entry := range created {
		r.index[entry.ID] = entryRef{storeID: storeID, position: len(chain)}
		chain = append(chain, entry)
	}
	r.chains[storeID] = chain

	return created, nil
}

func (r *LedgerRepository) LastEntry(ctx context.Context, storeID string) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	chain := r.chains[storeID]
	if len(chain) == 0 {
		return domain.LedgerEntry{}, domain.ErrRecordNotFound
	}
	return chain[len(chain)-1], nil
}

func (r *LedgerRepository) ListByStore(ctx context.Context, storeID string) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	chain := r.chains[storeID]
	out := make([]domain.LedgerEntry, len(chain))
	copy(out, chain)
	return out, nil
}

func (r *LedgerRepository) FindByPaymentID(ctx context.Context, paymentID string, entryType domain.EntryType) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, chain := range r.chains {
		for _, entry := range chain {
			if entry.Type != entryType {
				continue
			}
			if entry.References.PaymentID != nil && *entry.References.PaymentID == paymentID {
				return entry, nil
			}
		}
	}
	return domain.LedgerEntry{}, domain.ErrRecordNotFound
}

func (r *LedgerRepository) FindCommissionByOrderID(ctx context.Context, orderID string) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, chain := range r.chains {
		for _, entry := range chain {
			if entry.Type != domain.EntryTypeCommission {
				continue
			}
			if entry.References.OrderID != nil && *entry.References.OrderID == orderID {
				return entry, nil
			}
		}
	}
	return domain.LedgerEntry{}, domain.ErrRecordNotFound
}

func (r *LedgerRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.LedgerEntry
	for _, chain := range r.chains {
		for _, entry := range chain {
			if entry.References.OrderID != nil && *entry.References.OrderID == orderID {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

func (r *LedgerRepository) FindByPayoutID(ctx context.Context, payoutID string) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, chain := range r.chains {
		for _, entry := range chain {
			if entry.Type != domain.EntryTypePayout {
				continue
			}
			if entry.References.PayoutID != nil && *entry.References.PayoutID == payoutID {
				return entry, nil
			}
		}
	}
	return domain.LedgerEntry{}, domain.ErrRecordNotFound
}

func (r *LedgerRepository) DetachPayout(ctx context.Context, payoutID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for storeID, chain := range r.chains {
		for i := range chain {
			entry := &chain[i]
			if entry.Type != domain.EntryTypeOrderPayment {
				continue
			}
			if entry.References.PayoutID != nil && *entry.References.PayoutID == payoutID {
				entry.References.PayoutID = nil
			}
		}
		r.chains[storeID] = chain
	}
	return nil
}

func (r *LedgerRepository) ListUnattachedOrderPayments(ctx context.Context, storeID string) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.LedgerEntry
	for _, entry := range r.chains[storeID] {
		if entry.Type != domain.EntryTypeOrderPayment {
			continue
		}
		if entry.References.PayoutID != nil {
			continue
		}
		if entry.Status == domain.EntryStatusCancelled {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *LedgerRepository) ListStoreIDsWithUnattached(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for storeID, chain := range r.chains {
		for _, entry := range chain {
			if entry.Type == domain.EntryTypeOrderPayment && entry.References.PayoutID == nil && entry.Status != domain.EntryStatusCancelled {
				out = append(out, storeID)
				break
			}
		}
	}
	return out, nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, entryIDs []string, status domain.EntryStatus, settledAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range entryIDs {
		ref, ok := r.index[id]
		if !ok {
			return domain.ErrRecordNotFound
		}
		entry := &r.chains[ref.storeID][ref.position]
		entry.Status = status
		entry.SettledAt = settledAt
	}
	return nil
}
