package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/storelane/ledger-engine/internal/domain"
)

type PayoutRepository struct {
	mu      sync.Mutex
	payouts map[string]domain.Payout
	order   []string
	seq     int64
}

func NewPayoutRepository() *PayoutRepository {
	return &PayoutRepository{
		payouts: make(map[string]domain.Payout),
	}
}

func (r *PayoutRepository) Create(ctx context.Context, payout domain.Payout) (domain.Payout, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payout{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	r.seq++
	payout.ID = ulid.Make().String()
	payout.Number = fmt.Sprintf("PO-%d-%06d", now.Year(), r.seq)
	payout.CreatedAt = now
	payout.UpdatedAt = now

	r.payouts[payout.ID] = payout
	r.order = append(r.order, payout.ID)
	return payout, nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, id string) (domain.Payout, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payout{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payout, ok := r.payouts[id]
	if !ok {
		return domain.Payout{}, domain.ErrRecordNotFound
	}
	return payout, nil
}

func (r *PayoutRepository) ListByStore(ctx context.Context, storeID string) ([]domain.Payout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Payout
	for _, id := range r.order {
		if payout := r.payouts[id]; payout.StoreID == storeID {
			out = append(out, payout)
		}
	}
	return out, nil
}

func (r *PayoutRepository) UpdateStatus(ctx context.Context, id string, status domain.PayoutStatus, transactionID *string, failureReason *string, processedAt *time.Time) (domain.Payout, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payout{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payout, ok := r.payouts[id]
	if !ok {
		return domain.Payout{}, domain.ErrRecordNotFound
	}

	payout.Status = status
	if transactionID != nil {
		payout.TransactionID = transactionID
	}
	payout.FailureReason = failureReason
	payout.ProcessedAt = processedAt
	payout.UpdatedAt = time.Now().UTC()

	r.payouts[id] = payout
	return payout, nil
}
