package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/storelane/ledger-engine/internal/domain"
)

type AuditRepository struct {
	mu      sync.Mutex
	records []domain.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(ctx context.Context, record domain.AuditLog) (domain.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditLog{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = ulid.Make().String()
	record.CreatedAt = time.Now().UTC()
	r.records = append(r.records, record)
	return record, nil
}

func (r *AuditRepository) ListByStore(ctx context.Context, storeID string) ([]domain.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.AuditLog
	for _, record := range r.records {
		if record.StoreID == storeID {
			out = append(out, record)
		}
	}
	return out, nil
}
