package memory

import (
	"context"
	"sync"

	"github.com/storelane/ledger-engine/internal/domain"
)

// StoreRepository serves tenant configuration snapshots from memory. Seeded
// explicitly by tests and local wiring.
type StoreRepository struct {
	mu       sync.RWMutex
	settings map[string]domain.StoreSettings
}

func NewStoreRepository(seed ...domain.StoreSettings) *StoreRepository {
	settings := make(map[string]domain.StoreSettings, len(seed))
	for _, s := range seed {
		settings[s.StoreID] = s
	}
	return &StoreRepository{settings: settings}
}

func (r *StoreRepository) Put(settings domain.StoreSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.StoreID] = settings
}

func (r *StoreRepository) GetSettings(ctx context.Context, storeID string) (domain.StoreSettings, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoreSettings{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	settings, ok := r.settings[storeID]
	if !ok {
		return domain.StoreSettings{}, domain.ErrRecordNotFound
	}
	return settings, nil
}
