package repo_interfaces

import (
	"context"

	"github.com/storelane/ledger-engine/internal/domain"
)

// StoreRepository reads tenant configuration snapshots. The full store record
// is owned by the store-resolution layer.
type StoreRepository interface {
	GetSettings(ctx context.Context, storeID string) (domain.StoreSettings, error)
}
