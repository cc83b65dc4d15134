package repo_interfaces

import (
	"context"

	"github.com/storelane/ledger-engine/internal/domain"
)

type AuditRepository interface {
	Create(ctx context.Context, record domain.AuditLog) (domain.AuditLog, error)
	ListByStore(ctx context.Context, storeID string) ([]domain.AuditLog, error)
}
