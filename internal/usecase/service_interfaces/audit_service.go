package service_interfaces

import (
	"context"

	"github.com/storelane/ledger-engine/internal/domain"
)

type AuditService interface {
	// Record persists an audit record. Failures are logged, never propagated;
	// audit writes must not break the financial operation they describe.
	Record(ctx context.Context, tenant domain.TenantContext, action domain.AuditAction, resourceType string, resourceID string, description string, changes []domain.FieldChange)
}
