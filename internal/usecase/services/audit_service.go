package services

import (
	"context"

	"github.com/storelane/ledger-engine/internal/adapter/repository/repo_interfaces"
	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/logger"
)

// AuditService records who did what to which resource. Writes are best
// effort: a failed audit insert is logged and swallowed so it can never fail
// the financial operation it describes.
type AuditService struct {
	auditRepo repo_interfaces.AuditRepository
}

func NewAuditService(auditRepo repo_interfaces.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

func (s *AuditService) Record(ctx context.Context, tenant domain.TenantContext, action domain.AuditAction, resourceType string, resourceID string, description string, changes []domain.FieldChange) {
	record := domain.AuditLog{
		StoreID:      tenant.StoreID,
		ActorID:      tenant.OwnerID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Description:  description,
		Changes:      changes,
	}

	if _, err := s.auditRepo.Create(ctx, record); err != nil {
		logger.Error("audit service record failed", err, logger.Fields{
			"storeId":      tenant.StoreID,
			"action":       action,
			"resourceType": resourceType,
		})
	}
}
