package domain

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionPayment AuditAction = "payment"
	AuditActionPayout  AuditAction = "payout"
)

// FieldChange is one typed before/after pair. Audit records carry a list of
// these instead of an untyped blob so readers can rely on the shape.
type FieldChange struct {
	Field  string
	Before string
	After  string
}

type AuditLog struct {
	ID           string
	StoreID      string
	ActorID      string
	Action       AuditAction
	ResourceType string
	ResourceID   string
	Description  string
	Changes      []FieldChange
	CreatedAt    time.Time
}
