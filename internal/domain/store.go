package domain

type StoreStatus string

const (
	StoreStatusActive    StoreStatus = "active"
	StoreStatusInactive  StoreStatus = "inactive"
	StoreStatusSuspended StoreStatus = "suspended"
	StoreStatusPending   StoreStatus = "pending"
)

// StoreSettings is the configuration snapshot the ledger core reads for a
// tenant. The store-resolution layer owns the full store record.
type StoreSettings struct {
	StoreID               string
	OwnerID               string
	Currency              string
	CommissionRatePercent float64
	PayoutDelayDays       int
	PayoutMethod          PayoutMethod
	PayoutAccount         AccountDetails
	Status                StoreStatus
}

// TenantContext arrives pre-validated from the store-resolution layer;
// the ledger core performs no additional ownership checks.
type TenantContext struct {
	StoreID string
	OwnerID string
}
