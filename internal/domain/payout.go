package domain

import (
	"strings"
	"time"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces the payout state machine:
// pending -> processing | cancelled, processing -> completed | failed | cancelled.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		return next == PayoutStatusProcessing || next == PayoutStatusCancelled
	case PayoutStatusProcessing:
		return next == PayoutStatusCompleted || next == PayoutStatusFailed || next == PayoutStatusCancelled
	}
	return false
}

type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodUPI          PayoutMethod = "upi"
	PayoutMethodPayPal       PayoutMethod = "paypal"
	PayoutMethodStripe       PayoutMethod = "stripe"
)

func (m PayoutMethod) Valid() bool {
	switch m {
	case PayoutMethodBankTransfer, PayoutMethodUPI, PayoutMethodPayPal, PayoutMethodStripe:
		return true
	}
	return false
}

type AccountDetails struct {
	AccountHolderName string
	AccountNumber     string
	IFSCCode          string
	BankName          string
	UPIID             string
	PayPalEmail       string
}

func (d AccountDetails) Validate() error {
	if strings.TrimSpace(d.AccountHolderName) == "" {
		return NewValidationError("accountHolderName is required")
	}
	return nil
}

// Payout groups a snapshot of order references whose seller amounts are being
// disbursed. OrderIDs never change after creation; each payout corresponds to
// exactly one ledger debit entry of equal magnitude.
type Payout struct {
	ID             string
	StoreID        string
	Number         string
	Amount         int64
	Currency       string
	Status         PayoutStatus
	Method         PayoutMethod
	SettlementDate time.Time
	AccountDetails AccountDetails
	OrderIDs       []string
	EntryIDs       []string
	TransactionID  *string
	FailureReason  *string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
