package domain

import (
	"strings"
	"time"
)

type EntryType string

const (
	EntryTypeOrderPayment EntryType = "order_payment"
	EntryTypeCommission   EntryType = "commission"
	EntryTypePayout       EntryType = "payout"
	EntryTypeRefund       EntryType = "refund"
	EntryTypeAdjustment   EntryType = "adjustment"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeOrderPayment, EntryTypeCommission, EntryTypePayout, EntryTypeRefund, EntryTypeAdjustment:
		return true
	}
	return false
}

func ParseEntryType(raw string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", NewValidationError("unknown ledger entry type %q", raw)
	}
	return t, nil
}

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusSettled   EntryStatus = "settled"
	EntryStatusCancelled EntryStatus = "cancelled"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusPending, EntryStatusSettled, EntryStatusCancelled:
		return true
	}
	return false
}

// EntryReferences links an entry back to the records that produced it.
type EntryReferences struct {
	OrderID   *string
	PaymentID *string
	PayoutID  *string
}

// LedgerEntry is immutable once created; only Status and SettledAt may
// transition (pending -> settled/cancelled). Consecutive entries for one
// store satisfy next.BalanceBefore == prev.BalanceAfter.
type LedgerEntry struct {
	ID            string
	StoreID       string
	Type          EntryType
	Status        EntryStatus
	Amount        int64
	Currency      string
	BalanceBefore int64
	BalanceAfter  int64
	References    EntryReferences
	Description   string
	CreatedAt     time.Time
	SettledAt     *time.Time
}

// EntryDraft is the write-side shape handed to the ledger repository. The
// repository alone assigns id, balances and creation time.
type EntryDraft struct {
	Type        EntryType
	Amount      int64
	Currency    string
	Description string
	References  EntryReferences
}

func (d EntryDraft) Validate() error {
	if !d.Type.Valid() {
		return NewValidationError("entry type %q is not valid", string(d.Type))
	}
	if err := ValidateCurrency(d.Currency); err != nil {
		return err
	}
	if strings.TrimSpace(d.Description) == "" {
		return NewValidationError("entry description is required")
	}
	return nil
}

func ValidateCurrency(currency string) error {
	ccy := strings.TrimSpace(currency)
	if len(ccy) != 3 {
		return NewValidationError("currency must be a 3-letter code, got %q", currency)
	}
	for _, r := range ccy {
		if r < 'A' || r > 'Z' {
			return NewValidationError("currency must be uppercase letters, got %q", currency)
		}
	}
	return nil
}
