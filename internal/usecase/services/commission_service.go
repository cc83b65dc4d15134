package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storelane/ledger-engine/internal/domain"
)

const maxPayoutDelayDays = 7

type CommissionService struct{}

func NewCommissionService() *CommissionService {
	return &CommissionService{}
}

var oneHundred = decimal.NewFromInt(100)

// ComputeSplit rounds the commission half-up and derives the seller amount by
// subtraction, so commission + sellerAmount == total for every valid input.
func (s *CommissionService) ComputeSplit(total int64, commissionRatePercent float64) (int64, int64, error) {
	if total < 0 {
		return 0, 0, domain.NewValidationError("total must not be negative, got %d", total)
	}
	if commissionRatePercent < 0 || commissionRatePercent > 100 {
		return 0, 0, domain.NewValidationError("commissionRatePercent must be within [0,100], got %v", commissionRatePercent)
	}

	commission := decimal.NewFromInt(total).
		Mul(decimal.NewFromFloat(commissionRatePercent)).
		Div(oneHundred).
		Round(0).
		IntPart()

	return commission, total - commission, nil
}

// ComputeSettlementDate adds the payout delay in calendar days to the payment
// date. The result carries no time-of-day component; timezone normalization
// is the caller's responsibility.
func (s *CommissionService) ComputeSettlementDate(paidAt time.Time, payoutDelayDays int) (time.Time, error) {
	if payoutDelayDays < 0 || payoutDelayDays > maxPayoutDelayDays {
		return time.Time{}, domain.NewValidationError("payoutDelayDays must be within [0,%d], got %d", maxPayoutDelayDays, payoutDelayDays)
	}

	year, month, day := paidAt.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, payoutDelayDays), nil
}
