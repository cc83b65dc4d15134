package service_interfaces

import "time"

type CommissionService interface {
	// ComputeSplit splits an order total in minor units into the platform
	// commission and the seller amount. commission + sellerAmount == total.
	ComputeSplit(total int64, commissionRatePercent float64) (commission int64, sellerAmount int64, err error)

	// ComputeSettlementDate returns the calendar date on which a payment
	// recorded at paidAt becomes eligible for payout.
	ComputeSettlementDate(paidAt time.Time, payoutDelayDays int) (time.Time, error)
}
