package services_test

import (
	"fmt"
	"time"

	"github.com/storelane/ledger-engine/internal/adapter/repository/memory"
	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/usecase/services"
)

type fixture struct {
	ledgerRepo *memory.LedgerRepository
	payoutRepo *memory.PayoutRepository
	storeRepo  *memory.StoreRepository
	auditRepo  *memory.AuditRepository

	ledger     *services.LedgerService
	commission *services.CommissionService
	audit      *services.AuditService
	payments   *services.PaymentService
	settlement *services.SettlementService
}

func newFixture() *fixture {
	f := &fixture{
		ledgerRepo: memory.NewLedgerRepository(),
		payoutRepo: memory.NewPayoutRepository(),
		storeRepo:  memory.NewStoreRepository(),
		auditRepo:  memory.NewAuditRepository(),
	}

	f.ledger = services.NewLedgerService(f.ledgerRepo)
	f.commission = services.NewCommissionService()
	f.audit = services.NewAuditService(f.auditRepo)
	f.payments = services.NewPaymentService(f.ledger, f.audit, f.ledgerRepo)
	f.settlement = services.NewSettlementService(f.ledgerRepo, f.payoutRepo, f.storeRepo, f.ledger, f.commission, f.audit)

	return f
}

func (f *fixture) seedStore(storeID string, payoutDelayDays int, withPayoutAccount bool) domain.StoreSettings {
	settings := domain.StoreSettings{
		StoreID:               storeID,
		OwnerID:               "owner-" + storeID,
		Currency:              "USD",
		CommissionRatePercent: 5,
		PayoutDelayDays:       payoutDelayDays,
		PayoutMethod:          domain.PayoutMethodBankTransfer,
		Status:                domain.StoreStatusActive,
	}
	if withPayoutAccount {
		settings.PayoutAccount = domain.AccountDetails{
			AccountHolderName: "Seller " + storeID,
			AccountNumber:     "0011223344",
			BankName:          "Test Bank",
		}
	}
	f.storeRepo.Put(settings)
	return settings
}

var orderSeq int

// paidOrder builds an order/payment pair with the split already snapshotted,
// the way checkout hands them to the recorder.
func paidOrder(storeID string, total, commission int64) (domain.Order, domain.Payment) {
	orderSeq++
	now := time.Now().UTC()
	order := domain.Order{
		ID:           fmt.Sprintf("order-%s-%d", storeID, orderSeq),
		StoreID:      storeID,
		OrderNumber:  fmt.Sprintf("ORD-2026-%06d", orderSeq),
		Status:       domain.OrderStatusConfirmed,
		Total:        total,
		Subtotal:     total,
		Commission:   commission,
		SellerAmount: total - commission,
		Currency:     "USD",
		PaidAt:       &now,
		CreatedAt:    now,
	}
	payment := domain.Payment{
		ID:            fmt.Sprintf("payment-%s-%d", storeID, orderSeq),
		StoreID:       storeID,
		OrderID:       order.ID,
		PaymentNumber: fmt.Sprintf("PAY-2026-%06d", orderSeq),
		Amount:        total,
		Currency:      "USD",
		Status:        domain.PaymentStatusSuccess,
		PaidAt:        &now,
	}
	return order, payment
}

func tenantFor(storeID string) domain.TenantContext {
	return domain.TenantContext{StoreID: storeID, OwnerID: "owner-" + storeID}
}
