package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/storelane/ledger-engine/internal/adapter/repository/repo_interfaces"
	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/logger"
	"github.com/storelane/ledger-engine/internal/usecase/service_interfaces"
)

// PaymentService orchestrates the linked entries produced when an order is
// paid or refunded. The commission snapshot on the order is trusted as
// computed at payment time; rates are never re-read here.
type PaymentService struct {
	ledger     service_interfaces.LedgerService
	auditSvc   service_interfaces.AuditService
	ledgerRepo repo_interfaces.LedgerRepository
}

func NewPaymentService(
	ledger service_interfaces.LedgerService,
	auditSvc service_interfaces.AuditService,
	ledgerRepo repo_interfaces.LedgerRepository,
) *PaymentService {
	return &PaymentService{
		ledger:     ledger,
		auditSvc:   auditSvc,
		ledgerRepo: ledgerRepo,
	}
}

func (s *PaymentService) RecordOrderPayment(ctx context.Context, tenant domain.TenantContext, order domain.Order, payment domain.Payment) error {
	logger.Info("payment service record order payment", logger.Fields{
		"storeId":     order.StoreID,
		"orderNumber": order.OrderNumber,
		"paymentId":   payment.ID,
	})

	if err := validateOrderPayment(order, payment); err != nil {
		return err
	}

	if _, err := s.ledgerRepo.FindByPaymentID(ctx, payment.ID, domain.EntryTypeOrderPayment); err == nil {
		logger.Info("payment service payment already recorded", logger.Fields{
			"paymentId": payment.ID,
		})
		return domain.ErrDuplicateEntry
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("check payment idempotency: %w", err)
	}

	drafts := []domain.EntryDraft{
		{
			Type:        domain.EntryTypeOrderPayment,
			Amount:      order.Total,
			Currency:    order.Currency,
			Description: fmt.Sprintf("Payment received for order %s", order.OrderNumber),
			References: domain.EntryReferences{
				OrderID:   &order.ID,
				PaymentID: &payment.ID,
			},
		},
		{
			Type:        domain.EntryTypeCommission,
			Amount:      -order.Commission,
			Currency:    order.Currency,
			Description: fmt.Sprintf("Commission deducted for order %s", order.OrderNumber),
			References: domain.EntryReferences{
				OrderID: &order.ID,
			},
		},
	}

	if _, err := s.ledger.AppendBatch(ctx, order.StoreID, drafts); err != nil {
		logger.Error("payment service append payment batch failed", err, logger.Fields{
			"storeId":   order.StoreID,
			"paymentId": payment.ID,
		})
		return err
	}

	s.auditSvc.Record(ctx, tenant, domain.AuditActionPayment, "order", order.ID,
		fmt.Sprintf("Recorded payment for order %s", order.OrderNumber),
		[]domain.FieldChange{
			{Field: "total", Before: "0", After: strconv.FormatInt(order.Total, 10)},
			{Field: "commission", Before: "0", After: strconv.FormatInt(order.Commission, 10)},
		})

	return nil
}

func (s *PaymentService) RecordOrderRefund(ctx context.Context, tenant domain.TenantContext, order domain.Order, payment domain.Payment) error {
	logger.Info("payment service record order refund", logger.Fields{
		"storeId":     order.StoreID,
		"orderNumber": order.OrderNumber,
		"paymentId":   payment.ID,
	})

	if payment.ID == "" {
		return domain.NewValidationError("payment id is required")
	}
	if payment.RefundedAmount <= 0 {
		return domain.NewValidationError("refunded amount must be positive, got %d", payment.RefundedAmount)
	}
	if payment.RefundedAmount > order.Total {
		return domain.NewValidationError("refunded amount %d exceeds order total %d", payment.RefundedAmount, order.Total)
	}
	if err := domain.ValidateCurrency(order.Currency); err != nil {
		return err
	}

	if _, err := s.ledgerRepo.FindByPaymentID(ctx, payment.ID, domain.EntryTypeRefund); err == nil {
		logger.Info("payment service refund already recorded", logger.Fields{
			"paymentId": payment.ID,
		})
		return domain.ErrDuplicateEntry
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("check refund idempotency: %w", err)
	}

	reversal := commissionReversal(order.Commission, payment.RefundedAmount, order.Total)

	drafts := []domain.EntryDraft{{
		Type:        domain.EntryTypeRefund,
		Amount:      -payment.RefundedAmount,
		Currency:    order.Currency,
		Description: fmt.Sprintf("Refund issued for order %s", order.OrderNumber),
		References: domain.EntryReferences{
			OrderID:   &order.ID,
			PaymentID: &payment.ID,
		},
	}}
	if reversal > 0 {
		drafts = append(drafts, domain.EntryDraft{
			Type:        domain.EntryTypeAdjustment,
			Amount:      reversal,
			Currency:    order.Currency,
			Description: fmt.Sprintf("Commission reversed for refunded order %s", order.OrderNumber),
			References: domain.EntryReferences{
				OrderID: &order.ID,
			},
		})
	}

	if _, err := s.ledger.AppendBatch(ctx, order.StoreID, drafts); err != nil {
		logger.Error("payment service append refund batch failed", err, logger.Fields{
			"storeId":   order.StoreID,
			"paymentId": payment.ID,
		})
		return err
	}

	s.auditSvc.Record(ctx, tenant, domain.AuditActionPayment, "order", order.ID,
		fmt.Sprintf("Recorded refund for order %s", order.OrderNumber),
		[]domain.FieldChange{
			{Field: "refundedAmount", Before: "0", After: strconv.FormatInt(payment.RefundedAmount, 10)},
		})

	return nil
}

// commissionReversal returns the commission share of a refund, proportional
// to the refunded fraction of the order total, rounded half-up.
func commissionReversal(commission, refunded, total int64) int64 {
	if total == 0 || commission == 0 {
		return 0
	}
	return decimal.NewFromInt(commission).
		Mul(decimal.NewFromInt(refunded)).
		Div(decimal.NewFromInt(total)).
		Round(0).
		IntPart()
}

func validateOrderPayment(order domain.Order, payment domain.Payment) error {
	if order.StoreID == "" {
		return domain.NewValidationError("order storeId is required")
	}
	if payment.ID == "" {
		return domain.NewValidationError("payment id is required")
	}
	if order.Total < 0 {
		return domain.NewValidationError("order total must not be negative, got %d", order.Total)
	}
	if order.Commission < 0 || order.Commission > order.Total {
		return domain.NewValidationError("order commission %d must be within [0,%d]", order.Commission, order.Total)
	}
	if order.Commission+order.SellerAmount != order.Total {
		return domain.NewValidationError("order split does not add up: %d + %d != %d", order.Commission, order.SellerAmount, order.Total)
	}
	if err := domain.ValidateCurrency(order.Currency); err != nil {
		return err
	}
	return nil
}
