package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/storelane/ledger-engine/internal/domain"
)

func TestPaymentServiceRecordOrderPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	// Prior balance of 2000 from an earlier adjustment
	if _, err := f.ledger.AppendEntry(ctx, "store-a", adjustmentDraft(2000)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	order, payment := paidOrder("store-a", 10000, 500)
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	balance, err := f.ledger.GetBalance(ctx, "store-a")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 11500 {
		t.Fatalf("expected balance 11500, got %d", balance)
	}

	entries, err := f.ledgerRepo.ListByStore(ctx, "store-a")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	credit, debit := entries[1], entries[2]
	if credit.Type != domain.EntryTypeOrderPayment || credit.Amount != 10000 {
		t.Fatalf("unexpected credit entry: %s %d", credit.Type, credit.Amount)
	}
	if debit.Type != domain.EntryTypeCommission || debit.Amount != -500 {
		t.Fatalf("unexpected commission entry: %s %d", debit.Type, debit.Amount)
	}
	if credit.References.OrderID == nil || *credit.References.OrderID != order.ID {
		t.Fatalf("credit entry missing order reference")
	}
	if credit.References.PaymentID == nil || *credit.References.PaymentID != payment.ID {
		t.Fatalf("credit entry missing payment reference")
	}
	if debit.References.OrderID == nil || *debit.References.OrderID != order.ID {
		t.Fatalf("commission entry missing order reference")
	}
	if debit.BalanceBefore != credit.BalanceAfter {
		t.Fatalf("payment batch not chained: %d != %d", debit.BalanceBefore, credit.BalanceAfter)
	}
}

func TestPaymentServiceRecordOrderPaymentIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	order, payment := paidOrder("store-a", 10000, 500)
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); err != nil {
		t.Fatalf("first record: %v", err)
	}

	err := f.payments.RecordOrderPayment(ctx, tenant, order, payment)
	if !errors.Is(err, domain.ErrDuplicateEntry) {
		t.Fatalf("expected duplicate entry, got %v", err)
	}

	entries, listErr := f.ledgerRepo.ListByStore(ctx, "store-a")
	if listErr != nil {
		t.Fatalf("list entries: %v", listErr)
	}
	if len(entries) != 2 {
		t.Fatalf("expected entries appended exactly once, got %d", len(entries))
	}

	balance, balErr := f.ledger.GetBalance(ctx, "store-a")
	if balErr != nil {
		t.Fatalf("get balance: %v", balErr)
	}
	if balance != 9500 {
		t.Fatalf("expected balance 9500, got %d", balance)
	}
}

func TestPaymentServiceRecordOrderPaymentValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	order, payment := paidOrder("store-a", 10000, 500)
	order.StoreID = ""
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for missing store, got %v", err)
	}

	order, payment = paidOrder("store-a", 10000, 500)
	order.SellerAmount = 9000
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for broken split, got %v", err)
	}

	order, payment = paidOrder("store-a", 10000, 500)
	payment.ID = ""
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for missing payment id, got %v", err)
	}
}

func TestPaymentServiceRecordOrderRefundFull(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	order, payment := paidOrder("store-a", 10000, 500)
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	payment.RefundedAmount = 10000
	if err := f.payments.RecordOrderRefund(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record refund: %v", err)
	}

	// +10000 -500 -10000 +500 nets to zero
	balance, err := f.ledger.GetBalance(ctx, "store-a")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0 after full refund, got %d", balance)
	}

	entries, err := f.ledgerRepo.ListByStore(ctx, "store-a")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[2].Type != domain.EntryTypeRefund || entries[2].Amount != -10000 {
		t.Fatalf("unexpected refund entry: %s %d", entries[2].Type, entries[2].Amount)
	}
	if entries[3].Type != domain.EntryTypeAdjustment || entries[3].Amount != 500 {
		t.Fatalf("unexpected commission reversal: %s %d", entries[3].Type, entries[3].Amount)
	}
}

func TestPaymentServiceRecordOrderRefundPartial(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	order, payment := paidOrder("store-a", 10000, 500)
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	payment.RefundedAmount = 5000
	if err := f.payments.RecordOrderRefund(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record refund: %v", err)
	}

	entries, err := f.ledgerRepo.ListByStore(ctx, "store-a")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	last := entries[len(entries)-1]
	if last.Type != domain.EntryTypeAdjustment || last.Amount != 250 {
		t.Fatalf("expected proportional reversal of 250, got %s %d", last.Type, last.Amount)
	}
}

func TestPaymentServiceRecordOrderRefundIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	order, payment := paidOrder("store-a", 10000, 500)
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	payment.RefundedAmount = 10000
	if err := f.payments.RecordOrderRefund(ctx, tenant, order, payment); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if err := f.payments.RecordOrderRefund(ctx, tenant, order, payment); !errors.Is(err, domain.ErrDuplicateEntry) {
		t.Fatalf("expected duplicate entry on second refund, got %v", err)
	}
}

func TestPaymentServiceWritesAuditTrail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := tenantFor("store-a")

	order, payment := paidOrder("store-a", 10000, 500)
	if err := f.payments.RecordOrderPayment(ctx, tenant, order, payment); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	records, err := f.auditRepo.ListByStore(ctx, "store-a")
	if err != nil {
		t.Fatalf("list audit records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	record := records[0]
	if record.Action != domain.AuditActionPayment || record.ResourceID != order.ID {
		t.Fatalf("unexpected audit record: %+v", record)
	}
	if len(record.Changes) == 0 {
		t.Fatalf("expected structured changes on audit record")
	}
}
