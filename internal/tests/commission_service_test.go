package services_test

import (
	"testing"
	"time"

	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/usecase/services"
)

func TestCommissionServiceComputeSplit(t *testing.T) {
	svc := services.NewCommissionService()

	commission, seller, err := svc.ComputeSplit(10000, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission != 500 {
		t.Fatalf("expected commission 500, got %d", commission)
	}
	if seller != 9500 {
		t.Fatalf("expected seller amount 9500, got %d", seller)
	}
}

func TestCommissionServiceComputeSplitRoundsHalfUp(t *testing.T) {
	svc := services.NewCommissionService()

	// 101 * 0.5% = 0.505, which must round up to 1
	commission, seller, err := svc.ComputeSplit(101, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commission != 1 {
		t.Fatalf("expected commission 1, got %d", commission)
	}
	if seller != 100 {
		t.Fatalf("expected seller amount 100, got %d", seller)
	}
}

func TestCommissionServiceComputeSplitInvariant(t *testing.T) {
	svc := services.NewCommissionService()

	totals := []int64{0, 1, 99, 101, 9999, 10000, 123456789}
	rates := []float64{0, 0.5, 2.5, 5, 12.75, 33.33, 50, 100}

	for _, total := range totals {
		for _, rate := range rates {
			commission, seller, err := svc.ComputeSplit(total, rate)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %v): unexpected error: %v", total, rate, err)
			}
			if commission+seller != total {
				t.Fatalf("ComputeSplit(%d, %v): %d + %d != %d", total, rate, commission, seller, total)
			}
			if commission < 0 || seller < 0 {
				t.Fatalf("ComputeSplit(%d, %v): negative part %d / %d", total, rate, commission, seller)
			}
		}
	}
}

func TestCommissionServiceComputeSplitValidation(t *testing.T) {
	svc := services.NewCommissionService()

	if _, _, err := svc.ComputeSplit(-1, 5); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for negative total, got %v", err)
	}
	if _, _, err := svc.ComputeSplit(100, -0.1); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for negative rate, got %v", err)
	}
	if _, _, err := svc.ComputeSplit(100, 100.1); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for rate above 100, got %v", err)
	}
}

func TestCommissionServiceComputeSettlementDate(t *testing.T) {
	svc := services.NewCommissionService()

	paidAt := time.Date(2024, time.January, 10, 15, 4, 5, 0, time.UTC)
	got, err := svc.ComputeSettlementDate(paidAt, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected settlement date %v, got %v", want, got)
	}
}

func TestCommissionServiceComputeSettlementDateZeroDelay(t *testing.T) {
	svc := services.NewCommissionService()

	paidAt := time.Date(2024, time.June, 30, 23, 59, 59, 0, time.UTC)
	got, err := svc.ComputeSettlementDate(paidAt, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected same-day settlement %v, got %v", want, got)
	}
}

func TestCommissionServiceComputeSettlementDateValidation(t *testing.T) {
	svc := services.NewCommissionService()

	paidAt := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.ComputeSettlementDate(paidAt, -1); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for negative delay, got %v", err)
	}
	if _, err := svc.ComputeSettlementDate(paidAt, 8); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for delay above 7, got %v", err)
	}
}
