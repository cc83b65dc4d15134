package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/storelane/ledger-engine/internal/adapter/repository/memory"
	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/usecase/services"
)

func adjustmentDraft(amount int64) domain.EntryDraft {
	return domain.EntryDraft{
		Type:        domain.EntryTypeAdjustment,
		Amount:      amount,
		Currency:    "USD",
		Description: "manual adjustment",
	}
}

func TestLedgerServiceChainInvariant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	amounts := []int64{1000, -300, 2500, -1200, 42}
	for _, amount := range amounts {
		if _, err := f.ledger.AppendEntry(ctx, "store-a", adjustmentDraft(amount)); err != nil {
			t.Fatalf("append %d: unexpected error: %v", amount, err)
		}
	}

	entries, err := f.ledgerRepo.ListByStore(ctx, "store-a")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != len(amounts) {
		t.Fatalf("expected %d entries, got %d", len(amounts), len(entries))
	}

	var running int64
	for i, entry := range entries {
		if entry.BalanceBefore != running {
			t.Fatalf("entry %d: balanceBefore %d, expected %d", i, entry.BalanceBefore, running)
		}
		if entry.BalanceAfter != entry.BalanceBefore+entry.Amount {
			t.Fatalf("entry %d: balanceAfter %d != %d + %d", i, entry.BalanceAfter, entry.BalanceBefore, entry.Amount)
		}
		running = entry.BalanceAfter
	}

	balance, err := f.ledger.GetBalance(ctx, "store-a")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != running {
		t.Fatalf("expected balance %d, got %d", running, balance)
	}
}

func TestLedgerServiceGetBalanceEmptyChain(t *testing.T) {
	f := newFixture()

	balance, err := f.ledger.GetBalance(context.Background(), "store-never-seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected 0 balance for empty chain, got %d", balance)
	}
}

func TestLedgerServiceAppendEntryValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.ledger.AppendEntry(ctx, "store-a", adjustmentDraft(0)); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}

	draft := adjustmentDraft(100)
	draft.Currency = "usd"
	if _, err := f.ledger.AppendEntry(ctx, "store-a", draft); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for lowercase currency, got %v", err)
	}

	draft = adjustmentDraft(100)
	draft.Type = "wire_transfer"
	if _, err := f.ledger.AppendEntry(ctx, "store-a", draft); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}

	if _, err := f.ledger.AppendEntry(ctx, "", adjustmentDraft(100)); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for missing store id, got %v", err)
	}

	if _, err := f.ledger.AppendBatch(ctx, "store-a", nil); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestLedgerServiceAppendBatchLinksWithinBatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.ledger.AppendBatch(ctx, "store-a", []domain.EntryDraft{
		adjustmentDraft(10000),
		adjustmentDraft(-500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(created))
	}
	if created[1].BalanceBefore != created[0].BalanceAfter {
		t.Fatalf("batch entries not chained: %d != %d", created[1].BalanceBefore, created[0].BalanceAfter)
	}
}

func TestLedgerServiceNoLostUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const writers = 50
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := f.ledger.AppendEntry(gctx, "store-a", adjustmentDraft(100))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent appends failed: %v", err)
	}

	entries, err := f.ledgerRepo.ListByStore(ctx, "store-a")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(entries))
	}

	befores := make([]int64, 0, writers)
	for _, entry := range entries {
		befores = append(befores, entry.BalanceBefore)
	}
	if !sort.SliceIsSorted(befores, func(i, j int) bool { return befores[i] < befores[j] }) {
		t.Fatalf("balanceBefore values not strictly increasing: %v", befores)
	}
	for i := 1; i < len(befores); i++ {
		if befores[i] == befores[i-1] {
			t.Fatalf("duplicate balanceBefore %d at position %d", befores[i], i)
		}
	}

	balance, err := f.ledger.GetBalance(ctx, "store-a")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != writers*100 {
		t.Fatalf("expected balance %d, got %d", writers*100, balance)
	}
}

func TestLedgerServiceTenantIsolation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const perStore = 25
	stores := []string{"store-a", "store-b", "store-c"}

	g, gctx := errgroup.WithContext(ctx)
	for _, storeID := range stores {
		storeID := storeID
		for i := 0; i < perStore; i++ {
			g.Go(func() error {
				_, err := f.ledger.AppendEntry(gctx, storeID, adjustmentDraft(10))
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("cross-store appends failed: %v", err)
	}

	for _, storeID := range stores {
		balance, err := f.ledger.GetBalance(ctx, storeID)
		if err != nil {
			t.Fatalf("get balance for %s: %v", storeID, err)
		}
		if balance != perStore*10 {
			t.Fatalf("store %s: expected balance %d, got %d", storeID, perStore*10, balance)
		}
	}
}

// flakyLedgerRepo fails the first appends with a concurrency conflict so the
// retry path can be observed.
type flakyLedgerRepo struct {
	*memory.LedgerRepository
	mu        sync.Mutex
	failures  int
	conflicts int
}

func (r *flakyLedgerRepo) AppendEntries(ctx context.Context, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.conflicts++
		r.mu.Unlock()
		return nil, domain.ErrConcurrencyConflict
	}
	r.mu.Unlock()
	return r.LedgerRepository.AppendEntries(ctx, storeID, drafts)
}

func TestLedgerServiceRetriesTransientConflicts(t *testing.T) {
	repo := &flakyLedgerRepo{LedgerRepository: memory.NewLedgerRepository(), failures: 2}
	svc := services.NewLedgerService(repo)

	if _, err := svc.AppendEntry(context.Background(), "store-a", adjustmentDraft(100)); err != nil {
		t.Fatalf("expected retries to absorb transient conflicts, got %v", err)
	}
	if repo.conflicts != 2 {
		t.Fatalf("expected 2 conflicts before success, got %d", repo.conflicts)
	}
}

func TestLedgerServiceSurfacesExhaustedConflicts(t *testing.T) {
	repo := &flakyLedgerRepo{LedgerRepository: memory.NewLedgerRepository(), failures: 100}
	svc := services.NewLedgerService(repo)

	_, err := svc.AppendEntry(context.Background(), "store-a", adjustmentDraft(100))
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected surfaced concurrency conflict, got %v", err)
	}
}

// corruptChainRepo serves a chain whose linkage is broken.
type corruptChainRepo struct {
	*memory.LedgerRepository
}

func (r *corruptChainRepo) ListByStore(ctx context.Context, storeID string) ([]domain.LedgerEntry, error) {
	entries, err := r.LedgerRepository.ListByStore(ctx, storeID)
	if err != nil || len(entries) < 2 {
		return entries, err
	}
	entries[1].BalanceBefore += 7
	entries[1].BalanceAfter += 7
	return entries, nil
}

func TestLedgerServiceChainCorruptionHaltsWrites(t *testing.T) {
	repo := &corruptChainRepo{LedgerRepository: memory.NewLedgerRepository()}
	svc := services.NewLedgerService(repo)
	ctx := context.Background()

	if _, err := svc.AppendEntry(ctx, "store-a", adjustmentDraft(100)); err != nil {
		t.Fatalf("seed append failed: %v", err)
	}
	if _, err := svc.AppendEntry(ctx, "store-a", adjustmentDraft(200)); err != nil {
		t.Fatalf("seed append failed: %v", err)
	}

	if err := svc.VerifyChain(ctx, "store-a"); !errors.Is(err, domain.ErrChainCorruption) {
		t.Fatalf("expected chain corruption, got %v", err)
	}

	// Writes for the poisoned store must be refused; other stores continue.
	if _, err := svc.AppendEntry(ctx, "store-a", adjustmentDraft(50)); !errors.Is(err, domain.ErrChainCorruption) {
		t.Fatalf("expected halted writes for corrupted store, got %v", err)
	}
	if _, err := svc.AppendEntry(ctx, "store-b", adjustmentDraft(50)); err != nil {
		t.Fatalf("expected healthy store to keep accepting writes, got %v", err)
	}
}

func TestLedgerServiceSettledBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.ledger.AppendEntry(ctx, "store-a", adjustmentDraft(1000))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := f.ledger.AppendEntry(ctx, "store-a", adjustmentDraft(500)); err != nil {
		t.Fatalf("append: %v", err)
	}

	settled, err := f.ledger.GetSettledBalance(ctx, "store-a")
	if err != nil {
		t.Fatalf("get settled balance: %v", err)
	}
	if settled != 0 {
		t.Fatalf("expected 0 settled balance for pending entries, got %d", settled)
	}

	now := first.CreatedAt
	if err := f.ledgerRepo.UpdateStatus(ctx, []string{first.ID}, domain.EntryStatusSettled, &now); err != nil {
		t.Fatalf("settle entry: %v", err)
	}

	settled, err = f.ledger.GetSettledBalance(ctx, "store-a")
	if err != nil {
		t.Fatalf("get settled balance: %v", err)
	}
	if settled != 1000 {
		t.Fatalf("expected settled balance 1000, got %d", settled)
	}
}
