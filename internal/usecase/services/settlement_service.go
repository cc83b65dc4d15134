package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storelane/ledger-engine/internal/adapter/repository/repo_interfaces"
	"github.com/storelane/ledger-engine/internal/commons"
	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/logger"
	"github.com/storelane/ledger-engine/internal/usecase/service_interfaces"
)

const defaultMaxParallelStores = 8

// SettlementService selects settled-date-eligible entries and groups them
// into payouts, one ledger debit per payout.
type SettlementService struct {
	ledgerRepo        repo_interfaces.LedgerRepository
	payoutRepo        repo_interfaces.PayoutRepository
	storeRepo         repo_interfaces.StoreRepository
	ledger            service_interfaces.LedgerService
	commission        service_interfaces.CommissionService
	auditSvc          service_interfaces.AuditService
	maxParallelStores int
}

func NewSettlementService(
	ledgerRepo repo_interfaces.LedgerRepository,
	payoutRepo repo_interfaces.PayoutRepository,
	storeRepo repo_interfaces.StoreRepository,
	ledger service_interfaces.LedgerService,
	commission service_interfaces.CommissionService,
	auditSvc service_interfaces.AuditService,
) *SettlementService {
	return &SettlementService{
		ledgerRepo:        ledgerRepo,
		payoutRepo:        payoutRepo,
		storeRepo:         storeRepo,
		ledger:            ledger,
		commission:        commission,
		auditSvc:          auditSvc,
		maxParallelStores: defaultMaxParallelStores,
	}
}

func (s *SettlementService) SelectEligibleEntries(ctx context.Context, storeID string, asOf time.Time) ([]domain.LedgerEntry, error) {
	if storeID == "" {
		return nil, domain.NewValidationError("storeId is required")
	}

	settings, err := s.storeRepo.GetSettings(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load store settings: %w", err)
	}

	candidates, err := s.ledgerRepo.ListUnattachedOrderPayments(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list unattached entries: %w", err)
	}

	asOfDate := truncateToDate(asOf)
	var eligible []domain.LedgerEntry
	for _, entry := range candidates {
		settlementDate, err := s.commission.ComputeSettlementDate(entry.CreatedAt, settings.PayoutDelayDays)
		if err != nil {
			return nil, err
		}
		if settlementDate.After(asOfDate) {
			continue
		}
		net, err := s.disbursableAmount(ctx, entry)
		if err != nil {
			return nil, err
		}
		// Refunds can consume the whole seller share; nothing left to pay out.
		if net <= 0 {
			continue
		}
		eligible = append(eligible, entry)
	}

	return eligible, nil
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (s *SettlementService) CreatePayout(ctx context.Context, tenant domain.TenantContext, storeID string, entries []domain.LedgerEntry, method domain.PayoutMethod, details domain.AccountDetails) (domain.Payout, error) {
	logger.Info("settlement service create payout", logger.Fields{
		"storeId": storeID,
		"entries": len(entries),
	})

	settings, err := s.storeRepo.GetSettings(ctx, storeID)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("load store settings: %w", err)
	}

	amount, currency, orderIDs, entryIDs, settlementDate, err := s.buildPayoutInputs(ctx, storeID, entries, settings.PayoutDelayDays)
	if err != nil {
		return domain.Payout{}, err
	}
	if !method.Valid() {
		return domain.Payout{}, domain.NewValidationError("payout method %q is not valid", string(method))
	}
	if err := details.Validate(); err != nil {
		return domain.Payout{}, err
	}

	payout := domain.Payout{
		StoreID:        storeID,
		Amount:         amount,
		Currency:       currency,
		Status:         domain.PayoutStatusPending,
		Method:         method,
		SettlementDate: settlementDate,
		AccountDetails: details,
		OrderIDs:       orderIDs,
		EntryIDs:       entryIDs,
	}

	payout, err = s.payoutRepo.Create(ctx, payout)
	if err != nil {
		return domain.Payout{}, err
	}

	draft := domain.EntryDraft{
		Type:        domain.EntryTypePayout,
		Amount:      -amount,
		Currency:    currency,
		Description: fmt.Sprintf("Payout %s", payout.Number),
		References:  domain.EntryReferences{PayoutID: &payout.ID},
	}

	if _, err := s.ledger.AppendPayoutDebit(ctx, storeID, draft, payout.ID, entryIDs); err != nil {
		// The payout record exists but nothing touched the ledger; void it so
		// a retry starts clean from a fresh selection.
		reason := "ledger debit failed"
		if _, voidErr := s.payoutRepo.UpdateStatus(ctx, payout.ID, domain.PayoutStatusCancelled, nil, &reason, nil); voidErr != nil {
			logger.Error("settlement service void payout failed", voidErr, logger.Fields{
				"payoutId": payout.ID,
			})
		}
		return domain.Payout{}, err
	}

	s.auditSvc.Record(ctx, tenant, domain.AuditActionPayout, "payout", payout.ID,
		fmt.Sprintf("Created payout %s", payout.Number),
		[]domain.FieldChange{
			{Field: "status", Before: "", After: string(domain.PayoutStatusPending)},
			{Field: "amount", Before: "0", After: strconv.FormatInt(amount, 10)},
		})

	logger.Info("settlement service create payout success", logger.Fields{
		"payoutId":     payout.ID,
		"payoutNumber": payout.Number,
		"amount":       payout.Amount,
	})

	return payout, nil
}

func (s *SettlementService) buildPayoutInputs(ctx context.Context, storeID string, entries []domain.LedgerEntry, payoutDelayDays int) (int64, string, []string, []string, time.Time, error) {
	if len(entries) == 0 {
		return 0, "", nil, nil, time.Time{}, domain.NewValidationError("payout requires at least one entry")
	}

	var (
		amount         int64
		settlementDate time.Time
		orderIDs       []string
		entryIDs       []string
		seenOrders     = make(map[string]struct{})
	)
	currency := entries[0].Currency

	for _, entry := range entries {
		if entry.StoreID != storeID {
			return 0, "", nil, nil, time.Time{}, domain.NewValidationError("entry %s belongs to store %s, not %s", entry.ID, entry.StoreID, storeID)
		}
		if entry.Type != domain.EntryTypeOrderPayment {
			return 0, "", nil, nil, time.Time{}, domain.NewValidationError("entry %s has type %s, expected order_payment", entry.ID, entry.Type)
		}
		if entry.References.PayoutID != nil {
			return 0, "", nil, nil, time.Time{}, domain.NewValidationError("entry %s is already attached to a payout", entry.ID)
		}
		if entry.Currency != currency {
			return 0, "", nil, nil, time.Time{}, domain.NewValidationError("entries mix currencies %s and %s", currency, entry.Currency)
		}

		sellerAmount, err := s.disbursableAmount(ctx, entry)
		if err != nil {
			return 0, "", nil, nil, time.Time{}, err
		}
		if sellerAmount <= 0 {
			return 0, "", nil, nil, time.Time{}, domain.NewValidationError("entry %s has no disbursable amount left after refunds", entry.ID)
		}
		amount += sellerAmount

		date, err := s.commission.ComputeSettlementDate(entry.CreatedAt, payoutDelayDays)
		if err != nil {
			return 0, "", nil, nil, time.Time{}, err
		}
		if date.After(settlementDate) {
			settlementDate = date
		}

		entryIDs = append(entryIDs, entry.ID)
		if entry.References.OrderID != nil {
			if _, seen := seenOrders[*entry.References.OrderID]; !seen {
				seenOrders[*entry.References.OrderID] = struct{}{}
				orderIDs = append(orderIDs, *entry.References.OrderID)
			}
		}
	}

	return amount, currency, orderIDs, entryIDs, settlementDate, nil
}

// disbursableAmount nets an order payment against everything else recorded
// for its order: the commission debit, refunds, and commission reversals.
// A fully refunded order nets to zero and must never reach a payout. An
// entry without an order reference pays out at face value.
func (s *SettlementService) disbursableAmount(ctx context.Context, entry domain.LedgerEntry) (int64, error) {
	if entry.References.OrderID == nil {
		return entry.Amount, nil
	}

	related, err := s.ledgerRepo.ListByOrderID(ctx, *entry.References.OrderID)
	if err != nil {
		return 0, fmt.Errorf("list entries for order: %w", err)
	}

	var net int64
	for _, rel := range related {
		net += rel.Amount
	}
	return net, nil
}

func (s *SettlementService) MarkPayoutProcessing(ctx context.Context, tenant domain.TenantContext, payoutID string) (domain.Payout, error) {
	return s.transition(ctx, tenant, payoutID, domain.PayoutStatusProcessing, nil, nil)
}

func (s *SettlementService) MarkPayoutCompleted(ctx context.Context, tenant domain.TenantContext, payoutID string, transactionID string) (domain.Payout, error) {
	now := time.Now().UTC()
	var txID *string
	if transactionID != "" {
		txID = &transactionID
	}

	payout, err := s.transition(ctx, tenant, payoutID, domain.PayoutStatusCompleted, txID, &now)
	if err != nil {
		return domain.Payout{}, err
	}

	if err := s.settlePayoutEntries(ctx, payout, now); err != nil {
		return domain.Payout{}, err
	}

	return payout, nil
}

func (s *SettlementService) MarkPayoutFailed(ctx context.Context, tenant domain.TenantContext, payoutID string, reason string) (domain.Payout, error) {
	return s.reverse(ctx, tenant, payoutID, domain.PayoutStatusFailed, reason)
}

func (s *SettlementService) MarkPayoutCancelled(ctx context.Context, tenant domain.TenantContext, payoutID string, reason string) (domain.Payout, error) {
	return s.reverse(ctx, tenant, payoutID, domain.PayoutStatusCancelled, reason)
}

func (s *SettlementService) transition(ctx context.Context, tenant domain.TenantContext, payoutID string, next domain.PayoutStatus, transactionID *string, processedAt *time.Time) (domain.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if !payout.Status.CanTransitionTo(next) {
		return domain.Payout{}, domain.NewValidationError("payout %s cannot move from %s to %s", payout.Number, payout.Status, next)
	}

	previous := payout.Status
	payout, err = s.payoutRepo.UpdateStatus(ctx, payoutID, next, transactionID, nil, processedAt)
	if err != nil {
		return domain.Payout{}, err
	}

	s.auditSvc.Record(ctx, tenant, domain.AuditActionPayout, "payout", payout.ID,
		fmt.Sprintf("Payout %s moved to %s", payout.Number, next),
		[]domain.FieldChange{
			{Field: "status", Before: string(previous), After: string(next)},
		})

	return payout, nil
}

// reverse handles the failed/cancelled terminal states: one compensating
// adjustment restores the balance and the contributing entries are released
// for future selection.
func (s *SettlementService) reverse(ctx context.Context, tenant domain.TenantContext, payoutID string, next domain.PayoutStatus, reason string) (domain.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if !payout.Status.CanTransitionTo(next) {
		return domain.Payout{}, domain.NewValidationError("payout %s cannot move from %s to %s", payout.Number, payout.Status, next)
	}

	previous := payout.Status
	payout, err = s.payoutRepo.UpdateStatus(ctx, payoutID, next, nil, &reason, nil)
	if err != nil {
		return domain.Payout{}, err
	}

	draft := domain.EntryDraft{
		Type:        domain.EntryTypeAdjustment,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Description: fmt.Sprintf("Reversal of payout %s (%s)", payout.Number, next),
		References:  domain.EntryReferences{PayoutID: &payout.ID},
	}
	if _, err := s.ledger.AppendEntry(ctx, payout.StoreID, draft); err != nil {
		return domain.Payout{}, fmt.Errorf("append payout reversal: %w", err)
	}

	if err := s.ledgerRepo.DetachPayout(ctx, payout.ID); err != nil {
		return domain.Payout{}, fmt.Errorf("release payout entries: %w", err)
	}

	s.auditSvc.Record(ctx, tenant, domain.AuditActionPayout, "payout", payout.ID,
		fmt.Sprintf("Payout %s reversed (%s): %s", payout.Number, next, reason),
		[]domain.FieldChange{
			{Field: "status", Before: string(previous), After: string(next)},
		})

	return payout, nil
}

// settlePayoutEntries marks the contributing entries, their commission
// entries and the payout debit as settled.
func (s *SettlementService) settlePayoutEntries(ctx context.Context, payout domain.Payout, settledAt time.Time) error {
	ids := make([]string, 0, len(payout.EntryIDs)+len(payout.OrderIDs)+1)
	ids = append(ids, payout.EntryIDs...)

	for _, orderID := range payout.OrderIDs {
		commissionEntry, err := s.ledgerRepo.FindCommissionByOrderID(ctx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("find commission entry: %w", err)
		}
		ids = append(ids, commissionEntry.ID)
	}

	debit, err := s.ledgerRepo.FindByPayoutID(ctx, payout.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return fmt.Errorf("find payout debit entry: %w", err)
		}
	} else {
		ids = append(ids, debit.ID)
	}

	if err := s.ledgerRepo.UpdateStatus(ctx, ids, domain.EntryStatusSettled, &settledAt); err != nil {
		return fmt.Errorf("settle payout entries: %w", err)
	}
	return nil
}

// RunSettlement sweeps every store holding unattached order payments and
// creates one payout per store from its eligible entries. Stores are
// processed in parallel; a conflict on one store re-selects and retries
// without affecting the others.
func (s *SettlementService) RunSettlement(ctx context.Context, asOf time.Time) error {
	storeIDs, err := s.ledgerRepo.ListStoreIDsWithUnattached(ctx)
	if err != nil {
		return fmt.Errorf("list stores for settlement: %w", err)
	}

	logger.Info("settlement run started", logger.Fields{
		"stores": len(storeIDs),
		"asOf":   asOf.Format("2006-01-02"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallelStores)

	for _, storeID := range storeIDs {
		storeID := storeID
		g.Go(func() error {
			if err := s.settleStore(gctx, storeID, asOf); err != nil {
				logger.Error("settlement run store failed", err, logger.Fields{
					"storeId": storeID,
				})
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *SettlementService) settleStore(ctx context.Context, storeID string, asOf time.Time) error {
	settings, err := s.storeRepo.GetSettings(ctx, storeID)
	if err != nil {
		return fmt.Errorf("load store settings: %w", err)
	}
	if settings.PayoutAccount.AccountHolderName == "" {
		logger.Info("settlement run store skipped, payout account not configured", logger.Fields{
			"storeId": storeID,
		})
		return nil
	}

	// A broken chain halts the store's writes; never sweep on top of it.
	if err := s.ledger.VerifyChain(ctx, storeID); err != nil {
		return err
	}

	tenant := domain.TenantContext{StoreID: storeID, OwnerID: settings.OwnerID}

	// A racing payout invalidates the selected set; re-select and try again.
	return commons.Retry(ctx, commons.DefaultRetryAttempts, commons.DefaultRetryBaseDelay, func() error {
		eligible, err := s.SelectEligibleEntries(ctx, storeID, asOf)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return nil
		}

		_, err = s.CreatePayout(ctx, tenant, storeID, eligible, settings.PayoutMethod, settings.PayoutAccount)
		return err
	})
}
