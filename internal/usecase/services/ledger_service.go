package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/storelane/ledger-engine/internal/adapter/repository/repo_interfaces"
	"github.com/storelane/ledger-engine/internal/commons"
	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/logger"
)

// LedgerService fronts the only writer of ledger entries. The repository
// serializes appends per store; this layer adds validation, bounded retry on
// transient balance races, and the corruption write halt.
type LedgerService struct {
	ledgerRepo     repo_interfaces.LedgerRepository
	retryAttempts  int
	retryBaseDelay time.Duration

	mu     sync.RWMutex
	halted map[string]struct{}
}

func NewLedgerService(ledgerRepo repo_interfaces.LedgerRepository) *LedgerService {
	return &LedgerService{
		ledgerRepo:     ledgerRepo,
		retryAttempts:  commons.DefaultRetryAttempts,
		retryBaseDelay: commons.DefaultRetryBaseDelay,
		halted:         make(map[string]struct{}),
	}
}

func (s *LedgerService) AppendEntry(ctx context.Context, storeID string, draft domain.EntryDraft) (domain.LedgerEntry, error) {
	if err := s.validateAppend(storeID, draft); err != nil {
		return domain.LedgerEntry{}, err
	}
	if draft.Amount == 0 {
		return domain.LedgerEntry{}, domain.NewValidationError("entry amount must not be zero")
	}

	logger.Info("ledger service append entry", logger.Fields{
		"storeId": storeID,
		"type":    draft.Type,
		"amount":  draft.Amount,
	})

	var created []domain.LedgerEntry
	err := commons.Retry(ctx, s.retryAttempts, s.retryBaseDelay, func() error {
		var err error
		created, err = s.ledgerRepo.AppendEntries(ctx, storeID, []domain.EntryDraft{draft})
		return err
	})
	if err != nil {
		logger.Error("ledger service append entry failed", err, logger.Fields{
			"storeId": storeID,
		})
		return domain.LedgerEntry{}, err
	}

	return created[0], nil
}

func (s *LedgerService) AppendBatch(ctx context.Context, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error) {
	if len(drafts) == 0 {
		return nil, domain.NewValidationError("batch must contain at least one entry")
	}
	for _, draft := range drafts {
		if err := s.validateAppend(storeID, draft); err != nil {
			return nil, err
		}
	}

	logger.Info("ledger service append batch", logger.Fields{
		"storeId": storeID,
		"count":   len(drafts),
	})

	var created []domain.LedgerEntry
	err := commons.Retry(ctx, s.retryAttempts, s.retryBaseDelay, func() error {
		var err error
		created, err = s.ledgerRepo.AppendEntries(ctx, storeID, drafts)
		return err
	})
	if err != nil {
		logger.Error("ledger service append batch failed", err, logger.Fields{
			"storeId": storeID,
		})
		return nil, err
	}

	return created, nil
}

func (s *LedgerService) AppendPayoutDebit(ctx context.Context, storeID string, draft domain.EntryDraft, payoutID string, attachEntryIDs []string) (domain.LedgerEntry, error) {
	if err := s.validateAppend(storeID, draft); err != nil {
		return domain.LedgerEntry{}, err
	}
	if len(attachEntryIDs) == 0 {
		return domain.LedgerEntry{}, domain.NewValidationError("payout debit requires contributing entries")
	}

	logger.Info("ledger service append payout debit", logger.Fields{
		"storeId":  storeID,
		"payoutId": payoutID,
		"amount":   draft.Amount,
	})

	// Attachment conflicts mean the eligible set changed; the caller must
	// re-select, so no internal retry here.
	entry, err := s.ledgerRepo.AppendWithAttachment(ctx, storeID, draft, payoutID, attachEntryIDs)
	if err != nil {
		logger.Error("ledger service append payout debit failed", err, logger.Fields{
			"storeId":  storeID,
			"payoutId": payoutID,
		})
		return domain.LedgerEntry{}, err
	}

	return entry, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, storeID string) (int64, error) {
	last, err := s.ledgerRepo.LastEntry(ctx, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return last.BalanceAfter, nil
}

func (s *LedgerService) GetSettledBalance(ctx context.Context, storeID string) (int64, error) {
	entries, err := s.ledgerRepo.ListByStore(ctx, storeID)
	if err != nil {
		return 0, fmt.Errorf("get settled balance: %w", err)
	}

	var sum int64
	for _, entry := range entries {
		if entry.Status == domain.EntryStatusSettled {
			sum += entry.Amount
		}
	}
	return sum, nil
}

func (s *LedgerService) VerifyChain(ctx context.Context, storeID string) error {
	entries, err := s.ledgerRepo.ListByStore(ctx, storeID)
	if err != nil {
		return fmt.Errorf("verify chain: %w", err)
	}

	for i, entry := range entries {
		if entry.BalanceAfter != entry.BalanceBefore+entry.Amount {
			return s.haltStore(storeID, entry.ID)
		}
		if i > 0 && entry.BalanceBefore != entries[i-1].BalanceAfter {
			return s.haltStore(storeID, entry.ID)
		}
	}
	return nil
}

// haltStore poisons the store against further writes. Never auto-repaired;
// recovery requires manual reconciliation.
func (s *LedgerService) haltStore(storeID, entryID string) error {
	s.mu.Lock()
	s.halted[storeID] = struct{}{}
	s.mu.Unlock()

	err := fmt.Errorf("entry %s breaks the balance chain for store %s: %w", entryID, storeID, domain.ErrChainCorruption)
	logger.Error("ledger chain corruption detected, writes halted", err, logger.Fields{
		"storeId": storeID,
		"entryId": entryID,
	})
	return err
}

func (s *LedgerService) validateAppend(storeID string, draft domain.EntryDraft) error {
	if storeID == "" {
		return domain.NewValidationError("storeId is required")
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	_, poisoned := s.halted[storeID]
	s.mu.RUnlock()
	if poisoned {
		return fmt.Errorf("writes halted for store %s: %w", storeID, domain.ErrChainCorruption)
	}
	return nil
}
