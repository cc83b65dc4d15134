package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/storelane/ledger-engine/internal/domain"
	"github.com/storelane/ledger-engine/internal/logger"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const entryColumns = `id, store_id, entry_type, status, amount, currency, balance_before, balance_after, order_id, payment_id, payout_id, description, settled_at, created_at`

func (r *LedgerRepository) AppendEntries(ctx context.Context, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error) {
	logger.Info("ledger repository append entries", logger.Fields{
		"storeId": storeID,
		"count":   len(drafts),
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockStoreChain(ctx, tx, storeID); err != nil {
		return nil, err
	}

	created, err := appendLocked(ctx, tx, storeID, drafts)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, mapChainError("commit append tx", err)
	}

	return created, nil
}

func (r *LedgerRepository) AppendWithAttachment(ctx context.Context, storeID string, draft domain.EntryDraft, payoutID string, attachEntryIDs []string) (domain.LedgerEntry, error) {
	logger.Info("ledger repository append with attachment", logger.Fields{
		"storeId":  storeID,
		"payoutId": payoutID,
		"attached": len(attachEntryIDs),
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("begin attachment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockStoreChain(ctx, tx, storeID); err != nil {
		return domain.LedgerEntry{}, err
	}

	const attachQuery = `
UPDATE ledger_entries
SET payout_id = $3
WHERE id = ANY($1)
  AND store_id = $2
  AND payout_id IS NULL`

	result, err := tx.ExecContext(ctx, attachQuery, pq.Array(attachEntryIDs), storeID, payoutID)
	if err != nil {
		return domain.LedgerEntry{}, mapChainError("attach payout to entries", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("attach payout rows affected: %w", err)
	}
	if affected != int64(len(attachEntryIDs)) {
		// Another payout already claimed one of the entries.
		return domain.LedgerEntry{}, domain.ErrConcurrencyConflict
	}

	created, err := appendLocked(ctx, tx, storeID, []domain.EntryDraft{draft})
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.LedgerEntry{}, mapChainError("commit attachment tx", err)
	}

	return created[0], nil
}

// lockStoreChain serializes the transaction against every other append for
// the same store. Different stores hash to different advisory locks and
// proceed in parallel.
func lockStoreChain(ctx context.Context, tx *sql.Tx, storeID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, storeID); err != nil {
		return mapChainError("acquire store chain lock", err)
	}
	return nil
}

func appendLocked(ctx context.Context, tx *sql.Tx, storeID string, drafts []domain.EntryDraft) ([]domain.LedgerEntry, error) {
	const lastBalanceQuery = `
SELECT balance_after
FROM ledger_entries
WHERE store_id = $1
ORDER BY seq DESC
LIMIT 1`

	var balance int64
	if err := tx.QueryRowContext(ctx, lastBalanceQuery, storeID).Scan(&balance); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, mapChainError("read last balance", err)
		}
		balance = 0
	}

	const insertQuery = `
INSERT INTO ledger_entries (
	id,
	store_id,
	entry_type,
	status,
	amount,
	currency,
	balance_before,
	balance_after,
	order_id,
	payment_id,
	payout_id,
	description
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at`

	created := make([]domain.LedgerEntry, 0, len(drafts))
	for _, draft := range drafts {
		entry := domain.LedgerEntry{
			ID:            ulid.Make().String(),
			StoreID:       storeID,
			Type:          draft.Type,
			Status:        domain.EntryStatusPending,
			Amount:        draft.Amount,
			Currency:      draft.Currency,
			BalanceBefore: balance,
			BalanceAfter:  balance + draft.Amount,
			References:    draft.References,
			Description:   draft.Description,
		}

		var createdAt time.Time
		if err := tx.QueryRowContext(
			ctx,
			insertQuery,
			entry.ID,
			entry.StoreID,
			entry.Type,
			entry.Status,
			entry.Amount,
			entry.Currency,
			entry.BalanceBefore,
			entry.BalanceAfter,
			entry.References.OrderID,
			entry.References.PaymentID,
			entry.References.PayoutID,
			entry.Description,
		).Scan(&createdAt); err != nil {
			return nil, mapChainError("insert ledger entry", err)
		}

		entry.CreatedAt = createdAt
		balance = entry.BalanceAfter
		created = append(created, entry)
	}

	return created, nil
}

func (r *LedgerRepository) LastEntry(ctx context.Context, storeID string) (domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE store_id = $1 ORDER BY seq DESC LIMIT 1`, entryColumns)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, storeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("get last entry: %w", err)
	}
	return entry, nil
}

func (r *LedgerRepository) ListByStore(ctx context.Context, storeID string) ([]domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE store_id = $1 ORDER BY seq ASC`, entryColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list entries by store: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *LedgerRepository) FindByPaymentID(ctx context.Context, paymentID string, entryType domain.EntryType) (domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE payment_id = $1 AND entry_type = $2 ORDER BY seq ASC LIMIT 1`, entryColumns)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, paymentID, entryType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("find entry by payment id: %w", err)
	}
	return entry, nil
}

func (r *LedgerRepository) FindCommissionByOrderID(ctx context.Context, orderID string) (domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE order_id = $1 AND entry_type = $2 ORDER BY seq ASC LIMIT 1`, entryColumns)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, orderID, domain.EntryTypeCommission))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("find commission by order id: %w", err)
	}
	return entry, nil
}

func (r *LedgerRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE order_id = $1 ORDER BY seq ASC`, entryColumns)

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list entries by order id: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *LedgerRepository) FindByPayoutID(ctx context.Context, payoutID string) (domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE payout_id = $1 AND entry_type = $2 ORDER BY seq ASC LIMIT 1`, entryColumns)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, payoutID, domain.EntryTypePayout))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("find entry by payout id: %w", err)
	}
	return entry, nil
}

func (r *LedgerRepository) DetachPayout(ctx context.Context, payoutID string) error {
	const query = `
UPDATE ledger_entries
SET payout_id = NULL
WHERE payout_id = $1
  AND entry_type = $2`

	if _, err := r.db.ExecContext(ctx, query, payoutID, domain.EntryTypeOrderPayment); err != nil {
		return fmt.Errorf("detach payout entries: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListUnattachedOrderPayments(ctx context.Context, storeID string) ([]domain.LedgerEntry, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM ledger_entries
WHERE store_id = $1
  AND entry_type = $2
  AND payout_id IS NULL
  AND status <> $3
ORDER BY seq ASC`, entryColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID, domain.EntryTypeOrderPayment, domain.EntryStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("list unattached order payments: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *LedgerRepository) ListStoreIDsWithUnattached(ctx context.Context) ([]string, error) {
	const query = `
SELECT DISTINCT store_id
FROM ledger_entries
WHERE entry_type = $1
  AND payout_id IS NULL
  AND status <> $2`

	rows, err := r.db.QueryContext(ctx, query, domain.EntryTypeOrderPayment, domain.EntryStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("list stores with unattached entries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var storeID string
		if err := rows.Scan(&storeID); err != nil {
			return nil, fmt.Errorf("scan store id: %w", err)
		}
		out = append(out, storeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store ids: %w", err)
	}
	return out, nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, entryIDs []string, status domain.EntryStatus, settledAt *time.Time) error {
	const query = `
UPDATE ledger_entries
SET status = $2,
    settled_at = $3
WHERE id = ANY($1)`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(entryIDs), status, settledAt); err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry     domain.LedgerEntry
		orderID   sql.NullString
		paymentID sql.NullString
		payoutID  sql.NullString
		settledAt sql.NullTime
	)

	if err := row.Scan(
		&entry.ID,
		&entry.StoreID,
		&entry.Type,
		&entry.Status,
		&entry.Amount,
		&entry.Currency,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&orderID,
		&paymentID,
		&payoutID,
		&entry.Description,
		&settledAt,
		&entry.CreatedAt,
	); err != nil {
		return domain.LedgerEntry{}, err
	}

	if orderID.Valid {
		entry.References.OrderID = &orderID.String
	}
	if paymentID.Valid {
		entry.References.PaymentID = &paymentID.String
	}
	if payoutID.Valid {
		entry.References.PayoutID = &payoutID.String
	}
	if settledAt.Valid {
		value := settledAt.Time
		entry.SettledAt = &value
	}

	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

// mapChainError surfaces retryable storage races as ErrConcurrencyConflict.
func mapChainError(operation string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "40001", "40P01", "23505":
			return domain.ErrConcurrencyConflict
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}
