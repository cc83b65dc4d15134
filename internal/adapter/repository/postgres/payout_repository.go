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

type PayoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `id, store_id, payout_number, amount, currency, status, method, settlement_date, account_holder_name, account_number, ifsc_code, bank_name, upi_id, paypal_email, order_ids, entry_ids, transaction_id, failure_reason, processed_at, created_at, updated_at`

func (r *PayoutRepository) Create(ctx context.Context, payout domain.Payout) (domain.Payout, error) {
	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('payout_number_seq')`).Scan(&seq); err != nil {
		return domain.Payout{}, fmt.Errorf("next payout number: %w", err)
	}
	payout.Number = fmt.Sprintf("PO-%d-%06d", time.Now().UTC().Year(), seq%1000000)

	logger.Info("payout repository create", logger.Fields{
		"storeId":      payout.StoreID,
		"payoutNumber": payout.Number,
		"amount":       payout.Amount,
	})

	const query = `
INSERT INTO payouts (
	id,
	store_id,
	payout_number,
	amount,
	currency,
	status,
	method,
	settlement_date,
	account_holder_name,
	account_number,
	ifsc_code,
	bank_name,
	upi_id,
	paypal_email,
	order_ids,
	entry_ids
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING created_at, updated_at`

	payout.ID = ulid.Make().String()

	var createdAt, updatedAt time.Time
	if err := r.db.QueryRowContext(
		ctx,
		query,
		payout.ID,
		payout.StoreID,
		payout.Number,
		payout.Amount,
		payout.Currency,
		payout.Status,
		payout.Method,
		payout.SettlementDate,
		payout.AccountDetails.AccountHolderName,
		payout.AccountDetails.AccountNumber,
		payout.AccountDetails.IFSCCode,
		payout.AccountDetails.BankName,
		payout.AccountDetails.UPIID,
		payout.AccountDetails.PayPalEmail,
		pq.Array(payout.OrderIDs),
		pq.Array(payout.EntryIDs),
	).Scan(&createdAt, &updatedAt); err != nil {
		logger.Error("payout repository create failed", err, logger.Fields{
			"payoutNumber": payout.Number,
		})
		return domain.Payout{}, fmt.Errorf("create payout: %w", err)
	}

	payout.CreatedAt = createdAt
	payout.UpdatedAt = updatedAt
	return payout, nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, id string) (domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1`, payoutColumns)

	payout, err := scanPayout(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payout{}, domain.ErrRecordNotFound
		}
		return domain.Payout{}, fmt.Errorf("get payout: %w", err)
	}
	return payout, nil
}

func (r *PayoutRepository) ListByStore(ctx context.Context, storeID string) ([]domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE store_id = $1 ORDER BY created_at ASC`, payoutColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list payouts by store: %w", err)
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		out = append(out, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}
	return out, nil
}

func (r *PayoutRepository) UpdateStatus(ctx context.Context, id string, status domain.PayoutStatus, transactionID *string, failureReason *string, processedAt *time.Time) (domain.Payout, error) {
	logger.Info("payout repository update status", logger.Fields{
		"payoutId": id,
		"status":   status,
	})

	query := fmt.Sprintf(`
UPDATE payouts
SET status = $2,
    transaction_id = COALESCE($3, transaction_id),
    failure_reason = $4,
    processed_at = $5,
    updated_at = NOW()
WHERE id = $1
RETURNING %s`, payoutColumns)

	payout, err := scanPayout(r.db.QueryRowContext(ctx, query, id, status, transactionID, failureReason, processedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payout{}, domain.ErrRecordNotFound
		}
		return domain.Payout{}, fmt.Errorf("update payout status: %w", err)
	}
	return payout, nil
}

func scanPayout(row rowScanner) (domain.Payout, error) {
	var (
		payout        domain.Payout
		accountNumber sql.NullString
		ifscCode      sql.NullString
		bankName      sql.NullString
		upiID         sql.NullString
		paypalEmail   sql.NullString
		orderIDs      pq.StringArray
		entryIDs      pq.StringArray
		transactionID sql.NullString
		failureReason sql.NullString
		processedAt   sql.NullTime
	)

	if err := row.Scan(
		&payout.ID,
		&payout.StoreID,
		&payout.Number,
		&payout.Amount,
		&payout.Currency,
		&payout.Status,
		&payout.Method,
		&payout.SettlementDate,
		&payout.AccountDetails.AccountHolderName,
		&accountNumber,
		&ifscCode,
		&bankName,
		&upiID,
		&paypalEmail,
		&orderIDs,
		&entryIDs,
		&transactionID,
		&failureReason,
		&processedAt,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	); err != nil {
		return domain.Payout{}, err
	}

	payout.AccountDetails.AccountNumber = accountNumber.String
	payout.AccountDetails.IFSCCode = ifscCode.String
	payout.AccountDetails.BankName = bankName.String
	payout.AccountDetails.UPIID = upiID.String
	payout.AccountDetails.PayPalEmail = paypalEmail.String
	payout.OrderIDs = orderIDs
	payout.EntryIDs = entryIDs
	if transactionID.Valid {
		payout.TransactionID = &transactionID.String
	}
	if failureReason.Valid {
		payout.FailureReason = &failureReason.String
	}
	if processedAt.Valid {
		value := processedAt.Time
		payout.ProcessedAt = &value
	}

	return payout, nil
}
