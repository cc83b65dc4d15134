package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storelane/ledger-engine/internal/domain"
)

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) GetSettings(ctx context.Context, storeID string) (domain.StoreSettings, error) {
	const query = `
SELECT id, owner_id, currency, commission_rate, payout_delay_days,
       payout_method, payout_account_holder_name, payout_account_number,
       payout_ifsc_code, payout_bank_name, payout_upi_id, payout_paypal_email,
       status
FROM stores
WHERE id = $1`

	var settings domain.StoreSettings
	var accountNumber, ifscCode, bankName, upiID, paypalEmail sql.NullString
	if err := r.db.QueryRowContext(ctx, query, storeID).Scan(
		&settings.StoreID,
		&settings.OwnerID,
		&settings.Currency,
		&settings.CommissionRatePercent,
		&settings.PayoutDelayDays,
		&settings.PayoutMethod,
		&settings.PayoutAccount.AccountHolderName,
		&accountNumber,
		&ifscCode,
		&bankName,
		&upiID,
		&paypalEmail,
		&settings.Status,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoreSettings{}, domain.ErrRecordNotFound
		}
		return domain.StoreSettings{}, fmt.Errorf("get store settings: %w", err)
	}

	settings.PayoutAccount.AccountNumber = accountNumber.String
	settings.PayoutAccount.IFSCCode = ifscCode.String
	settings.PayoutAccount.BankName = bankName.String
	settings.PayoutAccount.UPIID = upiID.String
	settings.PayoutAccount.PayPalEmail = paypalEmail.String

	return settings, nil
}
