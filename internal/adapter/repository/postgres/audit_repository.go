package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/storelane/ledger-engine/internal/domain"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, record domain.AuditLog) (domain.AuditLog, error) {
	const query = `
INSERT INTO audit_logs (
	id,
	store_id,
	actor_id,
	action,
	resource_type,
	resource_id,
	description,
	changes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at`

	record.ID = ulid.Make().String()

	changes, err := json.Marshal(record.Changes)
	if err != nil {
		return domain.AuditLog{}, fmt.Errorf("encode audit changes: %w", err)
	}

	var createdAt time.Time
	if err := r.db.QueryRowContext(
		ctx,
		query,
		record.ID,
		record.StoreID,
		record.ActorID,
		record.Action,
		record.ResourceType,
		record.ResourceID,
		record.Description,
		changes,
	).Scan(&createdAt); err != nil {
		return domain.AuditLog{}, fmt.Errorf("create audit log: %w", err)
	}

	record.CreatedAt = createdAt
	return record, nil
}

func (r *AuditRepository) ListByStore(ctx context.Context, storeID string) ([]domain.AuditLog, error) {
	const query = `
SELECT id, store_id, actor_id, action, resource_type, resource_id, description, changes, created_at
FROM audit_logs
WHERE store_id = $1
ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditLog
	for rows.Next() {
		var (
			record  domain.AuditLog
			changes []byte
		)
		if err := rows.Scan(
			&record.ID,
			&record.StoreID,
			&record.ActorID,
			&record.Action,
			&record.ResourceType,
			&record.ResourceID,
			&record.Description,
			&changes,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &record.Changes); err != nil {
				return nil, fmt.Errorf("decode audit changes: %w", err)
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return out, nil
}
