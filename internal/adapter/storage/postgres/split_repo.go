package postgres

import (
	"context"
	"errors"
	"fmt"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// SplitRepo implements ports.SplitRepository, the bookkeeping projection
// of each bill.
type SplitRepo struct {
	pool Pool
}

// NewSplitRepo creates a new SplitRepo.
func NewSplitRepo(pool Pool) *SplitRepo {
	return &SplitRepo{pool: pool}
}

// Upsert writes the bill row and every participant row in one transaction.
// Rows missing from rec are left in place.
func (r *SplitRepo) Upsert(ctx context.Context, rec *domain.SplitRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin split upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO splits (bill_id, wallet_id, creator_id, mode, status, total_amount, currency, wallet_address, selected_participant_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (bill_id) DO UPDATE SET
			wallet_id = EXCLUDED.wallet_id,
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			wallet_address = EXCLUDED.wallet_address,
			selected_participant_id = EXCLUDED.selected_participant_id,
			updated_at = EXCLUDED.updated_at`,
		rec.BillID, rec.WalletID, rec.CreatorID, string(rec.Mode), string(rec.Status),
		rec.TotalAmount, rec.Currency, rec.WalletAddress, rec.SelectedParticipantID, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert split: %w", err)
	}

	for i, p := range rec.Participants {
		_, err = tx.Exec(ctx, `INSERT INTO split_participants (bill_id, user_id, position, display_name, status, amount_owed, amount_paid, transaction_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (bill_id, user_id) DO UPDATE SET
				status = EXCLUDED.status,
				amount_owed = EXCLUDED.amount_owed,
				amount_paid = EXCLUDED.amount_paid,
				transaction_ref = EXCLUDED.transaction_ref`,
			rec.BillID, p.UserID, i, p.DisplayName, string(p.Status), p.AmountOwed, p.AmountPaid, p.TransactionRef,
		)
		if err != nil {
			return fmt.Errorf("upsert split participant %s: %w", p.UserID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit split upsert: %w", err)
	}
	return nil
}

// GetByBillID loads a bill and its participants in insertion order.
func (r *SplitRepo) GetByBillID(ctx context.Context, billID string) (*domain.SplitRecord, error) {
	query := `SELECT bill_id, wallet_id, creator_id, mode, status, total_amount, currency, wallet_address, selected_participant_id, updated_at
		FROM splits WHERE bill_id = $1`

	rec := &domain.SplitRecord{}
	err := r.pool.QueryRow(ctx, query, billID).Scan(
		&rec.BillID, &rec.WalletID, &rec.CreatorID, &rec.Mode, &rec.Status,
		&rec.TotalAmount, &rec.Currency, &rec.WalletAddress, &rec.SelectedParticipantID, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get split by bill: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT user_id, display_name, status, amount_owed, amount_paid, transaction_ref
		FROM split_participants WHERE bill_id = $1 ORDER BY position ASC`, billID)
	if err != nil {
		return nil, fmt.Errorf("list split participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.SplitParticipant
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Status, &p.AmountOwed, &p.AmountPaid, &p.TransactionRef); err != nil {
			return nil, fmt.Errorf("scan split participant: %w", err)
		}
		rec.Participants = append(rec.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate split participants: %w", err)
	}
	return rec, nil
}

// UpdateParticipantStatus writes one participant row.
func (r *SplitRepo) UpdateParticipantStatus(ctx context.Context, u ports.ParticipantStatusUpdate) error {
	query := `UPDATE split_participants SET status = $1, amount_paid = $2, transaction_ref = $3
		WHERE bill_id = $4 AND user_id = $5`

	tag, err := r.pool.Exec(ctx, query, string(u.Status), u.AmountPaid, u.TransactionRef, u.SplitID, u.UserID)
	if err != nil {
		return fmt.Errorf("update split participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrSplitNotFound
	}
	return nil
}
