package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowWalletRepo implements ports.EscrowWalletRepository.
// The wallet is stored as one JSONB document; bill_id, status, version and
// needs_reconciliation are lifted into columns for indexing and CAS.
type EscrowWalletRepo struct {
	pool Pool
}

// NewEscrowWalletRepo creates a new EscrowWalletRepo.
func NewEscrowWalletRepo(pool Pool) *EscrowWalletRepo {
	return &EscrowWalletRepo{pool: pool}
}

// Create inserts a new wallet at version 1.
func (r *EscrowWalletRepo) Create(ctx context.Context, w *domain.EscrowWallet) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}

	query := `INSERT INTO escrow_wallets (id, bill_id, mode, status, needs_reconciliation, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		w.ID, w.BillID, string(w.Mode), string(w.Status), w.NeedsReconciliation(),
		int64(1), doc, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrWalletExistsForBill
		}
		return fmt.Errorf("insert escrow wallet: %w", err)
	}
	w.Version = 1
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *EscrowWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowWallet, error) {
	query := `SELECT document, version FROM escrow_wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get escrow wallet by id: %w", err)
	}
	return w, nil
}

// GetByBillID fetches the live wallet of a bill.
func (r *EscrowWalletRepo) GetByBillID(ctx context.Context, billID string) (*domain.EscrowWallet, error) {
	query := `SELECT document, version FROM escrow_wallets WHERE bill_id = $1 AND status <> 'cancelled'`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, billID))
	if err != nil {
		return nil, fmt.Errorf("get escrow wallet by bill: %w", err)
	}
	return w, nil
}

// Update writes w if the stored version still equals w.Version.
func (r *EscrowWalletRepo) Update(ctx context.Context, w *domain.EscrowWallet) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}

	query := `UPDATE escrow_wallets
		SET status = $1, needs_reconciliation = $2, version = $3, document = $4, updated_at = $5
		WHERE id = $6 AND version = $7`

	next := w.Version + 1
	tag, err := r.pool.Exec(ctx, query,
		string(w.Status), w.NeedsReconciliation(), next, doc, w.UpdatedAt,
		w.ID, w.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrWalletExistsForBill
		}
		return fmt.Errorf("update escrow wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrVersionConflict
	}
	w.Version = next
	return nil
}

// Delete removes a wallet. Used only by creation rollback.
func (r *EscrowWalletRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM escrow_wallets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete escrow wallet: %w", err)
	}
	return nil
}

// ListNeedingReconciliation returns the oldest flagged wallets first.
func (r *EscrowWalletRepo) ListNeedingReconciliation(ctx context.Context, limit int) ([]*domain.EscrowWallet, error) {
	query := `SELECT document, version FROM escrow_wallets
		WHERE needs_reconciliation ORDER BY updated_at ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallets needing reconciliation: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.EscrowWallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow wallets: %w", err)
	}
	return wallets, nil
}

// scanWallet returns nil, nil on pgx.ErrNoRows.
func scanWallet(row pgx.Row) (*domain.EscrowWallet, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	w := &domain.EscrowWallet{}
	if err := json.Unmarshal(doc, w); err != nil {
		return nil, fmt.Errorf("unmarshal wallet document: %w", err)
	}
	w.Version = version
	return w, nil
}
