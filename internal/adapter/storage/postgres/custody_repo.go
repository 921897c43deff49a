package postgres

import (
	"context"
	"errors"
	"fmt"

	"split-escrow/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustodyRepo implements ports.KeyCustodyStore. Secrets are sealed per
// (wallet, holder) before they reach the database.
type CustodyRepo struct {
	pool   Pool
	sealer ports.SecretSealer
}

// NewCustodyRepo creates a new CustodyRepo.
func NewCustodyRepo(pool Pool, sealer ports.SecretSealer) *CustodyRepo {
	return &CustodyRepo{pool: pool, sealer: sealer}
}

// Store seals and upserts the holder's copy of the secret.
func (r *CustodyRepo) Store(ctx context.Context, walletID uuid.UUID, holderID, secret string) error {
	sealed, err := r.sealer.Seal(walletID.String(), holderID, secret)
	if err != nil {
		return fmt.Errorf("seal custody secret: %w", err)
	}

	query := `INSERT INTO custody_keys (wallet_id, holder_id, sealed_secret) VALUES ($1, $2, $3)
		ON CONFLICT (wallet_id, holder_id) DO UPDATE SET sealed_secret = EXCLUDED.sealed_secret`
	if _, err := r.pool.Exec(ctx, query, walletID, holderID, sealed); err != nil {
		return fmt.Errorf("store custody key: %w", err)
	}
	return nil
}

// Retrieve returns "", nil when the holder has no stored copy.
func (r *CustodyRepo) Retrieve(ctx context.Context, walletID uuid.UUID, holderID string) (string, error) {
	var sealed string
	err := r.pool.QueryRow(ctx,
		`SELECT sealed_secret FROM custody_keys WHERE wallet_id = $1 AND holder_id = $2`,
		walletID, holderID,
	).Scan(&sealed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get custody key: %w", err)
	}

	secret, err := r.sealer.Open(walletID.String(), holderID, sealed)
	if err != nil {
		return "", fmt.Errorf("open custody secret: %w", err)
	}
	return secret, nil
}

// Delete removes the holder's copy; deleting a missing row is not an error.
func (r *CustodyRepo) Delete(ctx context.Context, walletID uuid.UUID, holderID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM custody_keys WHERE wallet_id = $1 AND holder_id = $2`, walletID, holderID)
	if err != nil {
		return fmt.Errorf("delete custody key: %w", err)
	}
	return nil
}
