package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AddressRepo implements ports.AddressLookup over the user_addresses table.
type AddressRepo struct {
	pool Pool
}

// NewAddressRepo creates a new AddressRepo.
func NewAddressRepo(pool Pool) *AddressRepo {
	return &AddressRepo{pool: pool}
}

// GetAddress returns "", nil for users without a registered address.
func (r *AddressRepo) GetAddress(ctx context.Context, userID string) (string, error) {
	var address string
	err := r.pool.QueryRow(ctx, `SELECT address FROM user_addresses WHERE user_id = $1`, userID).Scan(&address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get user address: %w", err)
	}
	return address, nil
}
