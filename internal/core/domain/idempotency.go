package domain

import "github.com/google/uuid"

// BuildFundingKey is the idempotency key of one funding reference on a wallet.
func BuildFundingKey(walletID uuid.UUID, transactionRef string) string {
	return walletID.String() + ":fund:" + transactionRef
}
