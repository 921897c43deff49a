package ledger

import (
	"encoding/hex"
	"fmt"

	"split-escrow/internal/core/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyFactory allocates secp256k1 keypairs for escrow wallets.
type KeyFactory struct{}

var _ ports.KeyFactory = KeyFactory{}

// NewKeypair returns a checksummed address and its hex private key.
func (KeyFactory) NewKeypair() (string, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate escrow key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hex.EncodeToString(crypto.FromECDSA(key)), nil
}

// ValidAddress accepts 0x-prefixed 20-byte hex addresses.
func (KeyFactory) ValidAddress(address string) bool {
	return len(address) == 2+2*common.AddressLength && common.IsHexAddress(address)
}
