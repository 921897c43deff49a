package ports

import (
	"context"
	"time"

	"split-escrow/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SecretSealer encrypts custody secrets with a key bound to wallet and holder.
type SecretSealer interface {
	Seal(walletID, holderID, secret string) (string, error)
	Open(walletID, holderID, sealed string) (string, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimitStore counts requests per fixed window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// WalletCache is a short-lived read-through index of wallet snapshots.
// Implementations hand out copies; callers may mutate what they get.
type WalletCache interface {
	Get(id string) (*domain.EscrowWallet, bool)
	GetByBill(billID string) (*domain.EscrowWallet, bool)
	Put(wallet *domain.EscrowWallet)
	Invalidate(walletID, billID string)
}

// AuditService defines fire-and-forget API audit logging.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Ledger ---

// TxStatus is the ledger's view of a submitted transaction.
type TxStatus string

const (
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusPending   TxStatus = "pending"
	TxStatusFailed    TxStatus = "failed"
)

// TransferRequest moves Amount of Currency between two ledger addresses.
// SignerSecret is the custody secret of From when From is an escrow wallet;
// participant-originated transfers leave it empty.
type TransferRequest struct {
	From         string
	To           string
	Amount       decimal.Decimal
	Currency     string
	Memo         string
	SignerSecret string
}

// LedgerGateway executes and observes transfers on the underlying ledger.
type LedgerGateway interface {
	// Transfer broadcasts a transfer and returns its signature.
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	GetBalance(ctx context.Context, address, currency string) (decimal.Decimal, error)
	GetTransactionStatus(ctx context.Context, signature string) (TxStatus, error)
	// GetTransfer decodes the token movement of a mined transaction.
	GetTransfer(ctx context.Context, signature string) (*TransferDetails, error)
}

// TransferDetails is the token movement carried by one transaction.
type TransferDetails struct {
	From     string
	To       string
	Amount   decimal.Decimal
	Currency string
}

// KeyFactory allocates escrow keypairs and validates ledger addresses.
type KeyFactory interface {
	NewKeypair() (address string, secret string, err error)
	ValidAddress(address string) bool
}
