package ports

import (
	"context"
	"errors"

	"split-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrWalletExistsForBill is returned by Create when a non-cancelled
	// wallet already holds the bill id.
	ErrWalletExistsForBill = errors.New("escrow wallet already exists for bill")
	// ErrVersionConflict is returned by Update when the stored version moved.
	ErrVersionConflict = errors.New("escrow wallet version conflict")
	// ErrSplitNotFound is returned by the bookkeeping store for unknown bills or rows.
	ErrSplitNotFound = errors.New("split record not found")
)

// EscrowWalletRepository is the authoritative escrow-wallet store.
// Wallets are persisted as one document keyed by id with a secondary index by bill id.
type EscrowWalletRepository interface {
	Create(ctx context.Context, wallet *domain.EscrowWallet) error
	// GetByID returns nil, nil when the wallet does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowWallet, error)
	// GetByBillID returns the non-cancelled wallet for the bill, or nil, nil.
	GetByBillID(ctx context.Context, billID string) (*domain.EscrowWallet, error)
	// Update writes wallet if its Version still matches and bumps Version.
	Update(ctx context.Context, wallet *domain.EscrowWallet) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListNeedingReconciliation returns wallets holding optimistic writes
	// or waiting to close.
	ListNeedingReconciliation(ctx context.Context, limit int) ([]*domain.EscrowWallet, error)
}

// SplitRepository is the secondary bookkeeping store, keyed by bill id.
type SplitRepository interface {
	Upsert(ctx context.Context, record *domain.SplitRecord) error
	// GetByBillID returns nil, nil when no record exists.
	GetByBillID(ctx context.Context, billID string) (*domain.SplitRecord, error)
	UpdateParticipantStatus(ctx context.Context, update ParticipantStatusUpdate) error
}

// ParticipantStatusUpdate is a single-row write into the bookkeeping store.
type ParticipantStatusUpdate struct {
	SplitID        string // the bill id
	UserID         string
	Status         domain.SplitParticipantStatus
	AmountPaid     decimal.Decimal
	TransactionRef string
}

// KeyCustodyStore keeps escrow signing secrets per authorized holder.
type KeyCustodyStore interface {
	Store(ctx context.Context, walletID uuid.UUID, holderID, secret string) error
	// Retrieve returns "", nil when nothing is stored for the holder.
	Retrieve(ctx context.Context, walletID uuid.UUID, holderID string) (string, error)
	Delete(ctx context.Context, walletID uuid.UUID, holderID string) error
}

// AddressLookup resolves a user's personal ledger address.
type AddressLookup interface {
	// GetAddress returns "", nil when the user has no registered address.
	GetAddress(ctx context.Context, userID string) (string, error)
}

// AuditRepository defines persistence for API audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
