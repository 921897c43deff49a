package ports

import (
	"context"
	"time"

	"split-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Service Ports (Business Logic) ---

// CreationService allocates escrow wallets.
type CreationService interface {
	CreateEscrowWallet(ctx context.Context, req CreateEscrowRequest) (*domain.EscrowWallet, error)
}

// CreateEscrowRequest holds input for wallet creation.
type CreateEscrowRequest struct {
	BillID       string
	CreatorID    string
	TotalAmount  decimal.Decimal
	Currency     string
	Mode         domain.SplitMode
	Participants []ParticipantInput
}

// ParticipantInput is one participant as supplied by the caller.
// An empty PayoutAddress is resolved through the AddressLookup.
type ParticipantInput struct {
	UserID        string
	DisplayName   string
	PayoutAddress string
	AmountOwed    decimal.Decimal
}

// PaymentProcessor funds and pays out escrow wallets.
type PaymentProcessor interface {
	Fund(ctx context.Context, req FundRequest) (*FundResult, error)
	ExtractFunds(ctx context.Context, req ExtractRequest) (*PayoutResult, error)
	PayoutSettlementTarget(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
	ClaimStake(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
	CancelWallet(ctx context.Context, req CancelRequest) (*CancelResult, error)
}

// FundRequest holds input for a participant funding.
// A non-empty TransactionRef refers to a transfer the participant already
// broadcast; otherwise the processor executes the transfer itself.
type FundRequest struct {
	WalletID       uuid.UUID
	ParticipantID  string
	Amount         decimal.Decimal
	TransactionRef string
}

// ExtractRequest holds input for a fair/spend creator withdrawal.
type ExtractRequest struct {
	WalletID    uuid.UUID
	CallerID    string
	Destination string
}

// PayoutRequest holds input for a degen settlement payout or stake claim.
// An empty Destination on a claim falls back to the participant's payout address.
type PayoutRequest struct {
	WalletID    uuid.UUID
	CallerID    string
	Destination string
}

// CancelRequest holds input for wallet cancellation.
type CancelRequest struct {
	WalletID uuid.UUID
	CallerID string
	Reason   string
}

// SyncState reports whether the bookkeeping store saw the mutation.
// StatusSynced false is a degraded success: the ledger effect happened.
type SyncState struct {
	StatusSynced bool   `json:"status_synced"`
	SyncError    string `json:"sync_error,omitempty"`
}

// FundResult is the outcome of Fund.
type FundResult struct {
	Wallet         *domain.EscrowWallet `json:"wallet"`
	ParticipantID  string               `json:"participant_id"`
	TransactionRef string               `json:"transaction_ref"`
	AmountApplied  decimal.Decimal      `json:"amount_applied"`
	Confirmed      bool                 `json:"confirmed"`
	Duplicate      bool                 `json:"duplicate"`
	SyncState
}

// PayoutResult is the outcome of a transfer out of the escrow.
type PayoutResult struct {
	Wallet         *domain.EscrowWallet `json:"wallet"`
	Kind           domain.PayoutKind    `json:"kind"`
	TransactionRef string               `json:"transaction_ref"`
	Amount         decimal.Decimal      `json:"amount"`
	Destination    string               `json:"destination"`
	Confirmed      bool                 `json:"confirmed"`
	SyncState
}

// CancelResult is the outcome of CancelWallet.
type CancelResult struct {
	Wallet *domain.EscrowWallet `json:"wallet"`
	SyncState
}

// RouletteSelector picks the degen settlement target.
type RouletteSelector interface {
	Spin(ctx context.Context, walletID uuid.UUID, requesterID string) (*SpinResult, error)
	VerifySelection(ctx context.Context, walletID uuid.UUID) (*SelectionVerification, error)
}

// SpinResult is the outcome of Spin.
type SpinResult struct {
	Wallet *domain.EscrowWallet `json:"wallet"`
	Entry  domain.AuditEntry    `json:"entry"`
	SyncState
}

// SelectionVerification recomputes a recorded selection from its seed.
type SelectionVerification struct {
	WalletID                uuid.UUID `json:"wallet_id"`
	Seed                    string    `json:"seed"`
	RecordedParticipantID   string    `json:"recorded_participant_id"`
	RecomputedParticipantID string    `json:"recomputed_participant_id"`
	Valid                   bool      `json:"valid"`
}

// KeyCustodyGateway distributes and releases escrow signing secrets.
type KeyCustodyGateway interface {
	// Holders lists who may sign for the wallet.
	Holders(wallet *domain.EscrowWallet) []string
	Distribute(ctx context.Context, wallet *domain.EscrowWallet, secret string) error
	SecretFor(ctx context.Context, wallet *domain.EscrowWallet, holderID string) (string, error)
	Revoke(ctx context.Context, wallet *domain.EscrowWallet) error
}

// DataSynchronizer mirrors escrow state into the bookkeeping store.
type DataSynchronizer interface {
	SyncWallet(ctx context.Context, wallet *domain.EscrowWallet) error
	SyncParticipant(ctx context.Context, wallet *domain.EscrowWallet, userID string) error
	// SyncBill re-projects the authoritative wallet for billID;
	// concurrent calls for one bill share a single write.
	SyncBill(ctx context.Context, billID string) error
	CheckConsistency(ctx context.Context, billID string) (*ConsistencyReport, error)
	RepairBill(ctx context.Context, billID string) (*ConsistencyReport, error)
}

// ConsistencyReport lists differences between the two stores for one bill.
type ConsistencyReport struct {
	BillID        string        `json:"bill_id"`
	WalletID      uuid.UUID     `json:"wallet_id"`
	Consistent    bool          `json:"consistent"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
	Repaired      bool          `json:"repaired"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// Discrepancy is one field that differs between the stores.
type Discrepancy struct {
	Field         string `json:"field"`
	ParticipantID string `json:"participant_id,omitempty"`
	EscrowValue   string `json:"escrow_value"`
	SplitValue    string `json:"split_value"`
}

// Reconciler resolves optimistic writes against the ledger.
type Reconciler interface {
	ReconcileWallet(ctx context.Context, walletID uuid.UUID) (*ReconcileReport, error)
	// CloseIfDrained closes a settled degen wallet whose ledger balance is zero.
	CloseIfDrained(ctx context.Context, walletID uuid.UUID) (*domain.EscrowWallet, bool, error)
	RunOnce(ctx context.Context) (int, error)
}

// ReconcileReport summarizes one reconciliation pass over a wallet.
type ReconcileReport struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	Confirmed []string  `json:"confirmed,omitempty"`
	Reverted  []string  `json:"reverted,omitempty"`
	Pending   []string  `json:"pending,omitempty"`
	Closed    bool      `json:"closed"`
	SyncState
}

// QueryService serves read paths through the wallet cache.
type QueryService interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.EscrowWallet, error)
	GetWalletByBill(ctx context.Context, billID string) (*domain.EscrowWallet, error)
}
