package dto

import (
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
)

// CreateEscrowRequest is the request body for escrow wallet creation.
// Amounts are decimal strings in major units ("33.33").
type CreateEscrowRequest struct {
	BillID       string               `json:"bill_id" binding:"required,max=100,safe_id"`
	TotalAmount  string               `json:"total_amount" binding:"required,amount"`
	Currency     string               `json:"currency" binding:"required,min=2,max=10,alphanum"`
	Mode         string               `json:"mode" binding:"required,oneof=fair spend degen"`
	Participants []ParticipantRequest `json:"participants" binding:"required,min=1,max=50,dive"`
}

// ParticipantRequest is one participant of a new escrow.
type ParticipantRequest struct {
	UserID        string `json:"user_id" binding:"required,max=100,safe_id"`
	DisplayName   string `json:"display_name" binding:"max=100"`
	PayoutAddress string `json:"payout_address" binding:"max=100"`
	AmountOwed    string `json:"amount_owed" binding:"required,amount"`
}

// FundRequest is the request body for funding. Amount defaults to the
// caller's outstanding share; TransactionRef credits a transfer the caller
// already broadcast.
type FundRequest struct {
	Amount         string `json:"amount" binding:"omitempty,amount"`
	TransactionRef string `json:"transaction_ref" binding:"omitempty,max=100,safe_id"`
}

// ExtractRequest is the request body for a creator withdrawal.
type ExtractRequest struct {
	Destination string `json:"destination" binding:"required,max=100"`
}

// PayoutRequest is the request body for a degen payout or stake claim.
type PayoutRequest struct {
	Destination string `json:"destination" binding:"max=100"`
}

// CancelRequest is the request body for cancelling an escrow.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ParticipantResponse is one participant of an escrow wallet.
type ParticipantResponse struct {
	UserID             string  `json:"user_id"`
	DisplayName        string  `json:"display_name,omitempty"`
	PayoutAddress      string  `json:"payout_address"`
	AmountOwed         string  `json:"amount_owed"`
	AmountPaid         string  `json:"amount_paid"`
	Status             string  `json:"status"`
	LastTransactionRef string  `json:"last_transaction_ref,omitempty"`
	PaidAt             *string `json:"paid_at,omitempty"`
	Unconfirmed        int     `json:"unconfirmed_fundings,omitempty"`
}

// PayoutResponse is one transfer out of an escrow wallet.
type PayoutResponse struct {
	Kind           string `json:"kind"`
	ParticipantID  string `json:"participant_id,omitempty"`
	Destination    string `json:"destination"`
	Amount         string `json:"amount"`
	TransactionRef string `json:"transaction_ref"`
	Confirmed      bool   `json:"confirmed"`
	RecordedAt     string `json:"recorded_at"`
}

// WalletResponse is the public view of an escrow wallet.
type WalletResponse struct {
	ID                  string                      `json:"id"`
	BillID              string                      `json:"bill_id"`
	CreatorID           string                      `json:"creator_id"`
	Mode                string                      `json:"mode"`
	LedgerAddress       string                      `json:"ledger_address"`
	TotalAmount         string                      `json:"total_amount"`
	Currency            string                      `json:"currency"`
	Status              string                      `json:"status"`
	Participants        []ParticipantResponse       `json:"participants"`
	SelectedParticipant *domain.SelectedParticipant `json:"selected_participant,omitempty"`
	Payouts             []PayoutResponse            `json:"payouts,omitempty"`
	CancelReason        string                      `json:"cancel_reason,omitempty"`
	CreatedAt           string                      `json:"created_at"`
	UpdatedAt           string                      `json:"updated_at"`
	CompletedAt         *string                     `json:"completed_at,omitempty"`
}

// FundResponse is the outcome of a funding.
type FundResponse struct {
	Wallet         WalletResponse `json:"wallet"`
	ParticipantID  string         `json:"participant_id"`
	TransactionRef string         `json:"transaction_ref"`
	AmountApplied  string         `json:"amount_applied"`
	Confirmed      bool           `json:"confirmed"`
	Duplicate      bool           `json:"duplicate"`
	ports.SyncState
}

// TransferResponse is the outcome of a payout, withdrawal or claim.
type TransferResponse struct {
	Wallet         WalletResponse `json:"wallet"`
	Kind           string         `json:"kind"`
	TransactionRef string         `json:"transaction_ref"`
	Amount         string         `json:"amount"`
	Destination    string         `json:"destination"`
	Confirmed      bool           `json:"confirmed"`
	ports.SyncState
}

// SpinResponse is the outcome of a roulette spin.
type SpinResponse struct {
	Wallet              WalletResponse    `json:"wallet"`
	SelectedParticipant string            `json:"selected_participant"`
	Entry               domain.AuditEntry `json:"entry"`
	ports.SyncState
}

// CancelResponse is the outcome of a cancellation.
type CancelResponse struct {
	Wallet WalletResponse `json:"wallet"`
	ports.SyncState
}

// NewWalletResponse converts a wallet into its public view.
func NewWalletResponse(w *domain.EscrowWallet) WalletResponse {
	resp := WalletResponse{
		ID:            w.ID.String(),
		BillID:        w.BillID,
		CreatorID:     w.CreatorID,
		Mode:          string(w.Mode),
		LedgerAddress: w.LedgerAddress,
		TotalAmount:   w.TotalAmount.String(),
		Currency:      w.Currency,
		Status:        string(w.Status),
		Participants:  make([]ParticipantResponse, 0, len(w.Participants)),
		CancelReason:  w.CancelReason,
		CreatedAt:     formatTime(w.CreatedAt),
		UpdatedAt:     formatTime(w.UpdatedAt),
		CompletedAt:   formatTimePtr(w.CompletedAt),
	}
	if w.SelectedLoser != nil {
		sel := *w.SelectedLoser
		resp.SelectedParticipant = &sel
	}

	for _, p := range w.Participants {
		unconfirmed := 0
		for _, f := range p.Fundings {
			if !f.Confirmed {
				unconfirmed++
			}
		}
		resp.Participants = append(resp.Participants, ParticipantResponse{
			UserID:             p.UserID,
			DisplayName:        p.DisplayName,
			PayoutAddress:      p.PayoutAddress,
			AmountOwed:         p.AmountOwed.String(),
			AmountPaid:         p.AmountPaid.String(),
			Status:             string(p.Status),
			LastTransactionRef: p.LastTransactionRef,
			PaidAt:             formatTimePtr(p.PaidAt),
			Unconfirmed:        unconfirmed,
		})
	}

	for _, po := range w.Payouts {
		resp.Payouts = append(resp.Payouts, PayoutResponse{
			Kind:           string(po.Kind),
			ParticipantID:  po.ParticipantID,
			Destination:    po.Destination,
			Amount:         po.Amount.String(),
			TransactionRef: po.TransactionRef,
			Confirmed:      po.Confirmed,
			RecordedAt:     formatTime(po.RecordedAt),
		})
	}
	return resp
}

// NewFundResponse converts a funding result.
func NewFundResponse(r *ports.FundResult) FundResponse {
	return FundResponse{
		Wallet:         NewWalletResponse(r.Wallet),
		ParticipantID:  r.ParticipantID,
		TransactionRef: r.TransactionRef,
		AmountApplied:  r.AmountApplied.String(),
		Confirmed:      r.Confirmed,
		Duplicate:      r.Duplicate,
		SyncState:      r.SyncState,
	}
}

// NewTransferResponse converts a payout result.
func NewTransferResponse(r *ports.PayoutResult) TransferResponse {
	return TransferResponse{
		Wallet:         NewWalletResponse(r.Wallet),
		Kind:           string(r.Kind),
		TransactionRef: r.TransactionRef,
		Amount:         r.Amount.String(),
		Destination:    r.Destination,
		Confirmed:      r.Confirmed,
		SyncState:      r.SyncState,
	}
}

// NewSpinResponse converts a roulette result.
func NewSpinResponse(r *ports.SpinResult) SpinResponse {
	return SpinResponse{
		Wallet:              NewWalletResponse(r.Wallet),
		SelectedParticipant: r.Entry.SelectedLoserID,
		Entry:               r.Entry,
		SyncState:           r.SyncState,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
