package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitStatus is the bill status as the bookkeeping store spells it.
type SplitStatus string

const (
	SplitStatusOpen      SplitStatus = "open"
	SplitStatusFunded    SplitStatus = "funded"
	SplitStatusSettled   SplitStatus = "settled"
	SplitStatusCancelled SplitStatus = "cancelled"
	SplitStatusSettling  SplitStatus = "settling"
	SplitStatusArchived  SplitStatus = "archived"
)

// SplitParticipantStatus is the participant status in the bookkeeping store.
type SplitParticipantStatus string

const (
	SplitParticipantAwaitingPayment SplitParticipantStatus = "awaiting_payment"
	SplitParticipantFundsLocked     SplitParticipantStatus = "funds_locked"
	SplitParticipantSettled         SplitParticipantStatus = "settled"
	SplitParticipantPaymentFailed   SplitParticipantStatus = "payment_failed"
)

var walletToSplit = map[WalletStatus]SplitStatus{
	WalletStatusActive:            SplitStatusOpen,
	WalletStatusLocked:            SplitStatusFunded,
	WalletStatusCompleted:         SplitStatusSettled,
	WalletStatusCancelled:         SplitStatusCancelled,
	WalletStatusSpinningCompleted: SplitStatusSettling,
	WalletStatusClosed:            SplitStatusArchived,
}

var participantToSplit = map[ParticipantStatus]SplitParticipantStatus{
	ParticipantStatusPending: SplitParticipantAwaitingPayment,
	ParticipantStatusLocked:  SplitParticipantFundsLocked,
	ParticipantStatusPaid:    SplitParticipantSettled,
	ParticipantStatusFailed:  SplitParticipantPaymentFailed,
}

var (
	splitToWallet      = invert(walletToSplit)
	splitToParticipant = invert(participantToSplit)
)

func invert[K, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// SplitStatusFor maps a wallet status into the bookkeeping vocabulary.
func SplitStatusFor(s WalletStatus) (SplitStatus, error) {
	v, ok := walletToSplit[s]
	if !ok {
		return "", fmt.Errorf("wallet status %q: %w", s, ErrUnmappedStatus)
	}
	return v, nil
}

// WalletStatusForSplit is the inverse of SplitStatusFor.
func WalletStatusForSplit(s SplitStatus) (WalletStatus, error) {
	v, ok := splitToWallet[s]
	if !ok {
		return "", fmt.Errorf("split status %q: %w", s, ErrUnmappedStatus)
	}
	return v, nil
}

// SplitParticipantStatusFor maps a participant status into the bookkeeping vocabulary.
func SplitParticipantStatusFor(s ParticipantStatus) (SplitParticipantStatus, error) {
	v, ok := participantToSplit[s]
	if !ok {
		return "", fmt.Errorf("participant status %q: %w", s, ErrUnmappedStatus)
	}
	return v, nil
}

// ParticipantStatusForSplit is the inverse of SplitParticipantStatusFor.
func ParticipantStatusForSplit(s SplitParticipantStatus) (ParticipantStatus, error) {
	v, ok := splitToParticipant[s]
	if !ok {
		return "", fmt.Errorf("split participant status %q: %w", s, ErrUnmappedStatus)
	}
	return v, nil
}

// SplitRecord is the bill as mirrored into the bookkeeping store, keyed by bill id.
type SplitRecord struct {
	BillID                string             `json:"bill_id"`
	WalletID              uuid.UUID          `json:"wallet_id"`
	CreatorID             string             `json:"creator_id"`
	Mode                  SplitMode          `json:"mode"`
	Status                SplitStatus        `json:"status"`
	TotalAmount           decimal.Decimal    `json:"total_amount"`
	Currency              string             `json:"currency"`
	WalletAddress         string             `json:"wallet_address"`
	SelectedParticipantID string             `json:"selected_participant_id,omitempty"`
	Participants          []SplitParticipant `json:"participants"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// SplitParticipant is one participant row in the bookkeeping store.
type SplitParticipant struct {
	UserID         string                 `json:"user_id"`
	DisplayName    string                 `json:"display_name"`
	Status         SplitParticipantStatus `json:"status"`
	AmountOwed     decimal.Decimal        `json:"amount_owed"`
	AmountPaid     decimal.Decimal        `json:"amount_paid"`
	TransactionRef string                 `json:"transaction_ref,omitempty"`
}

// NewSplitRecord projects w into the bookkeeping shape.
func NewSplitRecord(w *EscrowWallet, now time.Time) (*SplitRecord, error) {
	status, err := SplitStatusFor(w.Status)
	if err != nil {
		return nil, err
	}

	rec := &SplitRecord{
		BillID:        w.BillID,
		WalletID:      w.ID,
		CreatorID:     w.CreatorID,
		Mode:          w.Mode,
		Status:        status,
		TotalAmount:   w.TotalAmount,
		Currency:      w.Currency,
		WalletAddress: w.LedgerAddress,
		Participants:  make([]SplitParticipant, 0, len(w.Participants)),
		UpdatedAt:     now,
	}
	if w.SelectedLoser != nil {
		rec.SelectedParticipantID = w.SelectedLoser.ParticipantID
	}
	for _, p := range w.Participants {
		sp, err := NewSplitParticipant(p)
		if err != nil {
			return nil, err
		}
		rec.Participants = append(rec.Participants, sp)
	}
	return rec, nil
}

// NewSplitParticipant projects p into the bookkeeping shape.
func NewSplitParticipant(p Participant) (SplitParticipant, error) {
	status, err := SplitParticipantStatusFor(p.Status)
	if err != nil {
		return SplitParticipant{}, err
	}
	return SplitParticipant{
		UserID:         p.UserID,
		DisplayName:    p.DisplayName,
		Status:         status,
		AmountOwed:     p.AmountOwed,
		AmountPaid:     p.AmountPaid,
		TransactionRef: p.LastTransactionRef,
	}, nil
}

// Participant returns the row for userID, or nil.
func (r *SplitRecord) Participant(userID string) *SplitParticipant {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i]
		}
	}
	return nil
}
