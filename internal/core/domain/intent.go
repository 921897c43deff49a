package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// IntentKind names the transfer an intent stands for.
type IntentKind string

const (
	IntentFunding    IntentKind = "funding"
	IntentWithdrawal IntentKind = IntentKind(PayoutKindWithdrawal)
	IntentSettlement IntentKind = IntentKind(PayoutKindSettlement)
	IntentClaim      IntentKind = IntentKind(PayoutKindClaim)
)

// TransferIntent is a transfer the processor is about to submit, or has
// submitted but not yet recorded on the wallet. Unlike a reservation it
// never expires: it is cleared only when the transfer is recorded or the
// ledger reports it failed.
type TransferIntent struct {
	Key            string          `json:"key"`
	Kind           IntentKind      `json:"kind"`
	ParticipantID  string          `json:"participant_id,omitempty"`
	Destination    string          `json:"destination,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsFunding reports whether the intent moves funds into the escrow.
func (i TransferIntent) IsFunding() bool {
	return i.Kind == IntentFunding
}

// AddIntent records an intent. Only one intent per key may be outstanding.
func (w *EscrowWallet) AddIntent(it TransferIntent) error {
	if w.Intent(it.Key) != nil {
		return ErrTransferUnresolved
	}
	w.Intents = append(w.Intents, it)
	return nil
}

// Intent returns the outstanding intent under key, or nil.
func (w *EscrowWallet) Intent(key string) *TransferIntent {
	for i := range w.Intents {
		if w.Intents[i].Key == key {
			return &w.Intents[i]
		}
	}
	return nil
}

// IntentByRef returns the outstanding intent that submitted ref, or nil.
func (w *EscrowWallet) IntentByRef(ref string) *TransferIntent {
	if ref == "" {
		return nil
	}
	for i := range w.Intents {
		if w.Intents[i].TransactionRef == ref {
			return &w.Intents[i]
		}
	}
	return nil
}

// AttachIntentRef stores the ledger reference of a submitted intent.
func (w *EscrowWallet) AttachIntentRef(key, ref string) bool {
	it := w.Intent(key)
	if it == nil || it.TransactionRef == ref {
		return false
	}
	it.TransactionRef = ref
	return true
}

// DropIntent removes the intent under key.
func (w *EscrowWallet) DropIntent(key string) {
	for i := range w.Intents {
		if w.Intents[i].Key == key {
			w.Intents = append(w.Intents[:i], w.Intents[i+1:]...)
			break
		}
	}
	if len(w.Intents) == 0 {
		w.Intents = nil
	}
}

// BlockingIntent returns an intent that forbids starting a new transfer for
// participantID. Any payout intent blocks everything; a funding intent only
// blocks further funding by the same participant. An empty participantID
// asks on behalf of a payout, which any intent blocks.
func (w *EscrowWallet) BlockingIntent(participantID string) *TransferIntent {
	for i := range w.Intents {
		it := &w.Intents[i]
		if participantID == "" || !it.IsFunding() || it.ParticipantID == participantID {
			return it
		}
	}
	return nil
}

// CompleteIntent records the transfer behind a confirmed intent exactly as
// the processor would have, then drops the intent.
func (w *EscrowWallet) CompleteIntent(ref string, now time.Time) error {
	it := w.IntentByRef(ref)
	if it == nil {
		return ErrIntentNotFound
	}
	done := *it

	if done.IsFunding() {
		if _, err := w.ApplyFunding(done.ParticipantID, done.Amount, ref, true, now); err != nil && !errors.Is(err, ErrDuplicateTransaction) {
			return err
		}
		w.DropIntent(done.Key)
		w.Release(done.Key)
		return nil
	}

	if w.Payout(ref) == nil {
		t := now
		rec := PayoutRecord{
			Kind:           PayoutKind(done.Kind),
			ParticipantID:  done.ParticipantID,
			Destination:    done.Destination,
			Amount:         done.Amount,
			TransactionRef: ref,
			Confirmed:      true,
			RecordedAt:     now,
			ConfirmedAt:    &t,
		}
		if err := w.ApplyPayout(rec); err != nil {
			return err
		}
	}
	w.DropIntent(done.Key)
	w.Release(done.Key)
	return nil
}

// AbandonIntent drops an intent whose transfer the ledger reports failed.
// A failed funding leaves its participant flagged as failed.
func (w *EscrowWallet) AbandonIntent(ref string, now time.Time) error {
	it := w.IntentByRef(ref)
	if it == nil {
		return ErrIntentNotFound
	}
	done := *it
	w.DropIntent(done.Key)
	w.Release(done.Key)
	w.UpdatedAt = now
	if done.IsFunding() {
		if p := w.Participant(done.ParticipantID); p != nil && p.Status == ParticipantStatusPending {
			return w.MarkFundingFailed(done.ParticipantID, now)
		}
	}
	return nil
}

// SubmittedIntentRefs lists the ledger references of outstanding intents.
func (w *EscrowWallet) SubmittedIntentRefs() []string {
	var out []string
	for _, it := range w.Intents {
		if it.TransactionRef != "" {
			out = append(out, it.TransactionRef)
		}
	}
	return out
}
