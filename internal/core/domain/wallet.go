package domain

import (
	"fmt"
	"time"

	"split-escrow/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxAuditEntries bounds the roulette audit trail kept on a wallet.
const MaxAuditEntries = 10

// EscrowWallet is a dedicated ledger account holding one bill's pooled funds.
type EscrowWallet struct {
	ID              uuid.UUID            `json:"id"`
	BillID          string               `json:"bill_id"`
	CreatorID       string               `json:"creator_id"`
	Mode            SplitMode            `json:"mode"`
	LedgerAddress   string               `json:"ledger_address"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	Currency        string               `json:"currency"`
	Status          WalletStatus         `json:"status"`
	Participants    []Participant        `json:"participants"`
	SettlementAudit []AuditEntry         `json:"settlement_audit,omitempty"`
	SelectedLoser   *SelectedParticipant `json:"selected_loser,omitempty"`
	Payouts         []PayoutRecord       `json:"payouts,omitempty"`
	Reservations    map[string]time.Time `json:"reservations,omitempty"`
	Intents         []TransferIntent     `json:"intents,omitempty"`
	CancelReason    string               `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	Version         int64                `json:"-"` // optimistic concurrency token, owned by the repository
}

// Participant is one payer on a bill.
type Participant struct {
	UserID             string            `json:"user_id"`
	DisplayName        string            `json:"display_name"`
	PayoutAddress      string            `json:"payout_address"`
	AmountOwed         decimal.Decimal   `json:"amount_owed"`
	AmountPaid         decimal.Decimal   `json:"amount_paid"`
	Status             ParticipantStatus `json:"status"`
	LastTransactionRef string            `json:"last_transaction_ref,omitempty"`
	PaidAt             *time.Time        `json:"paid_at,omitempty"`
	Fundings           []FundingRecord   `json:"fundings,omitempty"`
}

// FundingRecord is one transfer credited to a participant.
// Unconfirmed records were applied after confirmation polling timed out.
type FundingRecord struct {
	TransactionRef string          `json:"transaction_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Confirmed      bool            `json:"confirmed"`
	RecordedAt     time.Time       `json:"recorded_at"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
}

// PayoutKind names the path a payout took out of the escrow.
type PayoutKind string

const (
	PayoutKindWithdrawal PayoutKind = "withdrawal"
	PayoutKindSettlement PayoutKind = "settlement"
	PayoutKindClaim      PayoutKind = "claim"
)

// PayoutRecord is one transfer out of the escrow.
type PayoutRecord struct {
	Kind                 PayoutKind      `json:"kind"`
	ParticipantID        string          `json:"participant_id,omitempty"`
	Destination          string          `json:"destination"`
	Amount               decimal.Decimal `json:"amount"`
	TransactionRef       string          `json:"transaction_ref"`
	Confirmed            bool            `json:"confirmed"`
	PreviousWalletStatus WalletStatus    `json:"previous_wallet_status"`
	RecordedAt           time.Time       `json:"recorded_at"`
	ConfirmedAt          *time.Time      `json:"confirmed_at,omitempty"`
}

// UnconfirmedFunding points at an optimistic funding awaiting reconciliation.
type UnconfirmedFunding struct {
	ParticipantID  string
	TransactionRef string
}

// NewEscrowWalletParams carries the inputs of a freshly allocated wallet.
type NewEscrowWalletParams struct {
	BillID        string
	CreatorID     string
	Mode          SplitMode
	LedgerAddress string
	TotalAmount   decimal.Decimal
	Currency      string
	Participants  []Participant
	Now           time.Time
}

// NewEscrowWallet builds an active wallet with every participant pending and unpaid.
func NewEscrowWallet(p NewEscrowWalletParams) *EscrowWallet {
	participants := make([]Participant, len(p.Participants))
	for i, in := range p.Participants {
		participants[i] = Participant{
			UserID:        in.UserID,
			DisplayName:   in.DisplayName,
			PayoutAddress: in.PayoutAddress,
			AmountOwed:    money.Normalize(in.AmountOwed),
			AmountPaid:    decimal.Zero,
			Status:        ParticipantStatusPending,
		}
	}

	return &EscrowWallet{
		ID:            uuid.New(),
		BillID:        p.BillID,
		CreatorID:     p.CreatorID,
		Mode:          p.Mode,
		LedgerAddress: p.LedgerAddress,
		TotalAmount:   money.Normalize(p.TotalAmount),
		Currency:      p.Currency,
		Status:        WalletStatusActive,
		Participants:  participants,
		CreatedAt:     p.Now,
		UpdatedAt:     p.Now,
	}
}

// ---- Participant ----

// Remaining returns how much is still owed, never negative.
func (p *Participant) Remaining() decimal.Decimal {
	r := p.AmountOwed.Sub(p.AmountPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func (p *Participant) IsFullyFunded() bool {
	return p.AmountPaid.GreaterThanOrEqual(p.AmountOwed)
}

// HasTransaction reports whether ref was already credited to p.
func (p *Participant) HasTransaction(ref string) bool {
	if ref == "" {
		return false
	}
	for _, f := range p.Fundings {
		if f.TransactionRef == ref {
			return true
		}
	}
	return p.LastTransactionRef == ref
}

// TransitionTo moves p along the participant state machine.
func (p *Participant) TransitionTo(next ParticipantStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "participant " + p.UserID, From: string(p.Status), To: string(next)}
	}
	p.Status = next
	return nil
}

func (p *Participant) fundingIndex(ref string) int {
	for i, f := range p.Fundings {
		if f.TransactionRef == ref {
			return i
		}
	}
	return -1
}

// ---- Wallet lookups ----

// Participant returns a pointer into w.Participants, or nil.
func (w *EscrowWallet) Participant(userID string) *Participant {
	for i := range w.Participants {
		if w.Participants[i].UserID == userID {
			return &w.Participants[i]
		}
	}
	return nil
}

// ParticipantIDs returns participant ids in stored order.
func (w *EscrowWallet) ParticipantIDs() []string {
	ids := make([]string, len(w.Participants))
	for i, p := range w.Participants {
		ids[i] = p.UserID
	}
	return ids
}

func (w *EscrowWallet) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range w.Participants {
		total = total.Add(p.AmountPaid)
	}
	return total
}

func (w *EscrowWallet) TotalOwed() decimal.Decimal {
	total := decimal.Zero
	for _, p := range w.Participants {
		total = total.Add(p.AmountOwed)
	}
	return total
}

func (w *EscrowWallet) AllFullyFunded() bool {
	for i := range w.Participants {
		if !w.Participants[i].IsFullyFunded() {
			return false
		}
	}
	return len(w.Participants) > 0
}

// AllInStatus reports whether every participant is in status s.
func (w *EscrowWallet) AllInStatus(s ParticipantStatus) bool {
	for _, p := range w.Participants {
		if p.Status != s {
			return false
		}
	}
	return len(w.Participants) > 0
}

// HasFunds reports whether anything was ever credited to the wallet.
func (w *EscrowWallet) HasFunds() bool {
	for _, p := range w.Participants {
		if p.AmountPaid.IsPositive() || len(p.Fundings) > 0 {
			return true
		}
	}
	return false
}

// ValidateOwed checks the owed amounts against the bill total.
// Fair and spend splits share the total; degen participants each stake it.
func (w *EscrowWallet) ValidateOwed(tolerance decimal.Decimal) error {
	if w.Mode.IsDegen() {
		for _, p := range w.Participants {
			if !money.WithinTolerance(p.AmountOwed, w.TotalAmount, tolerance) {
				return fmt.Errorf("degen participant %s owes %s, expected the bill total %s",
					p.UserID, p.AmountOwed, w.TotalAmount)
			}
		}
		return nil
	}
	if sum := w.TotalOwed(); !money.WithinTolerance(sum, w.TotalAmount, tolerance) {
		return fmt.Errorf("participant shares add up to %s, expected %s", sum, w.TotalAmount)
	}
	return nil
}

// ---- Wallet state machine ----

// TransitionTo moves w along the wallet state machine.
func (w *EscrowWallet) TransitionTo(next WalletStatus, now time.Time) error {
	if !w.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "wallet " + w.ID.String(), From: string(w.Status), To: string(next)}
	}
	w.Status = next
	w.UpdatedAt = now
	if (next == WalletStatusCompleted || next == WalletStatusClosed) && w.CompletedAt == nil {
		t := now
		w.CompletedAt = &t
	}
	return nil
}

// Cancel moves a non-terminal wallet to cancelled with a reason.
func (w *EscrowWallet) Cancel(reason string, now time.Time) error {
	if err := w.TransitionTo(WalletStatusCancelled, now); err != nil {
		return err
	}
	w.CancelReason = reason
	return nil
}

// ---- Funding ----

// ApplyFunding credits amount to a participant, capped at what they still owe.
// It returns the amount actually credited.
func (w *EscrowWallet) ApplyFunding(userID string, amount decimal.Decimal, ref string, confirmed bool, now time.Time) (decimal.Decimal, error) {
	if w.Status != WalletStatusActive {
		return decimal.Zero, ErrWalletNotFundable
	}
	p := w.Participant(userID)
	if p == nil {
		return decimal.Zero, ErrParticipantNotFound
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}
	if p.HasTransaction(ref) {
		return decimal.Zero, ErrDuplicateTransaction
	}
	if p.Status == ParticipantStatusLocked || p.Status == ParticipantStatusPaid || p.IsFullyFunded() {
		return decimal.Zero, ErrParticipantFunded
	}
	if p.Status == ParticipantStatusFailed {
		if err := p.TransitionTo(ParticipantStatusPending); err != nil {
			return decimal.Zero, err
		}
	}

	applied := money.Min(money.Normalize(amount), p.Remaining())
	p.AmountPaid = p.AmountPaid.Add(applied)
	p.LastTransactionRef = ref
	rec := FundingRecord{TransactionRef: ref, Amount: applied, Confirmed: confirmed, RecordedAt: now}
	if confirmed {
		t := now
		rec.ConfirmedAt = &t
	}
	p.Fundings = append(p.Fundings, rec)

	if p.IsFullyFunded() {
		next := ParticipantStatusPaid
		if w.Mode.IsDegen() {
			next = ParticipantStatusLocked
		}
		if err := p.TransitionTo(next); err != nil {
			return decimal.Zero, err
		}
		if next == ParticipantStatusPaid {
			t := now
			p.PaidAt = &t
		}
	}

	w.UpdatedAt = now
	if w.AllFullyFunded() {
		if err := w.TransitionTo(WalletStatusLocked, now); err != nil {
			return decimal.Zero, err
		}
	}
	return applied, nil
}

// MarkFundingFailed records a failed funding attempt for a pending participant.
func (w *EscrowWallet) MarkFundingFailed(userID string, now time.Time) error {
	p := w.Participant(userID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if p.Status == ParticipantStatusFailed {
		return nil
	}
	if err := p.TransitionTo(ParticipantStatusFailed); err != nil {
		return err
	}
	w.UpdatedAt = now
	return nil
}

// ConfirmFunding marks an optimistic funding as confirmed by the ledger.
func (w *EscrowWallet) ConfirmFunding(userID, ref string, now time.Time) bool {
	p := w.Participant(userID)
	if p == nil {
		return false
	}
	i := p.fundingIndex(ref)
	if i < 0 || p.Fundings[i].Confirmed {
		return false
	}
	t := now
	p.Fundings[i].Confirmed = true
	p.Fundings[i].ConfirmedAt = &t
	w.UpdatedAt = now
	return true
}

// RevertFunding undoes an optimistic funding the ledger reported as failed.
// This is a compensating write and bypasses the forward-only transition table.
func (w *EscrowWallet) RevertFunding(userID, ref string, now time.Time) error {
	if w.Status != WalletStatusActive && w.Status != WalletStatusLocked {
		return ErrSettlementStarted
	}
	p := w.Participant(userID)
	if p == nil {
		return ErrParticipantNotFound
	}
	i := p.fundingIndex(ref)
	if i < 0 || p.Fundings[i].Confirmed {
		return ErrFundingNotFound
	}

	p.AmountPaid = p.AmountPaid.Sub(p.Fundings[i].Amount)
	if p.AmountPaid.IsNegative() {
		p.AmountPaid = decimal.Zero
	}
	p.Fundings = append(p.Fundings[:i], p.Fundings[i+1:]...)
	p.LastTransactionRef = ""
	if n := len(p.Fundings); n > 0 {
		p.LastTransactionRef = p.Fundings[n-1].TransactionRef
	}
	if !p.IsFullyFunded() && (p.Status == ParticipantStatusLocked || p.Status == ParticipantStatusPaid) {
		p.Status = ParticipantStatusPending
		p.PaidAt = nil
	}

	if w.Status == WalletStatusLocked && !w.AllFullyFunded() {
		w.Status = WalletStatusActive
	}
	w.UpdatedAt = now
	return nil
}

// UnconfirmedFundings lists optimistic fundings in participant order.
func (w *EscrowWallet) UnconfirmedFundings() []UnconfirmedFunding {
	var out []UnconfirmedFunding
	for _, p := range w.Participants {
		for _, f := range p.Fundings {
			if !f.Confirmed {
				out = append(out, UnconfirmedFunding{ParticipantID: p.UserID, TransactionRef: f.TransactionRef})
			}
		}
	}
	return out
}

// ---- Payouts ----

// RecordPayout appends a payout; duplicates by reference are ignored.
func (w *EscrowWallet) RecordPayout(rec PayoutRecord) bool {
	if w.Payout(rec.TransactionRef) != nil {
		return false
	}
	w.Payouts = append(w.Payouts, rec)
	w.UpdatedAt = rec.RecordedAt
	return true
}

// Payout returns the payout with the given reference, or nil.
func (w *EscrowWallet) Payout(ref string) *PayoutRecord {
	for i := range w.Payouts {
		if w.Payouts[i].TransactionRef == ref {
			return &w.Payouts[i]
		}
	}
	return nil
}

// PayoutOfKind returns the first payout of kind, or nil.
func (w *EscrowWallet) PayoutOfKind(kind PayoutKind) *PayoutRecord {
	for i := range w.Payouts {
		if w.Payouts[i].Kind == kind {
			return &w.Payouts[i]
		}
	}
	return nil
}

// ConfirmPayout marks an optimistic payout as confirmed.
func (w *EscrowWallet) ConfirmPayout(ref string, now time.Time) bool {
	rec := w.Payout(ref)
	if rec == nil || rec.Confirmed {
		return false
	}
	t := now
	rec.Confirmed = true
	rec.ConfirmedAt = &t
	w.UpdatedAt = now
	return true
}

// RevertPayout undoes an optimistic payout the ledger reported as failed,
// restoring the wallet and participant to their pre-payout state.
func (w *EscrowWallet) RevertPayout(ref string, now time.Time) error {
	idx := -1
	for i := range w.Payouts {
		if w.Payouts[i].TransactionRef == ref && !w.Payouts[i].Confirmed {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPayoutNotFound
	}
	rec := w.Payouts[idx]
	w.Payouts = append(w.Payouts[:idx], w.Payouts[idx+1:]...)

	switch rec.Kind {
	case PayoutKindWithdrawal:
		w.Status = rec.PreviousWalletStatus
		w.CompletedAt = nil
	case PayoutKindSettlement, PayoutKindClaim:
		if p := w.Participant(rec.ParticipantID); p != nil {
			p.Status = ParticipantStatusLocked
			p.PaidAt = nil
		}
		if w.Status == WalletStatusClosed || w.Status == WalletStatusCompleted {
			w.Status = WalletStatusSpinningCompleted
			w.CompletedAt = nil
		}
	}
	w.UpdatedAt = now
	return nil
}

// ApplyPayout records a payout and moves the wallet or participant the way
// its kind requires. A withdrawal completes the wallet; a settlement or a
// claim marks the participant's stake paid.
func (w *EscrowWallet) ApplyPayout(rec PayoutRecord) error {
	if w.Payout(rec.TransactionRef) != nil {
		return ErrDuplicateTransaction
	}
	rec.PreviousWalletStatus = w.Status
	now := rec.RecordedAt

	switch rec.Kind {
	case PayoutKindWithdrawal:
		if err := w.TransitionTo(WalletStatusCompleted, now); err != nil {
			return err
		}
	case PayoutKindSettlement, PayoutKindClaim:
		p := w.Participant(rec.ParticipantID)
		if p == nil {
			return ErrParticipantNotFound
		}
		if err := p.TransitionTo(ParticipantStatusPaid); err != nil {
			return err
		}
		t := now
		p.PaidAt = &t
	}
	w.RecordPayout(rec)
	return nil
}

// UnconfirmedPayouts lists references of optimistic payouts.
func (w *EscrowWallet) UnconfirmedPayouts() []string {
	var out []string
	for _, p := range w.Payouts {
		if !p.Confirmed {
			out = append(out, p.TransactionRef)
		}
	}
	return out
}

// HasUnconfirmed reports whether any optimistic write awaits reconciliation.
func (w *EscrowWallet) HasUnconfirmed() bool {
	return len(w.UnconfirmedFundings()) > 0 || len(w.UnconfirmedPayouts()) > 0
}

// NeedsReconciliation reports whether the background job should visit w.
func (w *EscrowWallet) NeedsReconciliation() bool {
	if w.HasUnconfirmed() || len(w.Intents) > 0 {
		return true
	}
	return w.Status == WalletStatusSpinningCompleted && w.AllInStatus(ParticipantStatusPaid)
}

// ---- Reservations ----

// Reserve claims key for one in-flight operation. A reservation older than
// ttl is considered abandoned and may be taken over.
func (w *EscrowWallet) Reserve(key string, now time.Time, ttl time.Duration) error {
	if at, ok := w.Reservations[key]; ok && now.Sub(at) < ttl {
		return ErrOperationInProgress
	}
	if w.Reservations == nil {
		w.Reservations = make(map[string]time.Time)
	}
	w.Reservations[key] = now
	return nil
}

// Release drops a reservation.
func (w *EscrowWallet) Release(key string) {
	delete(w.Reservations, key)
	if len(w.Reservations) == 0 {
		w.Reservations = nil
	}
}

// FundingReservation is the reservation key for one participant's funding.
func FundingReservation(userID string) string {
	return "fund:" + userID
}

// PayoutReservation is the wallet-wide payout reservation key.
const PayoutReservation = "payout"

// ---- Roulette ----

// AppendAudit adds entry and drops the oldest entries past MaxAuditEntries.
func (w *EscrowWallet) AppendAudit(entry AuditEntry) {
	w.SettlementAudit = append(w.SettlementAudit, entry)
	if n := len(w.SettlementAudit); n > MaxAuditEntries {
		w.SettlementAudit = append([]AuditEntry(nil), w.SettlementAudit[n-MaxAuditEntries:]...)
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (w *EscrowWallet) Clone() *EscrowWallet {
	if w == nil {
		return nil
	}
	c := *w
	c.Participants = make([]Participant, len(w.Participants))
	for i, p := range w.Participants {
		cp := p
		cp.PaidAt = cloneTime(p.PaidAt)
		cp.Fundings = make([]FundingRecord, len(p.Fundings))
		for j, f := range p.Fundings {
			cf := f
			cf.ConfirmedAt = cloneTime(f.ConfirmedAt)
			cp.Fundings[j] = cf
		}
		if len(p.Fundings) == 0 {
			cp.Fundings = nil
		}
		c.Participants[i] = cp
	}
	if w.SettlementAudit != nil {
		c.SettlementAudit = make([]AuditEntry, len(w.SettlementAudit))
		for i, e := range w.SettlementAudit {
			ce := e
			ce.ParticipantIDs = append([]string(nil), e.ParticipantIDs...)
			ce.LockedParticipantIDs = append([]string(nil), e.LockedParticipantIDs...)
			c.SettlementAudit[i] = ce
		}
	}
	if w.SelectedLoser != nil {
		sl := *w.SelectedLoser
		c.SelectedLoser = &sl
	}
	if w.Payouts != nil {
		c.Payouts = make([]PayoutRecord, len(w.Payouts))
		for i, p := range w.Payouts {
			cp := p
			cp.ConfirmedAt = cloneTime(p.ConfirmedAt)
			c.Payouts[i] = cp
		}
	}
	if w.Reservations != nil {
		c.Reservations = make(map[string]time.Time, len(w.Reservations))
		for k, v := range w.Reservations {
			c.Reservations[k] = v
		}
	}
	if w.Intents != nil {
		c.Intents = append([]TransferIntent(nil), w.Intents...)
	}
	c.CompletedAt = cloneTime(w.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
