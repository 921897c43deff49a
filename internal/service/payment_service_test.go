package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- Funding ----

func TestFund_FairFlowLocksWalletWhenAllPaid(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-fair")

	res := h.fund(t, w.ID, "alice", "50")
	assert.True(t, res.Confirmed)
	assert.True(t, res.StatusSynced)
	assert.True(t, d("50").Equal(res.AmountApplied))
	assert.Equal(t, domain.WalletStatusActive, res.Wallet.Status)
	alice := res.Wallet.Participant("alice")
	assert.Equal(t, domain.ParticipantStatusPaid, alice.Status)
	assert.NotNil(t, alice.PaidAt)
	assert.Empty(t, res.Wallet.Reservations)

	rec := h.splits.get("bill-fair")
	assert.Equal(t, domain.SplitParticipantSettled, rec.Participant("alice").Status)
	assert.Equal(t, domain.SplitParticipantAwaitingPayment, rec.Participant("bob").Status)

	res = h.fund(t, w.ID, "bob", "50")
	assert.Equal(t, domain.WalletStatusLocked, res.Wallet.Status)
	assert.True(t, d("100").Equal(h.ledger.balance(w.LedgerAddress)))
	assert.Equal(t, domain.SplitStatusFunded, h.splits.get("bill-fair").Status)
}

func TestFund_DegenParticipantLocks(t *testing.T) {
	h := newHarness(t)
	w := h.createDegen(t, "bill-degen")

	res := h.fund(t, w.ID, "bob", "30")
	bob := res.Wallet.Participant("bob")
	assert.Equal(t, domain.ParticipantStatusLocked, bob.Status)
	assert.Nil(t, bob.PaidAt)
	assert.Equal(t, domain.SplitParticipantFundsLocked, h.splits.get("bill-degen").Participant("bob").Status)
}

func TestFund_PartialThenRemainder(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-partial")

	res := h.fund(t, w.ID, "alice", "20")
	assert.Equal(t, domain.ParticipantStatusPending, res.Wallet.Participant("alice").Status)
	assert.True(t, d("30").Equal(res.Wallet.Participant("alice").Remaining()))

	res = h.fund(t, w.ID, "alice", "30")
	assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant("alice").Status)
	assert.Len(t, res.Wallet.Participant("alice").Fundings, 2)
}

func TestFund_OverFundingIsCapped(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-over")

	res := h.fund(t, w.ID, "alice", "70")
	assert.True(t, d("50").Equal(res.AmountApplied))
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("alice"))), "only the owed share leaves the payer")
	assert.True(t, d("50").Equal(res.Wallet.Participant("alice").AmountPaid))
}

func TestFund_AlreadyFunded(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-again")
	h.fund(t, w.ID, "alice", "50")

	_, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", Amount: d("10")})
	requireCode(t, err, "STATE_004")
}

func TestFund_Validation(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-val")
	ctx := context.Background()

	_, err := h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", Amount: d("0")})
	requireCode(t, err, "VAL_002")

	_, err = h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, Amount: d("10")})
	requireCode(t, err, "VAL_001")

	_, err = h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "mallory", Amount: d("10")})
	requireCode(t, err, "NF_001")
}

func TestFund_InsufficientBalanceReleasesReservation(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-poor")
	h.ledger.setBalance(addressOf("alice"), d("10"))

	_, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", Amount: d("50")})
	requireCode(t, err, "FUND_001")
	assert.Empty(t, h.wallets.get(w.ID).Reservations)

	h.ledger.setBalance(addressOf("alice"), d("100"))
	res := h.fund(t, w.ID, "alice", "50")
	assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant("alice").Status)
}

func TestFund_TransferErrorMarksParticipantFailed(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-rpc")
	h.ledger.transferErr = errors.New("rpc unavailable")

	_, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", Amount: d("50")})
	requireCode(t, err, "LEDGER_001")

	stored := h.wallets.get(w.ID)
	assert.Equal(t, domain.ParticipantStatusFailed, stored.Participant("alice").Status)
	assert.Empty(t, stored.Reservations)
	assert.Equal(t, domain.SplitParticipantPaymentFailed, h.splits.get("bill-rpc").Participant("alice").Status)

	// failed -> pending -> paid on retry
	h.ledger.transferErr = nil
	res := h.fund(t, w.ID, "alice", "50")
	assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant("alice").Status)
}

func TestFund_LedgerRejectsTransaction(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-reject")
	h.ledger.setNextStatus(ports.TxStatusFailed)

	_, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", Amount: d("50")})
	requireCode(t, err, "CONFIRM_001")

	stored := h.wallets.get(w.ID)
	assert.Equal(t, domain.ParticipantStatusFailed, stored.Participant("alice").Status)
	assert.True(t, stored.Participant("alice").AmountPaid.IsZero())
	assert.True(t, d(startFunds).Equal(h.ledger.balance(addressOf("alice"))))
}

func TestFund_ConfirmationTimeoutRecordsOptimistically(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-slow")
	h.ledger.setNextStatus(ports.TxStatusPending)

	res := h.fund(t, w.ID, "alice", "50")
	assert.False(t, res.Confirmed)
	assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant("alice").Status)
	require.Len(t, res.Wallet.UnconfirmedFundings(), 1)
	assert.Equal(t, res.TransactionRef, res.Wallet.UnconfirmedFundings()[0].TransactionRef)
	assert.True(t, h.wallets.get(w.ID).NeedsReconciliation())
	assert.Zero(t, h.idemp.len(), "unconfirmed fundings are not cached")
}

func TestFund_SyncFailureIsDegradedSuccess(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-desync")
	h.splits.failWith(errors.New("bookkeeping down"))

	res := h.fund(t, w.ID, "alice", "50")
	assert.False(t, res.StatusSynced)
	assert.NotEmpty(t, res.SyncError)
	assert.Equal(t, domain.ParticipantStatusPaid, h.wallets.get(w.ID).Participant("alice").Status)
}

func TestFund_ConcurrentFundingMovesFundsOnce(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-race")
	h.ledger.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", Amount: d("50")})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("alice"))))
	assert.True(t, d("50").Equal(h.wallets.get(w.ID).Participant("alice").AmountPaid))
}

// ---- Client-supplied transaction references ----

func TestFund_ExternalReferenceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-ext")
	ref := h.ledger.external(addressOf("alice"), w.LedgerAddress, d("50"), ports.TxStatusConfirmed)
	req := ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", TransactionRef: ref}

	first, err := h.payments.Fund(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.True(t, first.Confirmed)
	assert.True(t, d("50").Equal(first.AmountApplied))

	second, err := h.payments.Fund(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate, "served from the idempotency cache")
	assert.True(t, second.AmountApplied.IsZero())

	h.idemp.clear()
	third, err := h.payments.Fund(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, third.Duplicate, "detected on the wallet document")

	stored := h.wallets.get(w.ID)
	assert.True(t, d("50").Equal(stored.Participant("alice").AmountPaid))
	assert.Len(t, stored.Participant("alice").Fundings, 1)
}

func TestFund_ExternalReferenceCappedToOwed(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-ext-over")
	ref := h.ledger.external(addressOf("bob"), w.LedgerAddress, d("80"), ports.TxStatusConfirmed)

	res, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", TransactionRef: ref})
	require.NoError(t, err)
	assert.True(t, d("50").Equal(res.AmountApplied))
}

func TestFund_ExternalReferenceMustPayThisEscrow(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-ext-bad")

	wrongPayer := h.ledger.external(addressOf("bob"), w.LedgerAddress, d("50"), ports.TxStatusConfirmed)
	_, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", TransactionRef: wrongPayer})
	requireCode(t, err, "VAL_001")

	wrongPayee := h.ledger.external(addressOf("alice"), "0xelsewhere", d("50"), ports.TxStatusConfirmed)
	_, err = h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", TransactionRef: wrongPayee})
	requireCode(t, err, "VAL_001")

	assert.True(t, h.wallets.get(w.ID).Participant("alice").AmountPaid.IsZero())
}

func TestFund_ExternalReferenceNotYetConfirmed(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-ext-pending")
	ref := h.ledger.external(addressOf("alice"), w.LedgerAddress, d("50"), ports.TxStatusPending)

	_, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", TransactionRef: ref})
	requireCode(t, err, "CONFIRM_002")
	assert.Empty(t, h.wallets.get(w.ID).Participant("alice").Fundings)

	h.ledger.settle(ref, ports.TxStatusConfirmed)
	res, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: w.ID, ParticipantID: "alice", TransactionRef: ref})
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
}

// ---- Extraction ----

func TestExtractFunds_FairFlow(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-extract")
	h.fund(t, w.ID, "alice", "50")
	h.fund(t, w.ID, "bob", "50")

	res, err := h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.True(t, res.StatusSynced)
	assert.Equal(t, domain.PayoutKindWithdrawal, res.Kind)
	assert.True(t, d("100").Equal(res.Amount))
	assert.Equal(t, domain.WalletStatusCompleted, res.Wallet.Status)
	assert.NotNil(t, res.Wallet.CompletedAt)
	assert.Empty(t, res.Wallet.Reservations)

	assert.True(t, d("100").Equal(h.ledger.balance(restaurant)))
	assert.True(t, h.ledger.balance(w.LedgerAddress).IsZero())
	assert.Equal(t, domain.SplitStatusSettled, h.splits.get("bill-extract").Status)

	_, err = h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	requireCode(t, err, "STATE_005")
}

func TestExtractFunds_Guards(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-guards")
	ctx := context.Background()
	h.fund(t, w.ID, "alice", "50")

	_, err := h.payments.ExtractFunds(ctx, ports.ExtractRequest{WalletID: w.ID, CallerID: "bob", Destination: restaurant})
	requireCode(t, err, "AUTH_002")

	_, err = h.payments.ExtractFunds(ctx, ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	requireCode(t, err, "FUND_002")

	h.fund(t, w.ID, "bob", "50")
	_, err = h.payments.ExtractFunds(ctx, ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: "restaurant"})
	requireCode(t, err, "VAL_004")

	_, err = h.payments.ExtractFunds(ctx, ports.ExtractRequest{WalletID: w.ID, CallerID: "alice"})
	requireCode(t, err, "VAL_001")

	degen := h.createDegen(t, "bill-guards-degen")
	_, err = h.payments.ExtractFunds(ctx, ports.ExtractRequest{WalletID: degen.ID, CallerID: "alice", Destination: restaurant})
	requireCode(t, err, "STATE_008")
}

func TestExtractFunds_RefusesWhileFundingUnconfirmed(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-wait")
	h.ledger.setNextStatus(ports.TxStatusPending)
	pending := h.fund(t, w.ID, "alice", "50")
	h.ledger.setNextStatus(ports.TxStatusConfirmed)
	h.fund(t, w.ID, "bob", "50")

	_, err := h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	requireCode(t, err, "CONFIRM_002")
	assert.True(t, h.ledger.balance(restaurant).IsZero())

	h.ledger.settle(pending.TransactionRef, ports.TxStatusConfirmed)
	res, err := h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusCompleted, res.Wallet.Status)
}

func TestExtractFunds_ConcurrentCallsPayOnce(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-double")
	h.fund(t, w.ID, "alice", "50")
	h.fund(t, w.ID, "bob", "50")
	h.ledger.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, h.ledger.transfersFrom(w.LedgerAddress))
	assert.True(t, d("100").Equal(h.ledger.balance(restaurant)))
}

func TestExtractFunds_PayoutTimeoutThenReverted(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-payout-slow")
	h.fund(t, w.ID, "alice", "50")
	h.fund(t, w.ID, "bob", "50")
	h.ledger.setNextStatus(ports.TxStatusPending)

	res, err := h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	require.NoError(t, err)
	assert.False(t, res.Confirmed)
	assert.Equal(t, domain.WalletStatusCompleted, res.Wallet.Status)

	h.ledger.settle(res.TransactionRef, ports.TxStatusFailed)
	report, err := h.reconciler.ReconcileWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{res.TransactionRef}, report.Reverted)

	stored := h.wallets.get(w.ID)
	assert.Equal(t, domain.WalletStatusLocked, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.Empty(t, stored.Payouts)
	assert.Equal(t, domain.SplitStatusFunded, h.splits.get("bill-payout-slow").Status)

	h.ledger.setNextStatus(ports.TxStatusConfirmed)
	res, err = h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.True(t, d("100").Equal(h.ledger.balance(restaurant)))
}

func TestExtractFunds_CustodyKeyMissing(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-nokey")
	h.fund(t, w.ID, "alice", "50")
	h.fund(t, w.ID, "bob", "50")
	require.NoError(t, h.custody.Revoke(context.Background(), w))

	_, err := h.payments.ExtractFunds(context.Background(), ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant})
	requireCode(t, err, "LEDGER_002")
	assert.Empty(t, h.wallets.get(w.ID).Reservations)
}

// ---- Degen payouts ----

func spunDegen(t *testing.T, h *harness, billID string) (*domain.EscrowWallet, string) {
	t.Helper()
	w := h.createDegen(t, billID)
	for _, u := range []string{"alice", "bob", "carol"} {
		h.fund(t, w.ID, u, "30")
	}
	res, err := h.roulette.Spin(context.Background(), w.ID, "alice")
	require.NoError(t, err)
	return res.Wallet, res.Entry.SelectedLoserID
}

func others(target string) []string {
	var out []string
	for _, u := range []string{"alice", "bob", "carol"} {
		if u != target {
			out = append(out, u)
		}
	}
	return out
}

func TestDegenFlow_ConservesFundsAndCloses(t *testing.T) {
	h := newHarness(t)
	w, target := spunDegen(t, h, "bill-degen-flow")
	assert.True(t, d("90").Equal(h.ledger.balance(w.LedgerAddress)))

	for _, u := range others(target) {
		res, err := h.payments.ClaimStake(context.Background(), ports.PayoutRequest{WalletID: w.ID, CallerID: u})
		require.NoError(t, err)
		assert.Equal(t, domain.PayoutKindClaim, res.Kind)
		assert.True(t, d("30").Equal(res.Amount))
		assert.Equal(t, addressOf(u), res.Destination)
		assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant(u).Status)
		assert.Equal(t, domain.WalletStatusSpinningCompleted, res.Wallet.Status)
		assert.True(t, d(startFunds).Equal(h.ledger.balance(addressOf(u))))
	}

	res, err := h.payments.PayoutSettlementTarget(context.Background(), ports.PayoutRequest{WalletID: w.ID, CallerID: target, Destination: restaurant})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutKindSettlement, res.Kind)
	assert.True(t, d("30").Equal(res.Amount))
	assert.Equal(t, domain.WalletStatusClosed, res.Wallet.Status)
	assert.NotNil(t, res.Wallet.CompletedAt)

	assert.True(t, d("30").Equal(h.ledger.balance(restaurant)))
	assert.True(t, d("970").Equal(h.ledger.balance(addressOf(target))))
	assert.True(t, h.ledger.balance(w.LedgerAddress).IsZero())

	rec := h.splits.get("bill-degen-flow")
	assert.Equal(t, domain.SplitStatusArchived, rec.Status)
	assert.Equal(t, target, rec.SelectedParticipantID)
	for _, sp := range rec.Participants {
		assert.Equal(t, domain.SplitParticipantSettled, sp.Status)
	}
}

func TestDegenPayout_RoleChecks(t *testing.T) {
	h := newHarness(t)
	w, target := spunDegen(t, h, "bill-degen-roles")
	other := others(target)[0]
	ctx := context.Background()

	_, err := h.payments.PayoutSettlementTarget(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: other, Destination: restaurant})
	requireCode(t, err, "AUTH_002")

	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: target})
	requireCode(t, err, "AUTH_002")

	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: "mallory"})
	requireCode(t, err, "AUTH_002")

	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: other})
	require.NoError(t, err)
	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: other})
	requireCode(t, err, "STATE_005")

	_, err = h.payments.PayoutSettlementTarget(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: target, Destination: restaurant})
	require.NoError(t, err)
	_, err = h.payments.PayoutSettlementTarget(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: target, Destination: restaurant})
	requireCode(t, err, "STATE_005")
}

func TestDegenPayout_BeforeSpin(t *testing.T) {
	h := newHarness(t)
	w := h.createDegen(t, "bill-degen-early")

	_, err := h.payments.ClaimStake(context.Background(), ports.PayoutRequest{WalletID: w.ID, CallerID: "bob"})
	requireCode(t, err, "STATE_003")
}

func TestDegenPayout_PendingPayoutsCloseViaReconciler(t *testing.T) {
	h := newHarness(t)
	w, target := spunDegen(t, h, "bill-degen-pending")
	h.ledger.setNextStatus(ports.TxStatusPending)

	var refs []string
	for _, u := range others(target) {
		res, err := h.payments.ClaimStake(context.Background(), ports.PayoutRequest{WalletID: w.ID, CallerID: u})
		require.NoError(t, err)
		refs = append(refs, res.TransactionRef)
	}
	res, err := h.payments.PayoutSettlementTarget(context.Background(), ports.PayoutRequest{WalletID: w.ID, CallerID: target, Destination: restaurant})
	require.NoError(t, err)
	refs = append(refs, res.TransactionRef)
	assert.Equal(t, domain.WalletStatusSpinningCompleted, res.Wallet.Status, "unconfirmed payouts keep the wallet open")

	for _, ref := range refs {
		h.ledger.settle(ref, ports.TxStatusConfirmed)
	}
	n, err := h.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := h.wallets.get(w.ID)
	assert.Equal(t, domain.WalletStatusClosed, stored.Status)
	assert.Empty(t, stored.UnconfirmedPayouts())
	assert.Equal(t, domain.SplitStatusArchived, h.splits.get("bill-degen-pending").Status)
}

// ---- Transfers that moved but were not recorded ----

// failRecording rejects every wallet write that clears the last transfer
// intent, as a store outage right after the ledger call would.
func failRecording(h *harness) {
	h.wallets.setRejectUpdate(func(w *domain.EscrowWallet) error {
		if len(w.Intents) == 0 {
			return ports.ErrVersionConflict
		}
		return nil
	})
}

func TestFund_UnrecordedTransferBlocksRetryUntilReconciled(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-unrecorded")
	ctx := context.Background()
	req := ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", Amount: d("50")}
	failRecording(h)

	_, err := h.payments.Fund(ctx, req)
	requireCode(t, err, "SYS_004")
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("bob"))))

	stored := h.wallets.get(w.ID)
	require.Len(t, stored.Intents, 1)
	intent := stored.Intents[0]
	assert.Equal(t, domain.IntentFunding, intent.Kind)
	assert.Equal(t, "bob", intent.ParticipantID)
	assert.True(t, d("50").Equal(intent.Amount))
	assert.NotEmpty(t, intent.TransactionRef)
	assert.Empty(t, stored.Reservations, "parked transfers are not in flight")
	assert.True(t, stored.NeedsReconciliation())
	assert.True(t, stored.Participant("bob").AmountPaid.IsZero())

	h.wallets.setRejectUpdate(nil)
	_, err = h.payments.Fund(ctx, req)
	requireCode(t, err, "STATE_011")
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("bob"))), "a retry must not move funds again")

	n, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored = h.wallets.get(w.ID)
	assert.Empty(t, stored.Intents)
	assert.False(t, stored.NeedsReconciliation())
	bob := stored.Participant("bob")
	assert.Equal(t, domain.ParticipantStatusPaid, bob.Status)
	assert.True(t, d("50").Equal(bob.AmountPaid))
	require.Len(t, bob.Fundings, 1)
	assert.Equal(t, intent.TransactionRef, bob.Fundings[0].TransactionRef)
	assert.True(t, bob.Fundings[0].Confirmed)

	_, err = h.payments.Fund(ctx, req)
	requireCode(t, err, "STATE_004")
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("bob"))))
}

func TestFund_UnrecordedTransferDroppedWhenLedgerFails(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-unrecorded-failed")
	ctx := context.Background()
	h.ledger.setNextStatus(ports.TxStatusPending)
	failRecording(h)

	_, err := h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", Amount: d("50")})
	requireCode(t, err, "SYS_004")
	stored := h.wallets.get(w.ID)
	require.Len(t, stored.Intents, 1)
	ref := stored.Intents[0].TransactionRef

	h.wallets.setRejectUpdate(nil)
	h.ledger.settle(ref, ports.TxStatusFailed)
	report, err := h.reconciler.ReconcileWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ref}, report.Reverted)

	stored = h.wallets.get(w.ID)
	assert.Empty(t, stored.Intents)
	assert.Equal(t, domain.ParticipantStatusFailed, stored.Participant("bob").Status)
	assert.True(t, d(startFunds).Equal(h.ledger.balance(addressOf("bob"))))

	h.ledger.setNextStatus(ports.TxStatusConfirmed)
	res := h.fund(t, w.ID, "bob", "50")
	assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant("bob").Status)
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("bob"))))
}

func TestFund_ResubmittedProcessorReferenceSettlesIntent(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-unrecorded-resubmit")
	ctx := context.Background()
	failRecording(h)

	_, err := h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", Amount: d("50")})
	requireCode(t, err, "SYS_004")
	ref := h.wallets.get(w.ID).Intents[0].TransactionRef
	h.wallets.setRejectUpdate(nil)

	res, err := h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", TransactionRef: ref})
	require.NoError(t, err)
	assert.True(t, d("50").Equal(res.AmountApplied))
	assert.True(t, res.Confirmed)
	assert.Empty(t, res.Wallet.Intents)
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("bob"))))
}

func TestFund_IntentWithoutReferenceStaysBlocked(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-unrecorded-noref")
	ctx := context.Background()
	req := ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", Amount: d("50")}
	h.ledger.afterTransfer = func(string) { h.wallets.updateErr = errors.New("connection reset") }

	_, err := h.payments.Fund(ctx, req)
	requireCode(t, err, "SYS_004")
	h.ledger.afterTransfer = nil
	h.wallets.updateErr = nil

	stored := h.wallets.get(w.ID)
	require.Len(t, stored.Intents, 1)
	assert.Empty(t, stored.Intents[0].TransactionRef)

	_, err = h.payments.Fund(ctx, req)
	requireCode(t, err, "STATE_009")

	// an expired reservation does not release the intent
	h.wallets.edit(w.ID, func(w *domain.EscrowWallet) {
		w.Reservations[domain.FundingReservation("bob")] = time.Now().UTC().Add(-time.Hour)
	})
	_, err = h.payments.Fund(ctx, req)
	requireCode(t, err, "STATE_011")

	report, err := h.reconciler.ReconcileWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Confirmed)
	assert.Empty(t, report.Reverted)
	assert.Len(t, h.wallets.get(w.ID).Intents, 1, "only an operator can resolve a transfer without a reference")
	assert.True(t, d("950").Equal(h.ledger.balance(addressOf("bob"))))
}

func TestFund_ExternalReferenceRefusedWhileProcessorTransferInFlight(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-double-pay")
	ctx := context.Background()
	ext := h.ledger.external(addressOf("bob"), w.LedgerAddress, d("50"), ports.TxStatusConfirmed)

	var extErr error
	h.ledger.afterTransfer = func(string) {
		_, extErr = h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", TransactionRef: ext})
	}

	res, err := h.payments.Fund(ctx, ports.FundRequest{WalletID: w.ID, ParticipantID: "bob", Amount: d("50")})
	require.NoError(t, err)
	requireCode(t, extErr, "STATE_011")
	assert.True(t, d("50").Equal(res.AmountApplied))

	bob := h.wallets.get(w.ID).Participant("bob")
	require.Len(t, bob.Fundings, 1)
	assert.Equal(t, res.TransactionRef, bob.Fundings[0].TransactionRef)
}

func TestFund_AmountSizedOnReservedWallet(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-resize")
	key := domain.FundingReservation("alice")

	// a 30 credit lands between the funding's first read and its reservation
	credited := false
	h.wallets.setRejectUpdate(func(next *domain.EscrowWallet) error {
		if credited || next.Intent(key) == nil {
			return nil
		}
		credited = true
		stored := h.wallets.wallets[next.ID]
		_, err := stored.ApplyFunding("alice", d("30"), "0xearlier", true, time.Now().UTC())
		require.NoError(t, err)
		stored.Version++
		return ports.ErrVersionConflict
	})

	res := h.fund(t, w.ID, "alice", "50")
	assert.True(t, d("20").Equal(res.AmountApplied))
	assert.True(t, d("980").Equal(h.ledger.balance(addressOf("alice"))), "only the remaining share is transferred")
	assert.Equal(t, domain.ParticipantStatusPaid, res.Wallet.Participant("alice").Status)
}

func TestExtractFunds_UnrecordedWithdrawalBlocksRetry(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-unrecorded-extract")
	ctx := context.Background()
	h.fund(t, w.ID, "alice", "50")
	h.fund(t, w.ID, "bob", "50")
	h.ledger.setNextStatus(ports.TxStatusPending)
	failRecording(h)

	req := ports.ExtractRequest{WalletID: w.ID, CallerID: "alice", Destination: restaurant}
	_, err := h.payments.ExtractFunds(ctx, req)
	requireCode(t, err, "SYS_004")
	h.wallets.setRejectUpdate(nil)

	_, err = h.payments.ExtractFunds(ctx, req)
	requireCode(t, err, "STATE_011")
	assert.Equal(t, 1, h.ledger.transfersFrom(w.LedgerAddress))

	stored := h.wallets.get(w.ID)
	require.Len(t, stored.Intents, 1)
	ref := stored.Intents[0].TransactionRef
	assert.Equal(t, domain.IntentWithdrawal, stored.Intents[0].Kind)

	_, err = h.payments.CancelWallet(ctx, ports.CancelRequest{WalletID: w.ID, CallerID: "alice"})
	require.Error(t, err)

	h.ledger.settle(ref, ports.TxStatusFailed)
	report, err := h.reconciler.ReconcileWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ref}, report.Reverted)
	stored = h.wallets.get(w.ID)
	assert.Empty(t, stored.Intents)
	assert.Equal(t, domain.WalletStatusLocked, stored.Status)

	h.ledger.setNextStatus(ports.TxStatusConfirmed)
	res, err := h.payments.ExtractFunds(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusCompleted, res.Wallet.Status)
	assert.True(t, d("100").Equal(h.ledger.balance(restaurant)))
}

func TestClaimStake_UnrecordedClaimBlocksRetryUntilReconciled(t *testing.T) {
	h := newHarness(t)
	w, target := spunDegen(t, h, "bill-unrecorded-claim")
	ctx := context.Background()
	claimant := others(target)[0]
	failRecording(h)

	_, err := h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: claimant})
	requireCode(t, err, "SYS_004")
	h.wallets.setRejectUpdate(nil)
	assert.True(t, d(startFunds).Equal(h.ledger.balance(addressOf(claimant))))

	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: claimant})
	requireCode(t, err, "STATE_011")
	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: others(target)[1]})
	requireCode(t, err, "STATE_011")
	_, err = h.payments.PayoutSettlementTarget(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: target, Destination: restaurant})
	requireCode(t, err, "STATE_011")
	assert.True(t, d(startFunds).Equal(h.ledger.balance(addressOf(claimant))), "the stake is returned once")
	assert.True(t, d("60").Equal(h.ledger.balance(w.LedgerAddress)))

	n, err := h.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := h.wallets.get(w.ID)
	assert.Empty(t, stored.Intents)
	assert.Equal(t, domain.ParticipantStatusPaid, stored.Participant(claimant).Status)
	rec := stored.PayoutOfKind(domain.PayoutKindClaim)
	require.NotNil(t, rec)
	assert.Equal(t, claimant, rec.ParticipantID)
	assert.True(t, rec.Confirmed)

	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: claimant})
	requireCode(t, err, "STATE_005")

	_, err = h.payments.ClaimStake(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: others(target)[1]})
	require.NoError(t, err)
	res, err := h.payments.PayoutSettlementTarget(ctx, ports.PayoutRequest{WalletID: w.ID, CallerID: target, Destination: restaurant})
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusClosed, res.Wallet.Status)
	assert.True(t, h.ledger.balance(w.LedgerAddress).IsZero())
}

// ---- Cancellation ----

func TestCancelWallet(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-cancel")
	ctx := context.Background()

	_, err := h.payments.CancelWallet(ctx, ports.CancelRequest{WalletID: w.ID, CallerID: "bob"})
	requireCode(t, err, "AUTH_002")

	res, err := h.payments.CancelWallet(ctx, ports.CancelRequest{WalletID: w.ID, CallerID: "alice", Reason: "dinner moved"})
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusCancelled, res.Wallet.Status)
	assert.Equal(t, "dinner moved", res.Wallet.CancelReason)
	assert.True(t, res.StatusSynced)
	assert.Zero(t, h.custodyStore.count())
	assert.Equal(t, domain.SplitStatusCancelled, h.splits.get("bill-cancel").Status)

	_, err = h.payments.CancelWallet(ctx, ports.CancelRequest{WalletID: w.ID, CallerID: "alice"})
	requireCode(t, err, "STATE_003")

	// the bill can get a fresh wallet once the old one is cancelled
	fresh := h.createFair(t, "bill-cancel")
	assert.NotEqual(t, w.ID, fresh.ID)
}

func TestCancelWallet_RejectsFundedWallet(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-cancel-funded")
	h.fund(t, w.ID, "bob", "10")

	_, err := h.payments.CancelWallet(context.Background(), ports.CancelRequest{WalletID: w.ID, CallerID: "alice"})
	requireCode(t, err, "STATE_001")
	assert.Equal(t, domain.WalletStatusActive, h.wallets.get(w.ID).Status)
}

func TestCancelWallet_RejectsInFlightTransfer(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-cancel-busy")
	h.wallets.edit(w.ID, func(w *domain.EscrowWallet) {
		require.NoError(t, w.Reserve(domain.FundingReservation("bob"), time.Now().UTC(), time.Minute))
	})

	_, err := h.payments.CancelWallet(context.Background(), ports.CancelRequest{WalletID: w.ID, CallerID: "alice"})
	requireCode(t, err, "STATE_009")
}

func TestCancelWallet_RejectsUnresolvedTransfer(t *testing.T) {
	h := newHarness(t)
	w := h.createFair(t, "bill-cancel-intent")
	h.wallets.edit(w.ID, func(w *domain.EscrowWallet) {
		require.NoError(t, w.AddIntent(domain.TransferIntent{
			Key:            domain.FundingReservation("bob"),
			Kind:           domain.IntentFunding,
			ParticipantID:  "bob",
			Amount:         d("50"),
			TransactionRef: "0xstuck",
		}))
	})

	_, err := h.payments.CancelWallet(context.Background(), ports.CancelRequest{WalletID: w.ID, CallerID: "alice"})
	requireCode(t, err, "STATE_011")
}
