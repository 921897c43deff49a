package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockedDegen(t *testing.T, h *harness, billID string) *domain.EscrowWallet {
	t.Helper()
	w := h.createDegen(t, billID)
	for _, u := range []string{"alice", "bob", "carol"} {
		h.fund(t, w.ID, u, "30")
	}
	return h.wallets.get(w.ID)
}

func TestSpin_SelectsFromSeedAndRecordsAudit(t *testing.T) {
	h := newHarness(t)
	w := lockedDegen(t, h, "bill-spin")

	seed := bytes.Repeat([]byte{0x42}, seedBytes)
	h.roulette.entropy = bytes.NewReader(seed)
	want, err := domain.SelectIndex(seed, w.ID.String(), 3)
	require.NoError(t, err)

	res, err := h.roulette.Spin(context.Background(), w.ID, "bob")
	require.NoError(t, err)
	assert.True(t, res.StatusSynced)

	entry := res.Entry
	assert.Equal(t, w.ParticipantIDs()[want], entry.SelectedLoserID)
	assert.Equal(t, hex.EncodeToString(seed), entry.Seed)
	assert.Equal(t, domain.EntropySourceCryptoRand, entry.EntropySource)
	assert.Equal(t, "bob", entry.RequesterID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, entry.ParticipantIDs)
	assert.Equal(t, []string{"alice", "bob", "carol"}, entry.LockedParticipantIDs)
	assert.Equal(t, 3, entry.TotalParticipants)

	stored := h.wallets.get(w.ID)
	assert.Equal(t, domain.WalletStatusSpinningCompleted, stored.Status)
	require.NotNil(t, stored.SelectedLoser)
	assert.Equal(t, entry.SelectedLoserID, stored.SelectedLoser.ParticipantID)
	require.Len(t, stored.SettlementAudit, 1)

	rec := h.splits.get("bill-spin")
	assert.Equal(t, domain.SplitStatusSettling, rec.Status)
	assert.Equal(t, entry.SelectedLoserID, rec.SelectedParticipantID)
}

func TestSpin_OnlyOnce(t *testing.T) {
	h := newHarness(t)
	w := lockedDegen(t, h, "bill-spin-twice")

	_, err := h.roulette.Spin(context.Background(), w.ID, "alice")
	require.NoError(t, err)

	_, err = h.roulette.Spin(context.Background(), w.ID, "alice")
	requireCode(t, err, "STATE_006")
}

func TestSpin_Preconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	fair := h.createFair(t, "bill-spin-fair")
	_, err := h.roulette.Spin(ctx, fair.ID, "alice")
	requireCode(t, err, "STATE_008")

	degen := h.createDegen(t, "bill-spin-early")
	h.fund(t, degen.ID, "alice", "30")
	_, err = h.roulette.Spin(ctx, degen.ID, "alice")
	requireCode(t, err, "STATE_007")

	_, err = h.roulette.Spin(ctx, degen.ID, "mallory")
	requireCode(t, err, "AUTH_002")
}

func TestSpin_RefusesWhileFundingUnconfirmed(t *testing.T) {
	h := newHarness(t)
	w := h.createDegen(t, "bill-spin-pending")
	h.fund(t, w.ID, "alice", "30")
	h.fund(t, w.ID, "bob", "30")
	h.ledger.setNextStatus(ports.TxStatusPending)
	h.fund(t, w.ID, "carol", "30")
	require.Equal(t, domain.WalletStatusLocked, h.wallets.get(w.ID).Status)

	_, err := h.roulette.Spin(context.Background(), w.ID, "alice")
	requireCode(t, err, "CONFIRM_002")
	assert.Nil(t, h.wallets.get(w.ID).SelectedLoser)
}

func TestSpin_ConcurrentSpinsSelectOnce(t *testing.T) {
	h := newHarness(t)
	w := lockedDegen(t, h, "bill-spin-race")

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := h.roulette.Spin(context.Background(), w.ID, "alice")
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 4; i++ {
		if err := <-errs; err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, h.wallets.get(w.ID).SettlementAudit, 1)
}

func TestVerifySelection(t *testing.T) {
	h := newHarness(t)
	w := lockedDegen(t, h, "bill-verify")

	_, err := h.roulette.VerifySelection(context.Background(), w.ID)
	requireCode(t, err, "NF_001")

	res, err := h.roulette.Spin(context.Background(), w.ID, "carol")
	require.NoError(t, err)

	v, err := h.roulette.VerifySelection(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, res.Entry.SelectedLoserID, v.RecomputedParticipantID)
	assert.Equal(t, res.Entry.Seed, v.Seed)

	tampered := ""
	for _, u := range others(res.Entry.SelectedLoserID) {
		tampered = u
	}
	h.wallets.edit(w.ID, func(w *domain.EscrowWallet) {
		w.SelectedLoser.ParticipantID = tampered
	})

	v, err = h.roulette.VerifySelection(context.Background(), w.ID)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, tampered, v.RecordedParticipantID)
	assert.Equal(t, res.Entry.SelectedLoserID, v.RecomputedParticipantID)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestSpin_EntropyFailure(t *testing.T) {
	h := newHarness(t)
	w := lockedDegen(t, h, "bill-spin-entropy")
	h.roulette.entropy = failingReader{}

	_, err := h.roulette.Spin(context.Background(), w.ID, "alice")
	requireCode(t, err, "SYS_001")
	assert.Equal(t, domain.WalletStatusLocked, h.wallets.get(w.ID).Status)
}
