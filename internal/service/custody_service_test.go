package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports/mocks"
	"split-escrow/pkg/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func custodyWallet(mode domain.SplitMode) *domain.EscrowWallet {
	return &domain.EscrowWallet{
		ID:        uuid.New(),
		CreatorID: "alice",
		Mode:      mode,
		Participants: []domain.Participant{
			{UserID: "alice"}, {UserID: "bob"}, {UserID: "carol"},
		},
	}
}

func newCustodyService(t *testing.T) (*KeyCustodyServiceImpl, *mocks.MockKeyCustodyStore) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockKeyCustodyStore(ctrl)
	policy := retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, Multiplier: 1}
	return NewKeyCustodyService(store, policy, newTestLogger()), store
}

func TestKeyCustody_Holders(t *testing.T) {
	svc, _ := newCustodyService(t)

	assert.Equal(t, []string{"alice"}, svc.Holders(custodyWallet(domain.SplitModeFair)))
	assert.Equal(t, []string{"alice"}, svc.Holders(custodyWallet(domain.SplitModeSpend)))
	assert.Equal(t, []string{"alice", "bob", "carol"}, svc.Holders(custodyWallet(domain.SplitModeDegen)))
}

func TestKeyCustody_DistributeRetriesTransientFailures(t *testing.T) {
	svc, store := newCustodyService(t)
	w := custodyWallet(domain.SplitModeFair)

	gomock.InOrder(
		store.EXPECT().Store(gomock.Any(), w.ID, "alice", "s3cret").Return(errors.New("timeout")),
		store.EXPECT().Store(gomock.Any(), w.ID, "alice", "s3cret").Return(nil),
	)

	require.NoError(t, svc.Distribute(context.Background(), w, "s3cret"))
}

func TestKeyCustody_DistributeGivesUp(t *testing.T) {
	svc, store := newCustodyService(t)
	w := custodyWallet(domain.SplitModeDegen)

	store.EXPECT().Store(gomock.Any(), w.ID, "alice", "s3cret").Return(nil)
	store.EXPECT().Store(gomock.Any(), w.ID, "bob", "s3cret").Return(errors.New("vault down")).Times(3)

	err := svc.Distribute(context.Background(), w, "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holder bob")
}

func TestKeyCustody_SecretFor(t *testing.T) {
	svc, store := newCustodyService(t)
	w := custodyWallet(domain.SplitModeFair)

	store.EXPECT().Retrieve(gomock.Any(), w.ID, "alice").Return("s3cret", nil)
	secret, err := svc.SecretFor(context.Background(), w, "alice")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	_, err = svc.SecretFor(context.Background(), w, "bob")
	requireCode(t, err, "AUTH_002")

	store.EXPECT().Retrieve(gomock.Any(), w.ID, "alice").Return("", nil)
	_, err = svc.SecretFor(context.Background(), w, "alice")
	requireCode(t, err, "LEDGER_002")
}

func TestKeyCustody_RevokeAttemptsEveryHolder(t *testing.T) {
	svc, store := newCustodyService(t)
	w := custodyWallet(domain.SplitModeDegen)

	store.EXPECT().Delete(gomock.Any(), w.ID, "alice").Return(nil)
	store.EXPECT().Delete(gomock.Any(), w.ID, "bob").Return(errors.New("vault down")).Times(3)
	store.EXPECT().Delete(gomock.Any(), w.ID, "carol").Return(nil)

	err := svc.Revoke(context.Background(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holder bob")
	assert.NotContains(t, err.Error(), "holder carol")
}
