package postgres

import (
	"context"
	"errors"
	"testing"

	"split-escrow/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCustodyRepo_StoreSealsSecret(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctrl := gomock.NewController(t)
	sealer := mocks.NewMockSecretSealer(ctrl)
	repo := NewCustodyRepo(mock, sealer)
	walletID := uuid.New()

	sealer.EXPECT().Seal(walletID.String(), "alice", "raw-key").Return("sealed-key", nil)
	mock.ExpectExec("INSERT INTO custody_keys").
		WithArgs(walletID, "alice", "sealed-key").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Store(context.Background(), walletID, "alice", "raw-key"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustodyRepo_StoreSealFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctrl := gomock.NewController(t)
	sealer := mocks.NewMockSecretSealer(ctrl)
	repo := NewCustodyRepo(mock, sealer)

	sealer.EXPECT().Seal(gomock.Any(), "alice", "raw-key").Return("", errors.New("bad key"))

	assert.Error(t, repo.Store(context.Background(), uuid.New(), "alice", "raw-key"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustodyRepo_Retrieve(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctrl := gomock.NewController(t)
	sealer := mocks.NewMockSecretSealer(ctrl)
	repo := NewCustodyRepo(mock, sealer)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT sealed_secret FROM custody_keys").
		WithArgs(walletID, "bob").
		WillReturnRows(pgxmock.NewRows([]string{"sealed_secret"}).AddRow("sealed-key"))
	sealer.EXPECT().Open(walletID.String(), "bob", "sealed-key").Return("raw-key", nil)

	secret, err := repo.Retrieve(context.Background(), walletID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "raw-key", secret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustodyRepo_RetrieveMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctrl := gomock.NewController(t)
	repo := NewCustodyRepo(mock, mocks.NewMockSecretSealer(ctrl))
	walletID := uuid.New()

	mock.ExpectQuery("SELECT sealed_secret FROM custody_keys").
		WithArgs(walletID, "carol").
		WillReturnRows(pgxmock.NewRows([]string{"sealed_secret"}))

	secret, err := repo.Retrieve(context.Background(), walletID, "carol")
	assert.NoError(t, err)
	assert.Empty(t, secret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustodyRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctrl := gomock.NewController(t)
	repo := NewCustodyRepo(mock, mocks.NewMockSecretSealer(ctrl))
	walletID := uuid.New()

	mock.ExpectExec("DELETE FROM custody_keys").
		WithArgs(walletID, "alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), walletID, "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
