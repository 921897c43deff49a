package service

import (
	"context"
	"errors"
	"fmt"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultUpdateAttempts = 5

// errUnchanged tells walletStore.mutate that fn had nothing to write.
var errUnchanged = errors.New("wallet unchanged")

// walletStore wraps the repository with the read-modify-write loop shared by
// every service that mutates a wallet. Writes are compare-and-swap on the
// wallet version; a conflict re-reads and re-applies.
type walletStore struct {
	repo     ports.EscrowWalletRepository
	cache    ports.WalletCache
	attempts int
}

func newWalletStore(repo ports.EscrowWalletRepository, cache ports.WalletCache) walletStore {
	return walletStore{repo: repo, cache: cache, attempts: defaultUpdateAttempts}
}

// load always reads the authoritative store.
func (s walletStore) load(ctx context.Context, id uuid.UUID) (*domain.EscrowWallet, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("escrow wallet")
	}
	return w, nil
}

// mutate applies fn to a fresh copy of the wallet and writes it back.
func (s walletStore) mutate(ctx context.Context, id uuid.UUID, fn func(w *domain.EscrowWallet) error) (*domain.EscrowWallet, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		w, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(w); err != nil {
			if errors.Is(err, errUnchanged) {
				return w, nil
			}
			return nil, mapDomainError(err)
		}

		err = s.repo.Update(ctx, w)
		if err == nil {
			s.cache.Invalidate(w.ID.String(), w.BillID)
			return w, nil
		}
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
		}
	}
	return nil, apperror.ErrConcurrentModification(ports.ErrVersionConflict)
}

// mapDomainError turns domain rule violations into typed application errors.
func mapDomainError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrParticipantNotFound):
		return apperror.ErrNotFound("participant")
	case errors.Is(err, domain.ErrParticipantFunded):
		return apperror.ErrParticipantAlreadyFunded()
	case errors.Is(err, domain.ErrNonPositiveAmount):
		return apperror.ErrInvalidAmount()
	case errors.Is(err, domain.ErrOperationInProgress):
		return apperror.ErrOperationInProgress("operation on this wallet")
	case errors.Is(err, domain.ErrTransferUnresolved):
		return apperror.ErrTransferUnresolved()
	case errors.Is(err, domain.ErrWalletNotFundable),
		errors.Is(err, domain.ErrDuplicateTransaction),
		errors.Is(err, domain.ErrSettlementStarted),
		errors.Is(err, domain.ErrIntentNotFound),
		errors.Is(err, domain.ErrInvalidTransition):
		return apperror.StateConflict(err.Error())
	}
	return apperror.InternalError(err)
}

// syncStateOf reports a synchronizer outcome as a degraded-success marker.
func syncStateOf(err error) ports.SyncState {
	if err == nil {
		return ports.SyncState{StatusSynced: true}
	}
	return ports.SyncState{StatusSynced: false, SyncError: err.Error()}
}

// requireConfirmedFunding resolves optimistic fundings before a settlement
// decision and refuses while any remain unresolved.
func requireConfirmedFunding(ctx context.Context, store walletStore, reconciler ports.Reconciler, w *domain.EscrowWallet) (*domain.EscrowWallet, error) {
	if len(w.UnconfirmedFundings()) == 0 {
		return w, nil
	}
	if _, err := reconciler.ReconcileWallet(ctx, w.ID); err != nil {
		return nil, err
	}
	fresh, err := store.load(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	if len(fresh.UnconfirmedFundings()) > 0 {
		return nil, apperror.ErrAwaitingConfirmation()
	}
	return fresh, nil
}

var (
	errStillPending = errors.New("transaction still pending")
	errTxFailed     = errors.New("transaction failed on ledger")
)

// confirmer polls the ledger for a final transaction status.
type confirmer struct {
	ledger ports.LedgerGateway
	policy retry.Policy
	log    zerolog.Logger
}

// await returns confirmed or failed when the ledger settles within the
// polling budget and pending when it does not.
func (c confirmer) await(ctx context.Context, ref string) ports.TxStatus {
	status := ports.TxStatusPending
	_ = retry.Do(ctx, c.policy, func(attempt int) error {
		st, err := c.ledger.GetTransactionStatus(ctx, ref)
		if err != nil {
			c.log.Debug().Err(err).Str("transaction_ref", ref).Int("attempt", attempt).Msg("transaction status lookup failed")
			return err
		}
		status = st
		switch st {
		case ports.TxStatusConfirmed:
			return nil
		case ports.TxStatusFailed:
			return retry.Permanent(errTxFailed)
		default:
			return errStillPending
		}
	})
	return status
}

func recordTimeout(op string) {
	metrics.ConfirmationTimeoutsTotal.WithLabelValues(op).Inc()
}
