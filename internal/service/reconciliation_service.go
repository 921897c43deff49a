package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultReconcileBatch = 50

// ReconciliationServiceImpl implements ports.Reconciler.
type ReconciliationServiceImpl struct {
	store  walletStore
	ledger ports.LedgerGateway
	sync   ports.DataSynchronizer
	batch  int
	log    zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(
	wallets ports.EscrowWalletRepository,
	cache ports.WalletCache,
	ledger ports.LedgerGateway,
	sync ports.DataSynchronizer,
	batch int,
	log zerolog.Logger,
) *ReconciliationServiceImpl {
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ReconciliationServiceImpl{
		store:  newWalletStore(wallets, cache),
		ledger: ledger,
		sync:   sync,
		batch:  batch,
		log:    log,
	}
}

// ReconcileWallet asks the ledger about every optimistic write and every
// submitted transfer intent on the wallet. Settled writes are confirmed and
// settled intents recorded; failed ones are reverted or dropped.
func (s *ReconciliationServiceImpl) ReconcileWallet(ctx context.Context, walletID uuid.UUID) (*ports.ReconcileReport, error) {
	w, err := s.store.load(ctx, walletID)
	if err != nil {
		return nil, err
	}

	statuses := s.lookup(ctx, w)
	report := &ports.ReconcileReport{WalletID: walletID, SyncState: ports.SyncState{StatusSynced: true}}

	changed := false
	if len(statuses) > 0 {
		w, err = s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
			report.Confirmed, report.Reverted, report.Pending = nil, nil, nil
			s.apply(w, statuses, report)
			if len(report.Confirmed) == 0 && len(report.Reverted) == 0 {
				return errUnchanged
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		changed = len(report.Confirmed) > 0 || len(report.Reverted) > 0
	}

	closed, ok, err := s.CloseIfDrained(ctx, walletID)
	if err != nil {
		s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("close check failed")
	} else if ok {
		w = closed
		report.Closed = true
		changed = true
	}

	for range report.Confirmed {
		metrics.ReconciledTotal.WithLabelValues("confirmed").Inc()
	}
	for range report.Reverted {
		metrics.ReconciledTotal.WithLabelValues("reverted").Inc()
	}
	if report.Closed {
		metrics.ReconciledTotal.WithLabelValues("closed").Inc()
	}

	if changed {
		report.SyncState = syncStateOf(s.sync.SyncWallet(ctx, w))
		s.log.Info().
			Str("wallet_id", walletID.String()).
			Strs("confirmed", report.Confirmed).
			Strs("reverted", report.Reverted).
			Strs("pending", report.Pending).
			Bool("closed", report.Closed).
			Msg("wallet reconciled")
	}
	return report, nil
}

// lookup fetches the current ledger status of each unconfirmed reference.
// Lookup errors leave the reference pending for the next pass.
func (s *ReconciliationServiceImpl) lookup(ctx context.Context, w *domain.EscrowWallet) map[string]ports.TxStatus {
	refs := w.UnconfirmedPayouts()
	for _, f := range w.UnconfirmedFundings() {
		refs = append(refs, f.TransactionRef)
	}
	refs = append(refs, w.SubmittedIntentRefs()...)
	for _, it := range w.Intents {
		if it.TransactionRef == "" {
			s.log.Warn().
				Str("wallet_id", w.ID.String()).
				Str("intent", it.Key).
				Str("participant_id", it.ParticipantID).
				Str("amount", it.Amount.String()).
				Time("created_at", it.CreatedAt).
				Msg("transfer intent has no ledger reference; manual resolution required")
		}
	}
	if len(refs) == 0 {
		return nil
	}

	statuses := make(map[string]ports.TxStatus, len(refs))
	for _, ref := range refs {
		st, err := s.ledger.GetTransactionStatus(ctx, ref)
		if err != nil {
			s.log.Warn().Err(err).Str("wallet_id", w.ID.String()).Str("transaction_ref", ref).Msg("status lookup failed")
			st = ports.TxStatusPending
		}
		statuses[ref] = st
	}
	return statuses
}

// apply folds ledger statuses into w. Payouts go first so that a reverted
// payout never leaves a participant pointing at a missing record. Intents go
// last; a completed funding intent is recorded as already confirmed.
func (s *ReconciliationServiceImpl) apply(w *domain.EscrowWallet, statuses map[string]ports.TxStatus, report *ports.ReconcileReport) {
	now := time.Now().UTC()

	for _, ref := range w.UnconfirmedPayouts() {
		switch statuses[ref] {
		case ports.TxStatusConfirmed:
			if w.ConfirmPayout(ref, now) {
				report.Confirmed = append(report.Confirmed, ref)
			}
		case ports.TxStatusFailed:
			if err := w.RevertPayout(ref, now); err == nil {
				report.Reverted = append(report.Reverted, ref)
			}
		default:
			report.Pending = append(report.Pending, ref)
		}
	}

	for _, f := range w.UnconfirmedFundings() {
		switch statuses[f.TransactionRef] {
		case ports.TxStatusConfirmed:
			if w.ConfirmFunding(f.ParticipantID, f.TransactionRef, now) {
				report.Confirmed = append(report.Confirmed, f.TransactionRef)
			}
		case ports.TxStatusFailed:
			if err := w.RevertFunding(f.ParticipantID, f.TransactionRef, now); err != nil {
				// Settlement has moved on; the funding stays flagged for an operator.
				s.log.Error().Err(err).
					Str("wallet_id", w.ID.String()).
					Str("participant_id", f.ParticipantID).
					Str("transaction_ref", f.TransactionRef).
					Msg("failed funding cannot be reverted")
				report.Pending = append(report.Pending, f.TransactionRef)
				continue
			}
			report.Reverted = append(report.Reverted, f.TransactionRef)
		default:
			report.Pending = append(report.Pending, f.TransactionRef)
		}
	}
	s.applyIntents(w, statuses, report, now)
}

func (s *ReconciliationServiceImpl) applyIntents(w *domain.EscrowWallet, statuses map[string]ports.TxStatus, report *ports.ReconcileReport, now time.Time) {
	for _, ref := range w.SubmittedIntentRefs() {
		switch statuses[ref] {
		case ports.TxStatusConfirmed:
			if err := w.CompleteIntent(ref, now); err != nil {
				s.log.Error().Err(err).
					Str("wallet_id", w.ID.String()).
					Str("transaction_ref", ref).
					Msg("confirmed transfer intent cannot be recorded")
				report.Pending = append(report.Pending, ref)
				continue
			}
			report.Confirmed = append(report.Confirmed, ref)
		case ports.TxStatusFailed:
			if err := w.AbandonIntent(ref, now); err != nil {
				report.Pending = append(report.Pending, ref)
				continue
			}
			report.Reverted = append(report.Reverted, ref)
		default:
			report.Pending = append(report.Pending, ref)
		}
	}
}

// CloseIfDrained closes a settled degen wallet once every payout is
// confirmed and the ledger balance is zero. It does not sync; callers do.
func (s *ReconciliationServiceImpl) CloseIfDrained(ctx context.Context, walletID uuid.UUID) (*domain.EscrowWallet, bool, error) {
	w, err := s.store.load(ctx, walletID)
	if err != nil {
		return nil, false, err
	}
	if !closable(w) {
		return w, false, nil
	}

	balance, err := s.ledger.GetBalance(ctx, w.LedgerAddress, w.Currency)
	if err != nil {
		return w, false, apperror.ErrLedgerExecution(fmt.Errorf("read escrow balance: %w", err))
	}
	if balance.IsPositive() {
		s.log.Debug().Str("wallet_id", w.ID.String()).Str("balance", balance.String()).Msg("escrow not drained yet")
		return w, false, nil
	}

	closedNow := false
	w, err = s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		if !closable(w) {
			return errUnchanged
		}
		closedNow = true
		return w.TransitionTo(domain.WalletStatusClosed, time.Now().UTC())
	})
	if err != nil {
		return nil, false, err
	}
	if closedNow {
		s.log.Info().Str("wallet_id", w.ID.String()).Str("bill_id", w.BillID).Msg("escrow wallet closed")
	}
	return w, closedNow, nil
}

func closable(w *domain.EscrowWallet) bool {
	return w.Status == domain.WalletStatusSpinningCompleted &&
		w.AllInStatus(domain.ParticipantStatusPaid) &&
		len(w.UnconfirmedPayouts()) == 0 &&
		len(w.Intents) == 0
}

// RunOnce reconciles one batch of wallets and returns how many were visited
// without error.
func (s *ReconciliationServiceImpl) RunOnce(ctx context.Context) (int, error) {
	wallets, err := s.store.repo.ListNeedingReconciliation(ctx, s.batch)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list wallets to reconcile: %w", err))
	}

	var errs []error
	done := 0
	for _, w := range wallets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.ReconcileWallet(ctx, w.ID); err != nil {
			s.log.Error().Err(err).Str("wallet_id", w.ID.String()).Msg("reconciliation failed")
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// Run calls RunOnce every interval until ctx is cancelled.
func (s *ReconciliationServiceImpl) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Int("batch", s.batch).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			n, err := s.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn().Err(err).Int("reconciled", n).Msg("reconcile pass finished with errors")
			} else if n > 0 {
				s.log.Debug().Int("reconciled", n).Msg("reconcile pass finished")
			}
		}
	}
}
