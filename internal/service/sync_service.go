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
	"split-escrow/pkg/money"
	"split-escrow/pkg/retry"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// SyncServiceImpl implements ports.DataSynchronizer.
type SyncServiceImpl struct {
	wallets   ports.EscrowWalletRepository
	splits    ports.SplitRepository
	policy    retry.Policy
	tolerance decimal.Decimal
	group     singleflight.Group
	log       zerolog.Logger
}

// NewSyncService creates a new SyncServiceImpl.
func NewSyncService(
	wallets ports.EscrowWalletRepository,
	splits ports.SplitRepository,
	policy retry.Policy,
	tolerance decimal.Decimal,
	log zerolog.Logger,
) *SyncServiceImpl {
	return &SyncServiceImpl{
		wallets:   wallets,
		splits:    splits,
		policy:    policy,
		tolerance: tolerance,
		log:       log,
	}
}

// SyncWallet upserts the full bookkeeping record for w.
func (s *SyncServiceImpl) SyncWallet(ctx context.Context, w *domain.EscrowWallet) error {
	rec, err := domain.NewSplitRecord(w, time.Now().UTC())
	if err != nil {
		return apperror.InternalError(fmt.Errorf("project wallet: %w", err))
	}

	err = retry.Do(ctx, s.policy, func(attempt int) error {
		if err := s.splits.Upsert(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("bill_id", w.BillID).Int("attempt", attempt).Msg("bookkeeping upsert failed")
			return err
		}
		return nil
	})
	if err != nil {
		metrics.SyncFailuresTotal.WithLabelValues("wallet").Inc()
		s.log.Error().Err(err).
			Str("bill_id", w.BillID).
			Str("wallet_id", w.ID.String()).
			Str("status", string(w.Status)).
			Msg("bookkeeping store is out of date")
		return apperror.ErrSyncFailed(err)
	}
	return nil
}

// SyncParticipant writes one participant row. A missing row falls back to a
// full upsert.
func (s *SyncServiceImpl) SyncParticipant(ctx context.Context, w *domain.EscrowWallet, userID string) error {
	p := w.Participant(userID)
	if p == nil {
		return apperror.ErrNotFound("participant")
	}
	sp, err := domain.NewSplitParticipant(*p)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("project participant: %w", err))
	}

	update := ports.ParticipantStatusUpdate{
		SplitID:        w.BillID,
		UserID:         userID,
		Status:         sp.Status,
		AmountPaid:     sp.AmountPaid,
		TransactionRef: sp.TransactionRef,
	}

	err = retry.Do(ctx, s.policy, func(int) error {
		err := s.splits.UpdateParticipantStatus(ctx, update)
		if errors.Is(err, ports.ErrSplitNotFound) {
			return retry.Permanent(err)
		}
		return err
	})
	if errors.Is(err, ports.ErrSplitNotFound) {
		s.log.Warn().Str("bill_id", w.BillID).Str("user_id", userID).Msg("bookkeeping row missing, writing full record")
		return s.SyncWallet(ctx, w)
	}
	if err != nil {
		metrics.SyncFailuresTotal.WithLabelValues("participant").Inc()
		s.log.Error().Err(err).Str("bill_id", w.BillID).Str("user_id", userID).Msg("bookkeeping participant is out of date")
		return apperror.ErrSyncFailed(err)
	}
	return nil
}

// SyncBill re-projects the authoritative wallet for billID. Concurrent calls
// for the same bill share one in-flight write.
func (s *SyncServiceImpl) SyncBill(ctx context.Context, billID string) error {
	_, err, shared := s.group.Do(billID, func() (interface{}, error) {
		w, err := s.wallets.GetByBillID(ctx, billID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load wallet by bill: %w", err))
		}
		if w == nil {
			return nil, apperror.ErrNotFound("escrow wallet")
		}
		return nil, s.SyncWallet(ctx, w)
	})
	if shared {
		s.log.Debug().Str("bill_id", billID).Msg("bill sync shared with in-flight request")
	}
	return err
}

// CheckConsistency compares both stores for billID without writing anything.
func (s *SyncServiceImpl) CheckConsistency(ctx context.Context, billID string) (*ports.ConsistencyReport, error) {
	w, err := s.wallets.GetByBillID(ctx, billID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet by bill: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("escrow wallet")
	}

	rec, err := s.splits.GetByBillID(ctx, billID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load split: %w", err))
	}

	report := &ports.ConsistencyReport{
		BillID:    billID,
		WalletID:  w.ID,
		CheckedAt: time.Now().UTC(),
	}
	if rec == nil {
		report.Discrepancies = []ports.Discrepancy{{Field: "record", EscrowValue: "present", SplitValue: "missing"}}
	} else {
		report.Discrepancies = s.compare(w, rec)
	}
	report.Consistent = len(report.Discrepancies) == 0

	if !report.Consistent {
		s.log.Warn().Str("bill_id", billID).Int("discrepancies", len(report.Discrepancies)).Msg("stores disagree")
	}
	return report, nil
}

// RepairBill re-writes the bookkeeping record from the escrow store when the
// two disagree. Rows only present in the bookkeeping store are left alone.
func (s *SyncServiceImpl) RepairBill(ctx context.Context, billID string) (*ports.ConsistencyReport, error) {
	report, err := s.CheckConsistency(ctx, billID)
	if err != nil || report.Consistent {
		return report, err
	}
	if err := s.SyncBill(ctx, billID); err != nil {
		return report, err
	}

	after, err := s.CheckConsistency(ctx, billID)
	if err != nil {
		return nil, err
	}
	after.Repaired = true
	return after, nil
}

func (s *SyncServiceImpl) compare(w *domain.EscrowWallet, rec *domain.SplitRecord) []ports.Discrepancy {
	var out []ports.Discrepancy
	add := func(field, participantID, escrow, split string) {
		out = append(out, ports.Discrepancy{Field: field, ParticipantID: participantID, EscrowValue: escrow, SplitValue: split})
	}

	if want, err := domain.SplitStatusFor(w.Status); err != nil {
		add("status", "", string(w.Status), string(rec.Status))
	} else if rec.Status != want {
		add("status", "", string(want), string(rec.Status))
	}
	if rec.WalletID != w.ID {
		add("wallet_id", "", w.ID.String(), rec.WalletID.String())
	}
	if !money.WithinTolerance(w.TotalAmount, rec.TotalAmount, s.tolerance) {
		add("total_amount", "", w.TotalAmount.String(), rec.TotalAmount.String())
	}
	selected := ""
	if w.SelectedLoser != nil {
		selected = w.SelectedLoser.ParticipantID
	}
	if rec.SelectedParticipantID != selected {
		add("selected_participant_id", "", selected, rec.SelectedParticipantID)
	}

	for _, p := range w.Participants {
		sp := rec.Participant(p.UserID)
		if sp == nil {
			add("participant", p.UserID, "present", "missing")
			continue
		}
		if want, err := domain.SplitParticipantStatusFor(p.Status); err != nil || sp.Status != want {
			add("participant_status", p.UserID, string(want), string(sp.Status))
		}
		if !money.WithinTolerance(p.AmountPaid, sp.AmountPaid, s.tolerance) {
			add("amount_paid", p.UserID, p.AmountPaid.String(), sp.AmountPaid.String())
		}
		if !money.WithinTolerance(p.AmountOwed, sp.AmountOwed, s.tolerance) {
			add("amount_owed", p.UserID, p.AmountOwed.String(), sp.AmountOwed.String())
		}
	}
	for _, sp := range rec.Participants {
		if w.Participant(sp.UserID) == nil {
			add("participant", sp.UserID, "missing", "present")
		}
	}
	return out
}
