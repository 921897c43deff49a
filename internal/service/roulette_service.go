package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/tracing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const seedBytes = 32

// RouletteServiceImpl implements ports.RouletteSelector.
type RouletteServiceImpl struct {
	store      walletStore
	sync       ports.DataSynchronizer
	reconciler ports.Reconciler
	entropy    io.Reader
	log        zerolog.Logger
}

// NewRouletteService creates a new RouletteServiceImpl drawing seeds from crypto/rand.
func NewRouletteService(
	wallets ports.EscrowWalletRepository,
	cache ports.WalletCache,
	sync ports.DataSynchronizer,
	reconciler ports.Reconciler,
	log zerolog.Logger,
) *RouletteServiceImpl {
	return &RouletteServiceImpl{
		store:      newWalletStore(wallets, cache),
		sync:       sync,
		reconciler: reconciler,
		entropy:    rand.Reader,
		log:        log,
	}
}

// Spin selects the settlement target of a fully locked degen wallet.
func (s *RouletteServiceImpl) Spin(ctx context.Context, walletID uuid.UUID, requesterID string) (*ports.SpinResult, error) {
	ctx, span := tracing.Start(ctx, "escrow.spin", tracing.WalletID(walletID.String()))
	defer span.End()

	w, err := s.store.load(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.Participant(requesterID) == nil && requesterID != w.CreatorID {
		return nil, apperror.ErrForbidden("Only participants of the bill can spin the roulette")
	}
	if err := checkSpinnable(w); err != nil {
		return nil, err
	}

	w, err = requireConfirmedFunding(ctx, s.store, s.reconciler, w)
	if err != nil {
		return nil, err
	}
	if err := checkSpinnable(w); err != nil {
		return nil, err
	}

	seed := make([]byte, seedBytes)
	if _, err := io.ReadFull(s.entropy, seed); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read entropy: %w", err))
	}

	ids := w.ParticipantIDs()
	idx, err := domain.SelectIndex(seed, w.ID.String(), len(ids))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("select participant: %w", err))
	}

	now := time.Now().UTC()
	entry := domain.AuditEntry{
		SelectedAt:           now,
		RequesterID:          requesterID,
		EntropySource:        domain.EntropySourceCryptoRand,
		Seed:                 hex.EncodeToString(seed),
		ParticipantIDs:       ids,
		LockedParticipantIDs: lockedIDs(w),
		SelectedLoserID:      ids[idx],
		TotalParticipants:    len(ids),
	}

	w, err = s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		if err := checkSpinnable(w); err != nil {
			return err
		}
		// The draw is only valid against the ordering it was made over.
		if !slices.Equal(w.ParticipantIDs(), ids) {
			return apperror.ErrConcurrentModification(errors.New("participants changed during spin"))
		}
		w.SelectedLoser = &domain.SelectedParticipant{
			ParticipantID: entry.SelectedLoserID,
			SelectedAt:    now,
			RequesterID:   requesterID,
			EntropySource: entry.EntropySource,
			Seed:          entry.Seed,
		}
		w.AppendAudit(entry)
		return w.TransitionTo(domain.WalletStatusSpinningCompleted, now)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	metrics.RouletteSpinsTotal.Inc()
	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("bill_id", w.BillID).
		Str("requester_id", requesterID).
		Str("selected_participant_id", entry.SelectedLoserID).
		Int("participants", entry.TotalParticipants).
		Msg("roulette spun")

	return &ports.SpinResult{
		Wallet:    w,
		Entry:     entry,
		SyncState: syncStateOf(s.sync.SyncWallet(ctx, w)),
	}, nil
}

// checkSpinnable enforces the roulette preconditions.
func checkSpinnable(w *domain.EscrowWallet) error {
	if !w.Mode.IsDegen() {
		return apperror.ErrWrongMode(string(w.Mode))
	}
	if w.SelectedLoser != nil || w.Status == domain.WalletStatusSpinningCompleted {
		return apperror.ErrRouletteAlreadySpun()
	}
	if w.Status != domain.WalletStatusLocked {
		if w.Status == domain.WalletStatusActive {
			return apperror.ErrParticipantsNotLocked()
		}
		return apperror.ErrInvalidWalletState(string(w.Status))
	}
	for i := range w.Participants {
		p := &w.Participants[i]
		if p.Status != domain.ParticipantStatusLocked || !p.IsFullyFunded() || p.LastTransactionRef == "" {
			return apperror.ErrParticipantsNotLocked()
		}
	}
	if len(w.Participants) == 0 {
		return apperror.ErrParticipantsNotLocked()
	}
	return nil
}

func lockedIDs(w *domain.EscrowWallet) []string {
	var ids []string
	for _, p := range w.Participants {
		if p.Status == domain.ParticipantStatusLocked {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// VerifySelection recomputes the recorded selection from its seed.
func (s *RouletteServiceImpl) VerifySelection(ctx context.Context, walletID uuid.UUID) (*ports.SelectionVerification, error) {
	w, err := s.store.load(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.SelectedLoser == nil || len(w.SettlementAudit) == 0 {
		return nil, apperror.ErrNotFound("roulette selection")
	}

	entry := w.SettlementAudit[len(w.SettlementAudit)-1]
	seed, err := hex.DecodeString(entry.Seed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode seed: %w", err))
	}

	v := &ports.SelectionVerification{
		WalletID:              w.ID,
		Seed:                  entry.Seed,
		RecordedParticipantID: w.SelectedLoser.ParticipantID,
	}
	idx, err := domain.SelectIndex(seed, w.ID.String(), len(entry.ParticipantIDs))
	if err != nil {
		return v, nil
	}
	v.RecomputedParticipantID = entry.ParticipantIDs[idx]
	v.Valid = v.RecomputedParticipantID == v.RecordedParticipantID &&
		entry.SelectedLoserID == v.RecordedParticipantID &&
		entry.Seed == w.SelectedLoser.Seed
	return v, nil
}
