package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/money"
	"split-escrow/pkg/retry"
	"split-escrow/pkg/tracing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultFundRefTTL     = 24 * time.Hour
	defaultReservationTTL = 10 * time.Minute
)

// PaymentConfig tunes the payment processor.
type PaymentConfig struct {
	// FundRefTTL is how long a funding result stays in the idempotency cache.
	FundRefTTL time.Duration
	// ReservationTTL is how long an in-flight transfer blocks others.
	ReservationTTL time.Duration
	// Confirmation is the ledger status polling budget.
	Confirmation retry.Policy
}

// PaymentServiceImpl implements ports.PaymentProcessor.
type PaymentServiceImpl struct {
	store      walletStore
	ledger     ports.LedgerGateway
	custody    ports.KeyCustodyGateway
	sync       ports.DataSynchronizer
	reconciler ports.Reconciler
	keys       ports.KeyFactory
	idempCache ports.IdempotencyCache
	confirmer  confirmer
	cfg        PaymentConfig
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	wallets ports.EscrowWalletRepository,
	cache ports.WalletCache,
	ledger ports.LedgerGateway,
	custody ports.KeyCustodyGateway,
	sync ports.DataSynchronizer,
	reconciler ports.Reconciler,
	keys ports.KeyFactory,
	idempCache ports.IdempotencyCache,
	cfg PaymentConfig,
	log zerolog.Logger,
) *PaymentServiceImpl {
	if cfg.FundRefTTL <= 0 {
		cfg.FundRefTTL = defaultFundRefTTL
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = defaultReservationTTL
	}
	if cfg.Confirmation.Attempts <= 0 {
		cfg.Confirmation = retry.DefaultPolicy()
	}
	return &PaymentServiceImpl{
		store:      newWalletStore(wallets, cache),
		ledger:     ledger,
		custody:    custody,
		sync:       sync,
		reconciler: reconciler,
		keys:       keys,
		idempCache: idempCache,
		confirmer:  confirmer{ledger: ledger, policy: cfg.Confirmation, log: log},
		cfg:        cfg,
		log:        log,
	}
}

// ---- Funding ----

// Fund credits a participant. Without a TransactionRef the processor moves
// the funds itself; with one it verifies and records a transfer the
// participant already broadcast.
func (s *PaymentServiceImpl) Fund(ctx context.Context, req ports.FundRequest) (*ports.FundResult, error) {
	ctx, span := tracing.Start(ctx, "escrow.fund",
		tracing.WalletID(req.WalletID.String()), tracing.ParticipantID(req.ParticipantID))
	defer span.End()

	res, err := s.fund(ctx, req)
	if err != nil {
		tracing.RecordError(span, err)
	}
	return res, err
}

func (s *PaymentServiceImpl) fund(ctx context.Context, req ports.FundRequest) (*ports.FundResult, error) {
	if req.WalletID == uuid.Nil {
		return nil, apperror.Validation("wallet_id is required")
	}
	if strings.TrimSpace(req.ParticipantID) == "" {
		return nil, apperror.Validation("participant_id is required")
	}
	if req.TransactionRef == "" && !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	// Layer 1: idempotency cache
	if req.TransactionRef != "" {
		if res := s.cachedFunding(ctx, req.WalletID, req.TransactionRef); res != nil {
			return res, nil
		}
	}

	w, err := s.store.load(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	p := w.Participant(req.ParticipantID)
	if p == nil {
		return nil, apperror.ErrNotFound("participant")
	}

	// Layer 2: the wallet document itself
	if p.HasTransaction(req.TransactionRef) {
		return duplicateFunding(w, p.UserID, req.TransactionRef), nil
	}
	if err := checkFundable(w, p); err != nil {
		return nil, err
	}

	if req.TransactionRef != "" {
		return s.recordExternalFunding(ctx, w, p, req)
	}
	if err := s.transferBlocked(w, domain.FundingReservation(p.UserID), p.UserID); err != nil {
		return nil, err
	}
	return s.executeFunding(ctx, w, p, req)
}

func checkFundable(w *domain.EscrowWallet, p *domain.Participant) error {
	if w.Status != domain.WalletStatusActive {
		return apperror.ErrInvalidWalletState(string(w.Status))
	}
	if p.Status == domain.ParticipantStatusLocked || p.Status == domain.ParticipantStatusPaid || p.IsFullyFunded() {
		return apperror.ErrParticipantAlreadyFunded()
	}
	return nil
}

// executeFunding moves the participant's share into the escrow. The
// transfer is announced as a wallet intent before it is submitted, so a
// transfer that succeeds but cannot be recorded stays visible to the
// reconciler and blocks a second attempt.
func (s *PaymentServiceImpl) executeFunding(ctx context.Context, w *domain.EscrowWallet, p *domain.Participant, req ports.FundRequest) (*ports.FundResult, error) {
	userID := p.UserID
	key := domain.FundingReservation(userID)
	var amount decimal.Decimal

	w, err := s.store.mutate(ctx, w.ID, func(w *domain.EscrowWallet) error {
		p := w.Participant(userID)
		if p == nil {
			return domain.ErrParticipantNotFound
		}
		if err := checkFundable(w, p); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := w.Reserve(key, now, s.cfg.ReservationTTL); err != nil {
			return err
		}
		if w.BlockingIntent(userID) != nil {
			return domain.ErrTransferUnresolved
		}
		// sized on the reserved wallet, not the snapshot read before it
		amount = money.Min(money.Normalize(req.Amount), p.Remaining())
		return w.AddIntent(domain.TransferIntent{
			Key:           key,
			Kind:          domain.IntentFunding,
			ParticipantID: userID,
			Destination:   w.LedgerAddress,
			Amount:        amount,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	p = w.Participant(userID)

	balance, err := s.ledger.GetBalance(ctx, p.PayoutAddress, w.Currency)
	if err != nil {
		s.log.Warn().Err(err).Str("participant_id", userID).Msg("participant balance check failed, attempting transfer anyway")
	} else if balance.LessThan(amount) {
		s.release(ctx, w.ID, key)
		return nil, apperror.ErrInsufficientFunds()
	}

	ref, err := s.ledger.Transfer(ctx, ports.TransferRequest{
		From:     p.PayoutAddress,
		To:       w.LedgerAddress,
		Amount:   amount,
		Currency: w.Currency,
		Memo:     "fund:" + w.BillID,
	})
	if err != nil {
		metrics.LedgerTransfersTotal.WithLabelValues("fund", "failed").Inc()
		s.markFailed(ctx, w.ID, userID, key)
		return nil, apperror.ErrLedgerExecution(err)
	}

	// The transfer is out; finish recording it even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	s.attachRef(ctx, w.ID, key, ref)

	confirmed := false
	switch s.confirmer.await(ctx, ref) {
	case ports.TxStatusFailed:
		metrics.LedgerTransfersTotal.WithLabelValues("fund", "failed").Inc()
		s.markFailed(ctx, w.ID, userID, key)
		return nil, apperror.ErrTransactionFailed(ref)
	case ports.TxStatusConfirmed:
		confirmed = true
		metrics.LedgerTransfersTotal.WithLabelValues("fund", "confirmed").Inc()
	default:
		recordTimeout("fund")
		metrics.LedgerTransfersTotal.WithLabelValues("fund", "pending").Inc()
		s.log.Warn().Str("wallet_id", w.ID.String()).Str("transaction_ref", ref).
			Msg("funding not confirmed in time, recording optimistically")
	}

	res, err := s.recordFunding(ctx, w.ID, userID, amount, ref, confirmed, key)
	if err != nil {
		s.park(ctx, w.ID, key)
		s.log.Error().Err(err).
			Str("wallet_id", w.ID.String()).
			Str("participant_id", userID).
			Str("transaction_ref", ref).
			Str("amount", amount.String()).
			Msg("funding moved on ledger but was not recorded; held for reconciliation")
		return nil, apperror.ErrPayoutNotRecorded(ref, err)
	}
	return res, nil
}

// recordExternalFunding credits a transfer the participant broadcast
// themselves, once the ledger confirms it moved funds into this escrow.
func (s *PaymentServiceImpl) recordExternalFunding(ctx context.Context, w *domain.EscrowWallet, p *domain.Participant, req ports.FundRequest) (*ports.FundResult, error) {
	ref := req.TransactionRef
	if err := checkExternalRef(w, p.UserID, ref); err != nil {
		return nil, err
	}

	switch s.confirmer.await(ctx, ref) {
	case ports.TxStatusFailed:
		return nil, apperror.ErrTransactionFailed(ref)
	case ports.TxStatusPending:
		recordTimeout("fund")
		return nil, apperror.ErrAwaitingConfirmation()
	}

	details, err := s.ledger.GetTransfer(ctx, ref)
	if err != nil {
		return nil, apperror.ErrLedgerExecution(fmt.Errorf("decode transfer %s: %w", ref, err))
	}
	if !strings.EqualFold(details.To, w.LedgerAddress) || !strings.EqualFold(details.From, p.PayoutAddress) {
		return nil, apperror.Validation("Transaction does not move funds from the participant to this escrow")
	}
	if details.Currency != "" && !strings.EqualFold(details.Currency, w.Currency) {
		return nil, apperror.Validation(fmt.Sprintf("Transaction moved %s, escrow holds %s", details.Currency, w.Currency))
	}
	if !details.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	return s.recordFunding(ctx, w.ID, p.UserID, details.Amount, ref, true, "")
}

// checkExternalRef refuses a client-supplied reference while a processor
// transfer for the same participant is unresolved, unless the reference is
// that very transfer.
func checkExternalRef(w *domain.EscrowWallet, userID, ref string) error {
	it := w.BlockingIntent(userID)
	if it == nil || (it.IsFunding() && it.TransactionRef == ref) {
		return nil
	}
	return apperror.ErrTransferUnresolved()
}

// recordFunding applies the funding, then mirrors and caches the outcome.
func (s *PaymentServiceImpl) recordFunding(ctx context.Context, walletID uuid.UUID, userID string, amount decimal.Decimal, ref string, confirmed bool, reservation string) (*ports.FundResult, error) {
	var applied decimal.Decimal
	duplicate := false

	w, err := s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		key := reservation
		if key == "" {
			if err := checkExternalRef(w, userID, ref); err != nil {
				return err
			}
			// a client resubmitting the processor's own transfer settles it
			if it := w.IntentByRef(ref); it != nil {
				key = it.Key
			}
		}
		if key != "" {
			settleIntent(w, key, ref)
		}
		duplicate = false
		a, err := w.ApplyFunding(userID, amount, ref, confirmed, time.Now().UTC())
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			duplicate = true
			if key == "" {
				return errUnchanged
			}
			return nil
		}
		applied = a
		return err
	})
	if err != nil {
		return nil, err
	}
	if duplicate {
		return duplicateFunding(w, userID, ref), nil
	}

	var syncErr error
	if w.Status == domain.WalletStatusLocked {
		syncErr = s.sync.SyncWallet(ctx, w)
	} else {
		syncErr = s.sync.SyncParticipant(ctx, w, userID)
	}

	res := &ports.FundResult{
		Wallet:         w,
		ParticipantID:  userID,
		TransactionRef: ref,
		AmountApplied:  applied,
		Confirmed:      confirmed,
		SyncState:      syncStateOf(syncErr),
	}
	// an optimistic funding may still be reverted by reconciliation
	if confirmed {
		s.cacheFunding(ctx, walletID, ref, res)
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("bill_id", w.BillID).
		Str("participant_id", userID).
		Str("tx_ref", ref).
		Str("amount", applied.String()).
		Bool("confirmed", confirmed).
		Str("wallet_status", string(w.Status)).
		Msg("funding recorded")
	return res, nil
}

func duplicateFunding(w *domain.EscrowWallet, userID, ref string) *ports.FundResult {
	res := &ports.FundResult{
		Wallet:         w,
		ParticipantID:  userID,
		TransactionRef: ref,
		AmountApplied:  decimal.Zero,
		Duplicate:      true,
		SyncState:      ports.SyncState{StatusSynced: true},
	}
	if p := w.Participant(userID); p != nil {
		for _, f := range p.Fundings {
			if f.TransactionRef == ref {
				res.Confirmed = f.Confirmed
			}
		}
	}
	return res
}

func (s *PaymentServiceImpl) cachedFunding(ctx context.Context, walletID uuid.UUID, ref string) *ports.FundResult {
	key := domain.BuildFundingKey(walletID, ref)
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to store")
		return nil
	}
	if cached == nil {
		return nil
	}
	var res ports.FundResult
	if err := json.Unmarshal(cached, &res); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable idempotency entry")
		return nil
	}
	res.Duplicate = true
	res.AmountApplied = decimal.Zero
	return &res
}

func (s *PaymentServiceImpl) cacheFunding(ctx context.Context, walletID uuid.UUID, ref string, res *ports.FundResult) {
	key := domain.BuildFundingKey(walletID, ref)
	data, err := json.Marshal(res)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal funding result")
		return
	}
	if err := s.idempCache.Set(ctx, key, data, s.cfg.FundRefTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache funding result in redis")
	}
}

// markFailed releases the funding reservation and intent and flags the
// participant.
func (s *PaymentServiceImpl) markFailed(ctx context.Context, walletID uuid.UUID, userID, reservation string) {
	ctx = context.WithoutCancel(ctx)
	w, err := s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		w.Release(reservation)
		w.DropIntent(reservation)
		return w.MarkFundingFailed(userID, time.Now().UTC())
	})
	if err != nil {
		s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Str("participant_id", userID).Msg("could not mark funding as failed")
		return
	}
	if err := s.sync.SyncParticipant(ctx, w, userID); err != nil {
		s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("failed funding not mirrored")
	}
}

// release drops a reservation and its intent for a transfer that was never
// submitted.
func (s *PaymentServiceImpl) release(ctx context.Context, walletID uuid.UUID, key string) {
	_, err := s.store.mutate(context.WithoutCancel(ctx), walletID, func(w *domain.EscrowWallet) error {
		_, reserved := w.Reservations[key]
		if !reserved && w.Intent(key) == nil {
			return errUnchanged
		}
		w.Release(key)
		w.DropIntent(key)
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Str("reservation", key).Msg("could not release unsubmitted transfer")
	}
}

// park releases the reservation of a transfer that moved but could not be
// recorded. Its intent stays, so the transfer is left to the reconciler and
// later attempts see it as unresolved rather than in flight.
func (s *PaymentServiceImpl) park(ctx context.Context, walletID uuid.UUID, key string) {
	_, err := s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		if _, ok := w.Reservations[key]; !ok || w.Intent(key) == nil {
			return errUnchanged
		}
		w.Release(key)
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Str("intent", key).Msg("could not park unrecorded transfer; its reservation will expire")
	}
}

// settleIntent clears the intent and reservation under key once the
// transfer ref is recorded. An intent carrying another reference belongs to
// a newer transfer and is left alone, as is the key when its intent was
// already settled by the reconciler.
func settleIntent(w *domain.EscrowWallet, key, ref string) {
	it := w.Intent(key)
	if it == nil || (it.TransactionRef != "" && it.TransactionRef != ref) {
		return
	}
	w.Release(key)
	w.DropIntent(key)
}

// attachRef stores the ledger reference on the transfer's intent so the
// reconciler can settle it if recording fails later.
func (s *PaymentServiceImpl) attachRef(ctx context.Context, walletID uuid.UUID, key, ref string) {
	_, err := s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		if !w.AttachIntentRef(key, ref) {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("wallet_id", walletID.String()).
			Str("intent", key).
			Str("transaction_ref", ref).
			Msg("transfer submitted but its reference could not be stored on the intent")
	}
}

// ---- Payouts ----

// ExtractFunds pays the full bill total of a fair or spend wallet to the
// creator's destination.
func (s *PaymentServiceImpl) ExtractFunds(ctx context.Context, req ports.ExtractRequest) (*ports.PayoutResult, error) {
	ctx, span := tracing.Start(ctx, "escrow.extract", tracing.WalletID(req.WalletID.String()))
	defer span.End()

	w, err := s.store.load(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if req.CallerID != w.CreatorID {
		return nil, apperror.ErrForbidden("Only the bill creator can withdraw escrow funds")
	}
	if w.Mode.IsDegen() {
		return nil, apperror.ErrWrongMode(string(w.Mode))
	}
	if err := checkExtractable(w); err != nil {
		return nil, err
	}
	if err := s.checkDestination(req.Destination); err != nil {
		return nil, err
	}

	w, err = requireConfirmedFunding(ctx, s.store, s.reconciler, w)
	if err != nil {
		return nil, err
	}
	if err := s.transferBlocked(w, domain.PayoutReservation, ""); err != nil {
		return nil, err
	}
	if !w.AllFullyFunded() {
		return nil, apperror.ErrEscrowNotFunded()
	}

	balance, err := s.ledger.GetBalance(ctx, w.LedgerAddress, w.Currency)
	if err != nil {
		s.log.Warn().Err(err).Str("wallet_id", w.ID.String()).Msg("escrow balance check failed, attempting withdrawal anyway")
	} else if balance.LessThan(w.TotalAmount) {
		return nil, apperror.ErrEscrowNotFunded()
	}

	res, err := s.executePayout(ctx, w, payoutPlan{
		kind:        domain.PayoutKindWithdrawal,
		holderID:    req.CallerID,
		destination: req.Destination,
		amount:      w.TotalAmount,
		check:       checkExtractable,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	res.SyncState = syncStateOf(s.sync.SyncWallet(ctx, res.Wallet))
	return res, nil
}

func checkExtractable(w *domain.EscrowWallet) error {
	if w.Status == domain.WalletStatusCompleted || w.PayoutOfKind(domain.PayoutKindWithdrawal) != nil {
		return apperror.ErrAlreadyPaidOut()
	}
	if w.Status != domain.WalletStatusActive && w.Status != domain.WalletStatusLocked {
		return apperror.ErrInvalidWalletState(string(w.Status))
	}
	return nil
}

// PayoutSettlementTarget sends the selected participant's stake to the
// bill's destination.
func (s *PaymentServiceImpl) PayoutSettlementTarget(ctx context.Context, req ports.PayoutRequest) (*ports.PayoutResult, error) {
	ctx, span := tracing.Start(ctx, "escrow.payout_target", tracing.WalletID(req.WalletID.String()))
	defer span.End()

	w, err := s.store.load(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if err := checkSettling(w); err != nil {
		return nil, err
	}
	target := w.SelectedLoser.ParticipantID
	if req.CallerID != target {
		return nil, apperror.ErrForbidden("Only the selected participant can pay out the settlement")
	}
	if err := s.checkDestination(req.Destination); err != nil {
		return nil, err
	}

	check := func(w *domain.EscrowWallet) error {
		if err := checkSettling(w); err != nil {
			return err
		}
		if w.PayoutOfKind(domain.PayoutKindSettlement) != nil {
			return apperror.ErrAlreadyPaidOut()
		}
		return checkStakeLocked(w, target)
	}
	if err := check(w); err != nil {
		return nil, err
	}

	res, err := s.executePayout(ctx, w, payoutPlan{
		kind:          domain.PayoutKindSettlement,
		holderID:      req.CallerID,
		participantID: target,
		destination:   req.Destination,
		amount:        degenTargetAmount(w),
		check:         check,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return s.finishDegenPayout(ctx, res), nil
}

// ClaimStake returns a non-selected participant's own stake.
func (s *PaymentServiceImpl) ClaimStake(ctx context.Context, req ports.PayoutRequest) (*ports.PayoutResult, error) {
	ctx, span := tracing.Start(ctx, "escrow.claim",
		tracing.WalletID(req.WalletID.String()), tracing.ParticipantID(req.CallerID))
	defer span.End()

	w, err := s.store.load(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if err := checkSettling(w); err != nil {
		return nil, err
	}
	p := w.Participant(req.CallerID)
	if p == nil {
		return nil, apperror.ErrForbidden("Caller is not a participant of this wallet")
	}
	if req.CallerID == w.SelectedLoser.ParticipantID {
		return nil, apperror.ErrForbidden("The selected participant cannot claim their stake back")
	}

	destination := req.Destination
	if destination == "" {
		destination = p.PayoutAddress
	}
	if err := s.checkDestination(destination); err != nil {
		return nil, err
	}

	userID := p.UserID
	check := func(w *domain.EscrowWallet) error {
		if err := checkSettling(w); err != nil {
			return err
		}
		for _, rec := range w.Payouts {
			if rec.Kind == domain.PayoutKindClaim && rec.ParticipantID == userID {
				return apperror.ErrAlreadyPaidOut()
			}
		}
		return checkStakeLocked(w, userID)
	}
	if err := check(w); err != nil {
		return nil, err
	}

	res, err := s.executePayout(ctx, w, payoutPlan{
		kind:          domain.PayoutKindClaim,
		holderID:      userID,
		participantID: userID,
		destination:   destination,
		amount:        p.AmountPaid,
		check:         check,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return s.finishDegenPayout(ctx, res), nil
}

// degenTargetAmount is what leaves the escrow for the settlement target:
// their own locked stake, which equals the bill total. It is deliberately not
// the whole pool. Every other participant takes their stake back through
// ClaimStake, so paying the pool here would spend those stakes twice.
func degenTargetAmount(w *domain.EscrowWallet) decimal.Decimal {
	if w.SelectedLoser == nil {
		return decimal.Zero
	}
	if p := w.Participant(w.SelectedLoser.ParticipantID); p != nil {
		return p.AmountPaid
	}
	return decimal.Zero
}

func checkSettling(w *domain.EscrowWallet) error {
	if !w.Mode.IsDegen() {
		return apperror.ErrWrongMode(string(w.Mode))
	}
	if w.Status != domain.WalletStatusSpinningCompleted {
		return apperror.ErrInvalidWalletState(string(w.Status))
	}
	if w.SelectedLoser == nil {
		return apperror.StateConflict("No settlement target has been selected")
	}
	return nil
}

func checkStakeLocked(w *domain.EscrowWallet, userID string) error {
	p := w.Participant(userID)
	if p == nil {
		return apperror.ErrNotFound("participant")
	}
	switch p.Status {
	case domain.ParticipantStatusLocked:
		return nil
	case domain.ParticipantStatusPaid:
		return apperror.ErrAlreadyPaidOut()
	default:
		return apperror.ErrParticipantsNotLocked()
	}
}

// finishDegenPayout closes a drained wallet and mirrors the result.
func (s *PaymentServiceImpl) finishDegenPayout(ctx context.Context, res *ports.PayoutResult) *ports.PayoutResult {
	if res.Confirmed {
		closed, ok, err := s.reconciler.CloseIfDrained(ctx, res.Wallet.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("wallet_id", res.Wallet.ID.String()).Msg("close check after payout failed")
		} else if ok {
			res.Wallet = closed
		}
	}
	res.SyncState = syncStateOf(s.sync.SyncWallet(ctx, res.Wallet))
	return res
}

func (s *PaymentServiceImpl) checkDestination(address string) error {
	if strings.TrimSpace(address) == "" {
		return apperror.Validation("destination is required")
	}
	if !s.keys.ValidAddress(address) {
		return apperror.ErrInvalidAddress(address)
	}
	return nil
}

// payoutPlan describes one transfer out of the escrow.
type payoutPlan struct {
	kind          domain.PayoutKind
	holderID      string
	participantID string
	destination   string
	amount        decimal.Decimal
	// check re-validates preconditions on the freshest wallet.
	check func(w *domain.EscrowWallet) error
}

// executePayout reserves the wallet, records the transfer intent, transfers,
// waits for confirmation and records the payout. The caller syncs.
func (s *PaymentServiceImpl) executePayout(ctx context.Context, w *domain.EscrowWallet, plan payoutPlan) (*ports.PayoutResult, error) {
	if !plan.amount.IsPositive() {
		return nil, apperror.ErrEscrowNotFunded()
	}
	if err := s.transferBlocked(w, domain.PayoutReservation, ""); err != nil {
		return nil, err
	}

	secret, err := s.custody.SecretFor(ctx, w, plan.holderID)
	if err != nil {
		return nil, err
	}

	key := domain.PayoutReservation
	w, err = s.store.mutate(ctx, w.ID, func(w *domain.EscrowWallet) error {
		if err := plan.check(w); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := w.Reserve(key, now, s.cfg.ReservationTTL); err != nil {
			return err
		}
		if w.BlockingIntent("") != nil {
			return domain.ErrTransferUnresolved
		}
		return w.AddIntent(domain.TransferIntent{
			Key:           key,
			Kind:          domain.IntentKind(plan.kind),
			ParticipantID: plan.participantID,
			Destination:   plan.destination,
			Amount:        plan.amount,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	op := string(plan.kind)
	ref, err := s.ledger.Transfer(ctx, ports.TransferRequest{
		From:         w.LedgerAddress,
		To:           plan.destination,
		Amount:       plan.amount,
		Currency:     w.Currency,
		Memo:         op + ":" + w.BillID,
		SignerSecret: secret,
	})
	if err != nil {
		metrics.LedgerTransfersTotal.WithLabelValues(op, "failed").Inc()
		s.release(ctx, w.ID, key)
		return nil, apperror.ErrLedgerExecution(err)
	}

	ctx = context.WithoutCancel(ctx)
	s.attachRef(ctx, w.ID, key, ref)

	confirmed := false
	switch s.confirmer.await(ctx, ref) {
	case ports.TxStatusFailed:
		metrics.LedgerTransfersTotal.WithLabelValues(op, "failed").Inc()
		s.release(ctx, w.ID, key)
		return nil, apperror.ErrTransactionFailed(ref)
	case ports.TxStatusConfirmed:
		confirmed = true
		metrics.LedgerTransfersTotal.WithLabelValues(op, "confirmed").Inc()
	default:
		recordTimeout(op)
		metrics.LedgerTransfersTotal.WithLabelValues(op, "pending").Inc()
		s.log.Warn().Str("wallet_id", w.ID.String()).Str("transaction_ref", ref).Str("kind", op).
			Msg("payout not confirmed in time, recording optimistically")
	}

	walletID := w.ID
	w, err = s.store.mutate(ctx, walletID, func(w *domain.EscrowWallet) error {
		if w.Payout(ref) != nil {
			// already settled by the reconciler
			return errUnchanged
		}
		now := time.Now().UTC()
		settleIntent(w, key, ref)
		rec := domain.PayoutRecord{
			Kind:           plan.kind,
			ParticipantID:  plan.participantID,
			Destination:    plan.destination,
			Amount:         plan.amount,
			TransactionRef: ref,
			Confirmed:      confirmed,
			RecordedAt:     now,
		}
		if confirmed {
			t := now
			rec.ConfirmedAt = &t
		}
		return w.ApplyPayout(rec)
	})
	if err != nil {
		s.park(ctx, walletID, key)
		s.log.Error().Err(err).
			Str("wallet_id", walletID.String()).
			Str("transaction_ref", ref).
			Str("kind", op).
			Str("amount", plan.amount.String()).
			Msg("payout moved on ledger but was not recorded; held for reconciliation")
		return nil, apperror.ErrPayoutNotRecorded(ref, err)
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("bill_id", w.BillID).
		Str("participant_id", plan.participantID).
		Str("tx_ref", ref).
		Str("amount", plan.amount.String()).
		Str("kind", op).
		Bool("confirmed", confirmed).
		Msg("payout recorded")

	res := &ports.PayoutResult{
		Wallet:         w,
		Kind:           plan.kind,
		TransactionRef: ref,
		Amount:         plan.amount,
		Destination:    plan.destination,
		Confirmed:      confirmed,
	}
	if rec := w.Payout(ref); rec != nil {
		res.Confirmed = rec.Confirmed
	}
	return res, nil
}

// ---- Cancellation ----

// CancelWallet cancels a wallet nobody has paid into yet.
func (s *PaymentServiceImpl) CancelWallet(ctx context.Context, req ports.CancelRequest) (*ports.CancelResult, error) {
	ctx, span := tracing.Start(ctx, "escrow.cancel", tracing.WalletID(req.WalletID.String()))
	defer span.End()

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "cancelled by creator"
	}

	check := func(w *domain.EscrowWallet) error {
		if req.CallerID != w.CreatorID {
			return apperror.ErrForbidden("Only the bill creator can cancel the escrow")
		}
		if w.Status.IsTerminal() {
			return apperror.ErrInvalidWalletState(string(w.Status))
		}
		if w.HasFunds() {
			return apperror.StateConflict("Escrow already holds participant funds and cannot be cancelled")
		}
		if len(w.Intents) > 0 {
			return apperror.ErrTransferUnresolved()
		}
		if s.hasActiveReservation(w, time.Now().UTC()) {
			return apperror.ErrOperationInProgress("transfer")
		}
		return nil
	}

	w, err := s.store.mutate(ctx, req.WalletID, func(w *domain.EscrowWallet) error {
		if err := check(w); err != nil {
			return err
		}
		return w.Cancel(reason, time.Now().UTC())
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if err := s.custody.Revoke(ctx, w); err != nil {
		s.log.Warn().Err(err).Str("wallet_id", w.ID.String()).Msg("custody revocation incomplete after cancel")
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("bill_id", w.BillID).
		Str("reason", reason).
		Msg("escrow wallet cancelled")

	return &ports.CancelResult{
		Wallet:    w,
		SyncState: syncStateOf(s.sync.SyncWallet(ctx, w)),
	}, nil
}

// transferBlocked reports why a transfer under key may not start yet: a live
// reservation means one is in flight, an intent without one means an earlier
// transfer still awaits reconciliation.
func (s *PaymentServiceImpl) transferBlocked(w *domain.EscrowWallet, key, participantID string) error {
	if at, ok := w.Reservations[key]; ok && time.Since(at) < s.cfg.ReservationTTL {
		return apperror.ErrOperationInProgress("transfer")
	}
	if w.BlockingIntent(participantID) != nil {
		return apperror.ErrTransferUnresolved()
	}
	return nil
}

func (s *PaymentServiceImpl) hasActiveReservation(w *domain.EscrowWallet, now time.Time) bool {
	for _, at := range w.Reservations {
		if now.Sub(at) < s.cfg.ReservationTTL {
			return true
		}
	}
	return false
}
