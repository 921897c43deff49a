package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/tracing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// CreationServiceImpl implements ports.CreationService.
type CreationServiceImpl struct {
	wallets       ports.EscrowWalletRepository
	cache         ports.WalletCache
	custody       ports.KeyCustodyGateway
	sync          ports.DataSynchronizer
	keys          ports.KeyFactory
	addresses     ports.AddressLookup
	owedTolerance decimal.Decimal
	group         singleflight.Group
	log           zerolog.Logger
}

// NewCreationService creates a new CreationServiceImpl.
func NewCreationService(
	wallets ports.EscrowWalletRepository,
	cache ports.WalletCache,
	custody ports.KeyCustodyGateway,
	sync ports.DataSynchronizer,
	keys ports.KeyFactory,
	addresses ports.AddressLookup,
	owedTolerance decimal.Decimal,
	log zerolog.Logger,
) *CreationServiceImpl {
	return &CreationServiceImpl{
		wallets:       wallets,
		cache:         cache,
		custody:       custody,
		sync:          sync,
		keys:          keys,
		addresses:     addresses,
		owedTolerance: owedTolerance,
		log:           log,
	}
}

// CreateEscrowWallet allocates, persists, keys and mirrors a new wallet as
// one unit. Any failure after the wallet row exists is rolled back.
//
// Concurrent calls for the same (bill, mode) join the in-flight creation; the
// joiners get a conflict naming the wallet the leader created.
func (s *CreationServiceImpl) CreateEscrowWallet(ctx context.Context, req ports.CreateEscrowRequest) (*domain.EscrowWallet, error) {
	ctx, span := tracing.Start(ctx, "escrow.create", tracing.BillID(req.BillID), tracing.Mode(string(req.Mode)))
	defer span.End()

	if err := s.validate(req); err != nil {
		metrics.WalletsCreatedTotal.WithLabelValues(string(req.Mode), "invalid").Inc()
		return nil, err
	}

	leader := false
	v, err, _ := s.group.Do(req.BillID+"|"+string(req.Mode), func() (interface{}, error) {
		leader = true
		return s.create(ctx, req)
	})
	if err != nil {
		tracing.RecordError(span, err)
		metrics.WalletsCreatedTotal.WithLabelValues(string(req.Mode), "failed").Inc()
		return nil, err
	}

	w := v.(*domain.EscrowWallet)
	if !leader {
		metrics.WalletsCreatedTotal.WithLabelValues(string(req.Mode), "conflict").Inc()
		return nil, apperror.ErrWalletExistsForBill(w.ID.String())
	}

	metrics.WalletsCreatedTotal.WithLabelValues(string(req.Mode), "created").Inc()
	return w.Clone(), nil
}

func (s *CreationServiceImpl) validate(req ports.CreateEscrowRequest) error {
	if strings.TrimSpace(req.BillID) == "" {
		return apperror.Validation("bill_id is required")
	}
	if strings.TrimSpace(req.CreatorID) == "" {
		return apperror.Validation("creator_id is required")
	}
	if !req.Mode.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown split mode %q", req.Mode))
	}
	if !req.TotalAmount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if strings.TrimSpace(req.Currency) == "" {
		return apperror.Validation("currency is required")
	}
	if len(req.Participants) == 0 {
		return apperror.Validation("at least one participant is required")
	}
	if req.Mode.IsDegen() && len(req.Participants) < 2 {
		return apperror.Validation("degen splits need at least two participants")
	}

	seen := make(map[string]bool, len(req.Participants))
	for _, p := range req.Participants {
		if strings.TrimSpace(p.UserID) == "" {
			return apperror.Validation("participant user_id is required")
		}
		if seen[p.UserID] {
			return apperror.Validation(fmt.Sprintf("participant %s listed twice", p.UserID))
		}
		seen[p.UserID] = true
		if !p.AmountOwed.IsPositive() {
			return apperror.Validation(fmt.Sprintf("participant %s must owe a positive amount", p.UserID))
		}
	}
	return nil
}

func (s *CreationServiceImpl) create(ctx context.Context, req ports.CreateEscrowRequest) (*domain.EscrowWallet, error) {
	existing, err := s.wallets.GetByBillID(ctx, req.BillID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrWalletExistsForBill(existing.ID.String())
	}

	participants, err := s.resolveParticipants(ctx, req.Participants)
	if err != nil {
		return nil, err
	}

	address, secret, err := s.keys.NewKeypair()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("allocate keypair: %w", err))
	}

	w := domain.NewEscrowWallet(domain.NewEscrowWalletParams{
		BillID:        req.BillID,
		CreatorID:     req.CreatorID,
		Mode:          req.Mode,
		LedgerAddress: address,
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
		Participants:  participants,
		Now:           time.Now().UTC(),
	})
	if err := w.ValidateOwed(s.owedTolerance); err != nil {
		return nil, apperror.ErrOwedMismatch(err.Error())
	}

	if err := s.wallets.Create(ctx, w); err != nil {
		if errors.Is(err, ports.ErrWalletExistsForBill) {
			return nil, apperror.ErrWalletExistsForBill(req.BillID)
		}
		return nil, apperror.InternalError(fmt.Errorf("persist wallet: %w", err))
	}

	if err := s.custody.Distribute(ctx, w, secret); err != nil {
		return nil, s.rollback(ctx, w, fmt.Errorf("distribute custody keys: %w", err))
	}
	if err := s.sync.SyncWallet(ctx, w); err != nil {
		return nil, s.rollback(ctx, w, fmt.Errorf("sync bookkeeping store: %w", err))
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("bill_id", w.BillID).
		Str("mode", string(w.Mode)).
		Str("total", w.TotalAmount.String()).
		Int("participants", len(w.Participants)).
		Msg("escrow wallet created")

	return w, nil
}

// resolveParticipants fills in missing payout addresses and validates all of them.
func (s *CreationServiceImpl) resolveParticipants(ctx context.Context, in []ports.ParticipantInput) ([]domain.Participant, error) {
	out := make([]domain.Participant, len(in))
	for i, p := range in {
		address := strings.TrimSpace(p.PayoutAddress)
		if address == "" {
			resolved, err := s.addresses.GetAddress(ctx, p.UserID)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("look up address for %s: %w", p.UserID, err))
			}
			if resolved == "" {
				return nil, apperror.Validation(fmt.Sprintf("participant %s has no ledger address", p.UserID))
			}
			address = resolved
		}
		if !s.keys.ValidAddress(address) {
			return nil, apperror.ErrInvalidAddress(address)
		}
		out[i] = domain.Participant{
			UserID:        p.UserID,
			DisplayName:   p.DisplayName,
			PayoutAddress: address,
			AmountOwed:    p.AmountOwed,
		}
	}
	return out, nil
}

// rollback undoes a partially created wallet. When the undo itself fails the
// wallet is parked as cancelled with the reason so an operator can finish it.
func (s *CreationServiceImpl) rollback(ctx context.Context, w *domain.EscrowWallet, cause error) error {
	ctx = context.WithoutCancel(ctx)
	defer s.cache.Invalidate(w.ID.String(), w.BillID)

	log := s.log.With().Str("wallet_id", w.ID.String()).Str("bill_id", w.BillID).Logger()

	revokeErr := s.custody.Revoke(ctx, w)
	if revokeErr == nil {
		deleteErr := s.wallets.Delete(ctx, w.ID)
		if deleteErr == nil {
			log.Warn().Err(cause).Msg("escrow creation rolled back")
			return apperror.ErrCreationRolledBack(cause)
		}
		revokeErr = fmt.Errorf("delete wallet: %w", deleteErr)
	}

	reason := fmt.Sprintf("creation rollback incomplete: %v (cause: %v)", revokeErr, cause)
	if err := w.Cancel(reason, time.Now().UTC()); err == nil {
		if err := s.wallets.Update(ctx, w); err != nil {
			log.Error().Err(err).Str("reason", reason).Msg("could not park wallet as cancelled; manual intervention required")
			return apperror.ErrCreationRolledBack(cause)
		}
	}
	log.Error().Str("reason", reason).Msg("escrow creation failed; wallet parked as cancelled")
	return apperror.ErrCreationRolledBack(cause)
}
