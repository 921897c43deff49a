package service

import (
	"context"
	"errors"
	"fmt"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/retry"

	"github.com/rs/zerolog"
)

// KeyCustodyServiceImpl implements ports.KeyCustodyGateway.
type KeyCustodyServiceImpl struct {
	store  ports.KeyCustodyStore
	policy retry.Policy
	log    zerolog.Logger
}

// NewKeyCustodyService creates a new KeyCustodyServiceImpl.
func NewKeyCustodyService(store ports.KeyCustodyStore, policy retry.Policy, log zerolog.Logger) *KeyCustodyServiceImpl {
	return &KeyCustodyServiceImpl{store: store, policy: policy, log: log}
}

// Holders returns the creator for fair and spend splits and every
// participant for degen splits.
func (s *KeyCustodyServiceImpl) Holders(w *domain.EscrowWallet) []string {
	if !w.Mode.IsDegen() {
		return []string{w.CreatorID}
	}
	seen := make(map[string]bool, len(w.Participants))
	holders := make([]string, 0, len(w.Participants))
	for _, p := range w.Participants {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			holders = append(holders, p.UserID)
		}
	}
	return holders
}

// Distribute stores the secret for every holder, retrying each write.
func (s *KeyCustodyServiceImpl) Distribute(ctx context.Context, w *domain.EscrowWallet, secret string) error {
	for _, holder := range s.Holders(w) {
		err := retry.Do(ctx, s.policy, func(attempt int) error {
			if err := s.store.Store(ctx, w.ID, holder, secret); err != nil {
				s.log.Warn().Err(err).
					Str("wallet_id", w.ID.String()).
					Str("holder_id", holder).
					Int("attempt", attempt).
					Msg("custody write failed")
				return err
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("store custody key for holder %s: %w", holder, err)
		}
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Int("holders", len(s.Holders(w))).
		Msg("custody keys distributed")
	return nil
}

// SecretFor returns the signing secret held for holderID.
func (s *KeyCustodyServiceImpl) SecretFor(ctx context.Context, w *domain.EscrowWallet, holderID string) (string, error) {
	if !contains(s.Holders(w), holderID) {
		return "", apperror.ErrForbidden("Caller does not hold a custody key for this wallet")
	}

	var secret string
	err := retry.Do(ctx, s.policy, func(int) error {
		v, err := s.store.Retrieve(ctx, w.ID, holderID)
		if err != nil {
			return err
		}
		secret = v
		return nil
	})
	if err != nil {
		return "", apperror.ErrCustodyUnavailable(fmt.Errorf("retrieve custody key: %w", err))
	}
	if secret == "" {
		return "", apperror.ErrCustodyUnavailable(errors.New("no custody key stored for holder"))
	}
	return secret, nil
}

// Revoke deletes every holder's copy. All deletes are attempted.
func (s *KeyCustodyServiceImpl) Revoke(ctx context.Context, w *domain.EscrowWallet) error {
	var errs []error
	for _, holder := range s.Holders(w) {
		err := retry.Do(ctx, s.policy, func(int) error {
			return s.store.Delete(ctx, w.ID, holder)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("delete custody key for holder %s: %w", holder, err))
		}
	}
	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
