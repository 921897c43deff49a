package service

import (
	"context"
	"fmt"
	"strings"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/pkg/apperror"

	"github.com/google/uuid"
)

// QueryServiceImpl implements ports.QueryService.
type QueryServiceImpl struct {
	wallets ports.EscrowWalletRepository
	cache   ports.WalletCache
}

// NewQueryService creates a new QueryServiceImpl.
func NewQueryService(wallets ports.EscrowWalletRepository, cache ports.WalletCache) *QueryServiceImpl {
	return &QueryServiceImpl{wallets: wallets, cache: cache}
}

// GetWallet reads through the cache.
func (s *QueryServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*domain.EscrowWallet, error) {
	if w, ok := s.cache.Get(id.String()); ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return w, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	w, err := s.wallets.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("escrow wallet")
	}
	s.cache.Put(w)
	return w, nil
}

// GetWalletByBill returns the live wallet of a bill.
func (s *QueryServiceImpl) GetWalletByBill(ctx context.Context, billID string) (*domain.EscrowWallet, error) {
	if strings.TrimSpace(billID) == "" {
		return nil, apperror.Validation("bill_id is required")
	}
	if w, ok := s.cache.GetByBill(billID); ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return w, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	w, err := s.wallets.GetByBillID(ctx, billID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet by bill: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("escrow wallet")
	}
	s.cache.Put(w)
	return w, nil
}
