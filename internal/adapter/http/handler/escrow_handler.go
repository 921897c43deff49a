package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"split-escrow/internal/adapter/http/dto"
	"split-escrow/internal/adapter/http/middleware"
	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const syncWarning = "bookkeeping store is out of date; it will be repaired by the next sync"

// EscrowHandler serves the escrow wallet lifecycle.
type EscrowHandler struct {
	creation ports.CreationService
	payments ports.PaymentProcessor
	roulette ports.RouletteSelector
	query    ports.QueryService
}

// NewEscrowHandler creates a new EscrowHandler.
func NewEscrowHandler(creation ports.CreationService, payments ports.PaymentProcessor, roulette ports.RouletteSelector, query ports.QueryService) *EscrowHandler {
	return &EscrowHandler{creation: creation, payments: payments, roulette: roulette, query: query}
}

// Create handles POST /api/v1/escrows.
func (h *EscrowHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.CreateEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	total, ok := parseAmount(c, "total_amount", req.TotalAmount)
	if !ok {
		return
	}
	participants := make([]ports.ParticipantInput, 0, len(req.Participants))
	for _, p := range req.Participants {
		owed, ok := parseAmount(c, "amount_owed", p.AmountOwed)
		if !ok {
			return
		}
		participants = append(participants, ports.ParticipantInput{
			UserID:        p.UserID,
			DisplayName:   p.DisplayName,
			PayoutAddress: p.PayoutAddress,
			AmountOwed:    owed,
		})
	}

	w, err := h.creation.CreateEscrowWallet(c.Request.Context(), ports.CreateEscrowRequest{
		BillID:       req.BillID,
		CreatorID:    caller,
		TotalAmount:  total,
		Currency:     req.Currency,
		Mode:         domain.SplitMode(req.Mode),
		Participants: participants,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWalletResponse(w))
}

// Get handles GET /api/v1/escrows/:id.
func (h *EscrowHandler) Get(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	w, err := h.query.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !canView(w, caller) {
		response.Error(c, apperror.ErrForbidden("Only the creator and participants can view this escrow"))
		return
	}

	response.OK(c, dto.NewWalletResponse(w))
}

// GetByBill handles GET /api/v1/bills/:billId/escrow.
func (h *EscrowHandler) GetByBill(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	w, err := h.query.GetWalletByBill(c.Request.Context(), c.Param("billId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !canView(w, caller) {
		response.Error(c, apperror.ErrForbidden("Only the creator and participants can view this escrow"))
		return
	}

	response.OK(c, dto.NewWalletResponse(w))
}

// Fund handles POST /api/v1/escrows/:id/fund. The caller funds their own
// share; with neither amount nor reference the outstanding share is sent.
func (h *EscrowHandler) Fund(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req dto.FundRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	var amount decimal.Decimal
	switch {
	case req.Amount != "":
		if amount, ok = parseAmount(c, "amount", req.Amount); !ok {
			return
		}
	case req.TransactionRef == "":
		w, err := h.query.GetWallet(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		p := w.Participant(caller)
		if p == nil {
			response.Error(c, apperror.ErrNotFound("participant"))
			return
		}
		amount = p.Remaining()
	}

	res, err := h.payments.Fund(c.Request.Context(), ports.FundRequest{
		WalletID:       id,
		ParticipantID:  caller,
		Amount:         amount,
		TransactionRef: req.TransactionRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if !res.Confirmed {
		status = http.StatusAccepted
	}
	respond(c, status, dto.NewFundResponse(res), res.SyncState)
}

// Extract handles POST /api/v1/escrows/:id/extract.
func (h *EscrowHandler) Extract(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req dto.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	res, err := h.payments.ExtractFunds(c.Request.Context(), ports.ExtractRequest{
		WalletID:    id,
		CallerID:    caller,
		Destination: req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTransfer(c, res)
}

// Spin handles POST /api/v1/escrows/:id/spin.
func (h *EscrowHandler) Spin(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	res, err := h.roulette.Spin(c.Request.Context(), id, caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewSpinResponse(res), res.SyncState)
}

// VerifySelection handles GET /api/v1/escrows/:id/selection/verify.
func (h *EscrowHandler) VerifySelection(c *gin.Context) {
	if _, ok := requireCaller(c); !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	v, err := h.roulette.VerifySelection(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// Payout handles POST /api/v1/escrows/:id/payout.
func (h *EscrowHandler) Payout(c *gin.Context) {
	h.payout(c, h.payments.PayoutSettlementTarget)
}

// Claim handles POST /api/v1/escrows/:id/claim.
func (h *EscrowHandler) Claim(c *gin.Context) {
	h.payout(c, h.payments.ClaimStake)
}

func (h *EscrowHandler) payout(c *gin.Context, run func(context.Context, ports.PayoutRequest) (*ports.PayoutResult, error)) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req dto.PayoutRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	res, err := run(c.Request.Context(), ports.PayoutRequest{
		WalletID:    id,
		CallerID:    caller,
		Destination: req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTransfer(c, res)
}

// Cancel handles POST /api/v1/escrows/:id/cancel.
func (h *EscrowHandler) Cancel(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req dto.CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	res, err := h.payments.CancelWallet(c.Request.Context(), ports.CancelRequest{
		WalletID: id,
		CallerID: caller,
		Reason:   req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, dto.CancelResponse{Wallet: dto.NewWalletResponse(res.Wallet), SyncState: res.SyncState}, res.SyncState)
}

func respondTransfer(c *gin.Context, res *ports.PayoutResult) {
	status := http.StatusOK
	if !res.Confirmed {
		status = http.StatusAccepted
	}
	respond(c, status, dto.NewTransferResponse(res), res.SyncState)
}

// respond renders a success, flagging it degraded when the bookkeeping
// store missed the write.
func respond(c *gin.Context, status int, data interface{}, sync ports.SyncState) {
	switch {
	case !sync.StatusSynced:
		response.Degraded(c, status, data, syncWarning)
	case status == http.StatusAccepted:
		response.Accepted(c, data)
	default:
		response.OK(c, data)
	}
}

func requireCaller(c *gin.Context) (string, bool) {
	caller := middleware.UserID(c)
	if caller == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return "", false
	}
	return caller, true
}

func walletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid escrow id"))
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

func canView(w *domain.EscrowWallet, userID string) bool {
	return w.CreatorID == userID || w.Participant(userID) != nil
}

// parseAmount writes a validation error when raw is not a ledger amount.
func parseAmount(c *gin.Context, field, raw string) (decimal.Decimal, bool) {
	amount, err := dto.ParseAmount(raw)
	if err != nil {
		response.Error(c, apperror.Validation(fmt.Sprintf("%s: %v", field, err)))
		return decimal.Zero, false
	}
	return amount, true
}
