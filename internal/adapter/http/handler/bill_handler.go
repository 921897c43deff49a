package handler

import (
	"split-escrow/internal/core/ports"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/response"

	"github.com/gin-gonic/gin"
)

// BillHandler serves consistency checks between the escrow and bookkeeping stores.
type BillHandler struct {
	sync  ports.DataSynchronizer
	query ports.QueryService
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(sync ports.DataSynchronizer, query ports.QueryService) *BillHandler {
	return &BillHandler{sync: sync, query: query}
}

// Consistency handles GET /api/v1/bills/:billId/consistency.
func (h *BillHandler) Consistency(c *gin.Context) {
	billID, ok := h.authorize(c)
	if !ok {
		return
	}

	report, err := h.sync.CheckConsistency(c.Request.Context(), billID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Sync handles POST /api/v1/bills/:billId/sync. It re-pushes the escrow
// state into the bookkeeping store and reports what it changed.
func (h *BillHandler) Sync(c *gin.Context) {
	billID, ok := h.authorize(c)
	if !ok {
		return
	}

	report, err := h.sync.RepairBill(c.Request.Context(), billID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

func (h *BillHandler) authorize(c *gin.Context) (string, bool) {
	caller, ok := requireCaller(c)
	if !ok {
		return "", false
	}
	billID := c.Param("billId")

	w, err := h.query.GetWalletByBill(c.Request.Context(), billID)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	if !canView(w, caller) {
		response.Error(c, apperror.ErrForbidden("Only the creator and participants can inspect this bill"))
		return "", false
	}
	return billID, true
}
