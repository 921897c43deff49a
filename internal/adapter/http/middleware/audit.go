package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations after the handler has run.
// Routes are matched on their registered pattern, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		resourceID := c.Param("id")
		if resourceType == "bill" {
			resourceID = c.Param("billId")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       UserID(c),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch route {
	case "/api/v1/escrows":
		return domain.AuditActionCreateEscrow, "escrow_wallet"
	case "/api/v1/escrows/:id/fund":
		return domain.AuditActionFund, "escrow_wallet"
	case "/api/v1/escrows/:id/extract":
		return domain.AuditActionExtract, "escrow_wallet"
	case "/api/v1/escrows/:id/spin":
		return domain.AuditActionSpin, "escrow_wallet"
	case "/api/v1/escrows/:id/payout":
		return domain.AuditActionSettle, "escrow_wallet"
	case "/api/v1/escrows/:id/claim":
		return domain.AuditActionClaim, "escrow_wallet"
	case "/api/v1/escrows/:id/cancel":
		return domain.AuditActionCancel, "escrow_wallet"
	case "/api/v1/bills/:billId/sync":
		return domain.AuditActionSync, "bill"
	}
	return "", ""
}
