package handler

import (
	"net/http"

	"orghub/internal/middleware"
	"orghub/internal/service"
	"orghub/pkg/pagination"
	"orghub/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	group := router.Group("/api/orgs/:orgID/audit")
	group.Use(auth.RequireAuth(), auth.RequirePermission("audit:read"))
	{
		group.GET("", h.ListAuditLogs)
	}
}

// ListAuditLogs retrieves the organization's paginated audit trail
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        orgID  path      string  true   "Organization ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/orgs/{orgID}/audit [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	p := pagination.Parse(c)

	logs, total, err := h.auditService.ListByOrg(c.Request.Context(), orgID, p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}
