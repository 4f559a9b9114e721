package handler

import (
	"net/http"

	"orghub/internal/middleware"
	"orghub/internal/service"
	"orghub/pkg/pagination"
	"orghub/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	invService service.InvitationService
}

func NewInvitationHandler(invService service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invService: invService}
}

func (h *InvitationHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	orgInvites := router.Group("/api/orgs/:orgID/invitations")
	orgInvites.Use(auth.RequireAuth())
	{
		orgInvites.POST("", auth.RequirePermission("members:invite"), h.Issue)
		orgInvites.GET("", auth.RequirePermission("invitations:read"), h.ListByOrg)
	}

	// Accept/decline are keyed by token, not org; the caller only needs to be
	// authenticated so their identity and email can be verified.
	invites := router.Group("/api/invitations")
	invites.Use(auth.RequireAuth())
	{
		invites.POST("/accept", h.Accept)
		invites.POST("/decline", h.Decline)
	}
}

// Issue creates a pending invitation and returns it with its token
// @Summary      Issue invitation
// @Description  The token is returned once for out-of-band delivery; email sending is not part of this API.
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        orgID    path      string                          true  "Organization ID"
// @Param        payload  body      service.IssueInvitationRequest  true  "Invitation payload"
// @Success      201      {object}  response.Response{data=service.InvitationResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/invitations [post]
func (h *InvitationHandler) Issue(c *gin.Context) {
	var req service.IssueInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	orgID, _ := middleware.OrgID(c)
	inviterID, _ := middleware.UserID(c)

	inv, err := h.invService.Issue(c.Request.Context(), orgID, inviterID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, inv))
}

// ListByOrg returns the organization's invitations, newest first
// @Summary      List invitations
// @Tags         invitations
// @Produce      json
// @Param        orgID  path      string  true   "Organization ID"
// @Param        page   query     int     false  "Page"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  response.Response{data=[]service.InvitationResponse}
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/invitations [get]
func (h *InvitationHandler) ListByOrg(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	p := pagination.Parse(c)

	invs, total, err := h.invService.ListByOrg(c.Request.Context(), orgID, p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"invitations": invs,
		"total":       total,
		"page":        p.Page,
		"limit":       p.Limit,
	}))
}

// Accept resolves a pending invitation into a membership
// @Summary      Accept invitation
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AcceptInvitationRequest  true  "Token payload"
// @Success      200      {object}  response.Response{data=service.AcceptResult}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      410      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/invitations/accept [post]
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req service.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := middleware.UserID(c)
	email, _ := middleware.UserEmail(c)

	result, err := h.invService.Accept(c.Request.Context(), req.Token, userID, email)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Decline resolves a pending invitation to declined
// @Summary      Decline invitation
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DeclineInvitationRequest  true  "Token payload"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      410      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/invitations/decline [post]
func (h *InvitationHandler) Decline(c *gin.Context) {
	var req service.DeclineInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	email, _ := middleware.UserEmail(c)
	if err := h.invService.Decline(c.Request.Context(), req.Token, email); err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Invitation declined"}))
}
