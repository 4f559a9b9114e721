package handler

import (
	"net/http"

	"orghub/internal/middleware"
	"orghub/internal/service"
	"orghub/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrgHandler struct {
	orgService service.OrganizationService
}

func NewOrgHandler(orgService service.OrganizationService) *OrgHandler {
	return &OrgHandler{orgService: orgService}
}

func (h *OrgHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	orgs := router.Group("/api/orgs")
	orgs.Use(auth.RequireAuth())
	{
		orgs.POST("", h.CreateOrganization)
		orgs.GET("", h.ListMyOrganizations)
		orgs.GET("/:orgID", auth.RequirePermission("org:read"), h.GetOrganization)
		orgs.PUT("/:orgID", auth.RequirePermission("org:update"), h.UpdateOrganization)
	}

	// Slug resolution for org-scoped URLs; any authenticated user
	router.GET("/api/org-slugs/:slug", auth.RequireAuth(), h.ResolveSlug)
}

// CreateOrganization creates an organization and binds the caller as Owner
// @Summary      Create organization
// @Tags         orgs
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrganizationRequest  true  "Organization payload"
// @Success      201      {object}  response.Response{data=service.OrganizationResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs [post]
func (h *OrgHandler) CreateOrganization(c *gin.Context) {
	var req service.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := middleware.UserID(c)
	org, err := h.orgService.CreateOrganization(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, org))
}

// ListMyOrganizations returns the organizations the caller belongs to
// @Summary      List my organizations
// @Tags         orgs
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.OrganizationResponse}
// @Security     BearerAuth
// @Router       /api/orgs [get]
func (h *OrgHandler) ListMyOrganizations(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	orgs, err := h.orgService.ListUserOrganizations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orgs))
}

// GetOrganization returns a single organization
// @Summary      Get organization
// @Tags         orgs
// @Produce      json
// @Param        orgID  path      string  true  "Organization ID"
// @Success      200    {object}  response.Response{data=service.OrganizationResponse}
// @Failure      404    {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID} [get]
func (h *OrgHandler) GetOrganization(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	org, err := h.orgService.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// UpdateOrganization renames an organization
// @Summary      Update organization
// @Tags         orgs
// @Accept       json
// @Produce      json
// @Param        orgID    path      string                             true  "Organization ID"
// @Param        payload  body      service.UpdateOrganizationRequest  true  "Update payload"
// @Success      200      {object}  response.Response{data=service.OrganizationResponse}
// @Failure      403      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID} [put]
func (h *OrgHandler) UpdateOrganization(c *gin.Context) {
	var req service.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	orgID, _ := middleware.OrgID(c)
	operatorID, _ := middleware.UserID(c)
	org, err := h.orgService.UpdateOrganization(c.Request.Context(), orgID, operatorID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// ResolveSlug resolves an organization handle to its id
// @Summary      Resolve organization slug
// @Tags         orgs
// @Produce      json
// @Param        slug  path      string  true  "Organization slug"
// @Success      200   {object}  response.Response{data=service.OrganizationResponse}
// @Failure      404   {object}  response.Response
// @Security     BearerAuth
// @Router       /api/org-slugs/{slug} [get]
func (h *OrgHandler) ResolveSlug(c *gin.Context) {
	org, err := h.orgService.ResolveSlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}
