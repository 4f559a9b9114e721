package handler

import (
	"net/http"

	"orghub/internal/middleware"
	"orghub/internal/service"
	"orghub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RoleHandler struct {
	roleService service.RoleService
	permService service.PermissionService
}

func NewRoleHandler(roleService service.RoleService, permService service.PermissionService) *RoleHandler {
	return &RoleHandler{roleService: roleService, permService: permService}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	roles := router.Group("/api/orgs/:orgID/roles")
	roles.Use(auth.RequireAuth())
	{
		roles.GET("", auth.RequirePermission("roles:read"), h.ListRoles)
		roles.GET("/:roleID", auth.RequirePermission("roles:read"), h.GetRole)
		roles.POST("", auth.RequirePermission("roles:create"), h.CreateRole)
		roles.PUT("/:roleID", auth.RequirePermission("roles:update"), h.UpdateRole)
		roles.DELETE("/:roleID", auth.RequirePermission("roles:delete"), h.DeleteRole)
	}

	// Catalog listing for role editors; any authenticated user
	router.GET("/api/permissions", auth.RequireAuth(), h.ListCatalog)
}

// ListRoles returns the organization's roles with their permissions
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Param        orgID  path      string  true  "Organization ID"
// @Success      200    {object}  response.Response{data=[]service.RoleResponse}
// @Failure      403    {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	roles, err := h.roleService.ListRoles(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole returns a single role by ID
// @Summary      Get role
// @Tags         roles
// @Produce      json
// @Param        orgID   path      string  true  "Organization ID"
// @Param        roleID  path      string  true  "Role ID"
// @Success      200     {object}  response.Response{data=service.RoleResponse}
// @Failure      404     {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/roles/{roleID} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid role id"))
		return
	}

	role, err := h.roleService.GetRole(c.Request.Context(), orgID, roleID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole creates a new custom role
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        orgID    path      string                     true  "Organization ID"
// @Param        payload  body      service.CreateRoleRequest  true  "Role payload"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	orgID, _ := middleware.OrgID(c)
	operatorID, _ := middleware.UserID(c)

	role, err := h.roleService.CreateRole(c.Request.Context(), orgID, operatorID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole renames a role and/or replaces its permission set
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        orgID    path      string                     true  "Organization ID"
// @Param        roleID   path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Update payload"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/roles/{roleID} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	orgID, _ := middleware.OrgID(c)
	operatorID, _ := middleware.UserID(c)
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid role id"))
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), orgID, roleID, operatorID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole deletes a custom role no member holds
// @Summary      Delete role
// @Tags         roles
// @Produce      json
// @Param        orgID   path      string  true  "Organization ID"
// @Param        roleID  path      string  true  "Role ID"
// @Success      200     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/roles/{roleID} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	operatorID, _ := middleware.UserID(c)
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid role id"))
		return
	}

	if err := h.roleService.DeleteRole(c.Request.Context(), orgID, roleID, operatorID); err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Role deleted successfully"}))
}

// ListCatalog returns the global permission catalog
// @Summary      List permission catalog
// @Tags         permissions
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Security     BearerAuth
// @Router       /api/permissions [get]
func (h *RoleHandler) ListCatalog(c *gin.Context) {
	perms, err := h.permService.ListCatalog(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}
