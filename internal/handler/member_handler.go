package handler

import (
	"net/http"

	"orghub/internal/middleware"
	"orghub/internal/service"
	"orghub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MemberHandler struct {
	memberService service.MemberService
	permService   service.PermissionService
}

func NewMemberHandler(memberService service.MemberService, permService service.PermissionService) *MemberHandler {
	return &MemberHandler{memberService: memberService, permService: permService}
}

func (h *MemberHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	members := router.Group("/api/orgs/:orgID/members")
	members.Use(auth.RequireAuth())
	{
		members.GET("", auth.RequirePermission("members:read"), h.ListMembers)
		members.PUT("/:memberID/role", auth.RequirePermission("roles:assign"), h.AssignRole)
		members.DELETE("/:memberID", auth.RequirePermission("members:remove"), h.RemoveMember)
	}

	// The caller's own permission set in an org; membership is the only gate
	router.GET("/api/orgs/:orgID/my-permissions", auth.RequireAuth(), auth.RequireMembership(), h.MyPermissions)
}

// ListMembers returns the organization's member roster
// @Summary      List members
// @Tags         members
// @Produce      json
// @Param        orgID  path      string  true  "Organization ID"
// @Success      200    {object}  response.Response{data=[]service.MemberResponse}
// @Failure      403    {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/members [get]
func (h *MemberHandler) ListMembers(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	members, err := h.memberService.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, members))
}

// AssignRole reassigns a member to a non-system role
// @Summary      Assign role to member
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        orgID     path      string                     true  "Organization ID"
// @Param        memberID  path      string                     true  "Member ID"
// @Param        payload   body      service.AssignRoleRequest  true  "Role payload"
// @Success      200       {object}  response.Response{data=service.MemberResponse}
// @Failure      403       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/members/{memberID}/role [put]
func (h *MemberHandler) AssignRole(c *gin.Context) {
	var req service.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	orgID, _ := middleware.OrgID(c)
	operatorID, _ := middleware.UserID(c)
	memberID, err := uuid.Parse(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid member id"))
		return
	}

	member, err := h.memberService.AssignRole(c.Request.Context(), orgID, memberID, operatorID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, member))
}

// RemoveMember removes a member from the organization
// @Summary      Remove member
// @Tags         members
// @Produce      json
// @Param        orgID     path      string  true  "Organization ID"
// @Param        memberID  path      string  true  "Member ID"
// @Success      200       {object}  response.Response
// @Failure      403       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/members/{memberID} [delete]
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	operatorID, _ := middleware.UserID(c)
	memberID, err := uuid.Parse(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid member id"))
		return
	}

	if err := h.memberService.RemoveMember(c.Request.Context(), orgID, memberID, operatorID); err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Member removed successfully"}))
}

// MyPermissions returns the caller's permission codes in the organization
// @Summary      List my permissions
// @Tags         members
// @Produce      json
// @Param        orgID  path      string  true  "Organization ID"
// @Success      200    {object}  response.Response{data=[]string}
// @Security     BearerAuth
// @Router       /api/orgs/{orgID}/my-permissions [get]
func (h *MemberHandler) MyPermissions(c *gin.Context) {
	orgID, _ := middleware.OrgID(c)
	userID, _ := middleware.UserID(c)

	codes, err := h.permService.ListUserPermissions(c.Request.Context(), userID, orgID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, codes))
}
