package service

import (
	"context"
	"errors"

	"orghub/internal/model"
	"orghub/internal/repository"
	ws "orghub/internal/websocket"
	"orghub/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type AssignRoleRequest struct {
	RoleID string `json:"role_id" binding:"required"`
}

type MemberResponse struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	RoleID      string `json:"role_id"`
	RoleName    string `json:"role_name,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

// MemberService owns the member roster of an organization. Members holding a
// system role are terminal with respect to these operations: their role cannot
// be reassigned and they cannot be removed here.
type MemberService interface {
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]MemberResponse, error)
	AssignRole(ctx context.Context, orgID, targetMemberID, operatorUserID uuid.UUID, req AssignRoleRequest) (*MemberResponse, error)
	RemoveMember(ctx context.Context, orgID, targetMemberID, operatorUserID uuid.UUID) error

	// CreateOwnerMembership binds the organization creator to the Owner role.
	// Only called inside the org-creation transaction, never via general APIs.
	CreateOwnerMembership(ctx context.Context, orgID, userID, ownerRoleID uuid.UUID, email, displayName string) (*model.Member, error)
}

type memberService struct {
	memberRepo repository.MemberRepository
	roleRepo   repository.RoleRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	hub        *ws.Hub
}

func NewMemberService(
	memberRepo repository.MemberRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) MemberService {
	return &memberService{
		memberRepo: memberRepo,
		roleRepo:   roleRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		hub:        hub,
	}
}

// --- Implementation ---

func (s *memberService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]MemberResponse, error) {
	members, err := s.memberRepo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch members", err)
	}

	res := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		res = append(res, toMemberResponse(m))
	}
	return res, nil
}

func (s *memberService) AssignRole(ctx context.Context, orgID, targetMemberID, operatorUserID uuid.UUID, req AssignRoleRequest) (*MemberResponse, error) {
	if err := s.guardNotSelf(ctx, orgID, targetMemberID, operatorUserID, "change your own role"); err != nil {
		return nil, err
	}

	newRoleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return nil, apperror.Validation("invalid role id %q", req.RoleID)
	}

	newRole, err := s.roleRepo.FindByID(ctx, orgID, newRoleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("role does not belong to this organization")
		}
		return nil, apperror.Internal("failed to fetch role", err)
	}
	if newRole.IsSystem {
		return nil, apperror.Forbidden("system role %q cannot be assigned", newRole.Name)
	}

	member, err := s.memberRepo.FindByID(ctx, orgID, targetMemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("member not found")
		}
		return nil, apperror.Internal("failed to fetch member", err)
	}

	currentRole, err := s.roleRepo.FindByID(ctx, orgID, member.OrgRoleID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch member's current role", err)
	}
	if currentRole.IsSystem {
		return nil, apperror.Forbidden("members holding system role %q cannot be reassigned", currentRole.Name)
	}

	member.OrgRoleID = newRole.ID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.memberRepo.Update(txCtx, member); err != nil {
			return apperror.Internal("failed to update member role", err)
		}
		return logAudit(txCtx, s.auditRepo, orgID, &operatorUserID, model.ActionAssignRole, member.ID.String(), member.Email, req)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(orgID, ws.EventMemberRoleChanged, map[string]interface{}{
		"member_id": member.ID.String(),
		"role_id":   newRole.ID.String(),
		"role_name": newRole.Name,
	})

	resp := toMemberResponse(*member)
	resp.RoleName = newRole.Name
	return &resp, nil
}

func (s *memberService) RemoveMember(ctx context.Context, orgID, targetMemberID, operatorUserID uuid.UUID) error {
	if err := s.guardNotSelf(ctx, orgID, targetMemberID, operatorUserID, "remove yourself"); err != nil {
		return err
	}

	member, err := s.memberRepo.FindByID(ctx, orgID, targetMemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("member not found")
		}
		return apperror.Internal("failed to fetch member", err)
	}

	currentRole, err := s.roleRepo.FindByID(ctx, orgID, member.OrgRoleID)
	if err != nil {
		return apperror.Internal("failed to fetch member's current role", err)
	}
	if currentRole.IsSystem {
		return apperror.Forbidden("members holding system role %q cannot be removed", currentRole.Name)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.memberRepo.Delete(txCtx, member); err != nil {
			return apperror.Internal("failed to remove member", err)
		}
		return logAudit(txCtx, s.auditRepo, orgID, &operatorUserID, model.ActionRemoveMember, member.ID.String(), member.Email, nil)
	})
	if err != nil {
		return err
	}

	s.hub.Publish(orgID, ws.EventMemberRemoved, map[string]interface{}{"member_id": member.ID.String()})
	return nil
}

func (s *memberService) CreateOwnerMembership(ctx context.Context, orgID, userID, ownerRoleID uuid.UUID, email, displayName string) (*model.Member, error) {
	member := &model.Member{
		OrgID:       orgID,
		UserID:      userID,
		Email:       normalizeEmail(email),
		DisplayName: displayName,
		OrgRoleID:   ownerRoleID,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, apperror.Internal("failed to create owner membership", err)
	}
	return member, nil
}

// guardNotSelf rejects operations where the operator targets their own
// membership row.
func (s *memberService) guardNotSelf(ctx context.Context, orgID, targetMemberID, operatorUserID uuid.UUID, action string) error {
	operator, err := s.memberRepo.FindByOrgAndUser(ctx, orgID, operatorUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperror.Internal("failed to resolve operator membership", err)
	}
	if operator.ID == targetMemberID {
		return apperror.Forbidden("you cannot %s", action)
	}
	return nil
}

func toMemberResponse(m model.Member) MemberResponse {
	resp := MemberResponse{
		ID:          m.ID.String(),
		OrgID:       m.OrgID.String(),
		UserID:      m.UserID.String(),
		Email:       m.Email,
		DisplayName: m.DisplayName,
		RoleID:      m.OrgRoleID.String(),
		CreatedAt:   m.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if m.Role != nil {
		resp.RoleName = m.Role.Name
	}
	return resp
}
