package service

import (
	"context"
	"errors"

	"orghub/internal/model"
	"orghub/internal/repository"
	"orghub/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PermissionResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PermissionService resolves "does member X hold permission P in org O".
// Every check is a fresh resolution against current role-assignment state;
// there is no cache, so permission changes take effect on the next check.
type PermissionService interface {
	HasPermission(ctx context.Context, userID, orgID uuid.UUID, code string) (bool, error)
	IsMember(ctx context.Context, userID, orgID uuid.UUID) (bool, error)
	ListUserPermissions(ctx context.Context, userID, orgID uuid.UUID) ([]string, error)
	ListCatalog(ctx context.Context) ([]PermissionResponse, error)
	SeedCatalog(ctx context.Context) error
}

type permissionService struct {
	roleRepo   repository.RoleRepository
	memberRepo repository.MemberRepository
}

func NewPermissionService(roleRepo repository.RoleRepository, memberRepo repository.MemberRepository) PermissionService {
	return &permissionService{roleRepo: roleRepo, memberRepo: memberRepo}
}

// HasPermission returns false for non-members; a missing membership row is the
// default-deny posture, never an error.
func (s *permissionService) HasPermission(ctx context.Context, userID, orgID uuid.UUID, code string) (bool, error) {
	member, err := s.memberRepo.FindByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Internal("failed to resolve membership", err)
	}

	has, err := s.roleRepo.HasPermissionCode(ctx, member.OrgRoleID, code)
	if err != nil {
		return false, apperror.Internal("failed to resolve role permissions", err)
	}
	return has, nil
}

// IsMember reports whether the user has a membership row in the org.
func (s *permissionService) IsMember(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	_, err := s.memberRepo.FindByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Internal("failed to resolve membership", err)
	}
	return true, nil
}

// ListUserPermissions returns the member's full assigned permission set, or an
// empty set for non-members.
func (s *permissionService) ListUserPermissions(ctx context.Context, userID, orgID uuid.UUID) ([]string, error) {
	member, err := s.memberRepo.FindByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []string{}, nil
		}
		return nil, apperror.Internal("failed to resolve membership", err)
	}

	codes, err := s.roleRepo.PermissionCodes(ctx, member.OrgRoleID)
	if err != nil {
		return nil, apperror.Internal("failed to resolve role permissions", err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

func (s *permissionService) ListCatalog(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListCatalog(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to fetch permission catalog", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// catalogPermissions is the fixed permission catalog. Seeded once at startup;
// new codes added here reach existing Owner roles only if granted explicitly.
var catalogPermissions = []model.Permission{
	{Code: "org:read", Description: "View organization details"},
	{Code: "org:update", Description: "Update organization settings"},
	{Code: "members:read", Description: "View organization members"},
	{Code: "members:invite", Description: "Invite new members"},
	{Code: "members:remove", Description: "Remove members"},
	{Code: "roles:read", Description: "View roles and their permissions"},
	{Code: "roles:create", Description: "Create custom roles"},
	{Code: "roles:update", Description: "Update custom roles"},
	{Code: "roles:delete", Description: "Delete custom roles"},
	{Code: "roles:assign", Description: "Assign roles to members"},
	{Code: "invitations:read", Description: "View invitations"},
	{Code: "audit:read", Description: "View the audit log"},
}

// SeedCatalog upserts the permission catalog. Idempotent.
func (s *permissionService) SeedCatalog(ctx context.Context) error {
	for i := range catalogPermissions {
		p := catalogPermissions[i]
		if err := s.roleRepo.FindOrCreatePermission(ctx, &p); err != nil {
			return apperror.Internal("failed to seed permission "+p.Code, err)
		}
	}
	return nil
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Description: p.Description,
	}
}
