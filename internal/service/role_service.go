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

type CreateRoleRequest struct {
	Name          string   `json:"name" binding:"required"`
	PermissionIDs []string `json:"permission_ids"`
}

// UpdateRoleRequest fields are optional; a supplied permission_ids fully
// replaces the role's set, and an empty array clears it.
type UpdateRoleRequest struct {
	Name          *string   `json:"name"`
	PermissionIDs *[]string `json:"permission_ids"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	OrgID       string               `json:"org_id"`
	Name        string               `json:"name"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context, orgID uuid.UUID) ([]RoleResponse, error)
	GetRole(ctx context.Context, orgID, roleID uuid.UUID) (*RoleResponse, error)
	CreateRole(ctx context.Context, orgID, operatorID uuid.UUID, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, orgID, roleID, operatorID uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, orgID, roleID, operatorID uuid.UUID) error

	// BootstrapOrgRoles creates the two system roles for a new organization:
	// Owner bound to a snapshot of the entire current permission catalog, and
	// Member with an empty set. Called once, inside the org-creation
	// transaction.
	BootstrapOrgRoles(ctx context.Context, orgID uuid.UUID) (owner *model.Role, member *model.Role, err error)
}

type roleService struct {
	roleRepo   repository.RoleRepository
	memberRepo repository.MemberRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	hub        *ws.Hub
}

func NewRoleService(
	roleRepo repository.RoleRepository,
	memberRepo repository.MemberRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) RoleService {
	return &roleService{
		roleRepo:   roleRepo,
		memberRepo: memberRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		hub:        hub,
	}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context, orgID uuid.UUID) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch roles", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, orgID, roleID uuid.UUID) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByIDWithPermissions(ctx, orgID, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role not found")
		}
		return nil, apperror.Internal("failed to fetch role", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, orgID, operatorID uuid.UUID, req CreateRoleRequest) (*RoleResponse, error) {
	perms, err := s.resolveCatalogPermissions(ctx, req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	if _, err := s.roleRepo.FindByName(ctx, orgID, req.Name); err == nil {
		return nil, apperror.Conflict("role %q already exists in this organization", req.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to check role name", err)
	}

	role := model.Role{
		OrgID:    orgID,
		Name:     req.Name,
		IsSystem: false,
	}

	// Role row and permission set are written atomically: if attaching
	// permissions fails, the role creation rolls back with it.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Create(txCtx, &role); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("role %q already exists in this organization", req.Name)
			}
			return apperror.Internal("failed to create role", err)
		}
		if len(perms) > 0 {
			if err := s.roleRepo.ReplacePermissions(txCtx, &role, perms); err != nil {
				return apperror.Internal("failed to assign permissions", err)
			}
		}
		return s.writeAudit(txCtx, orgID, operatorID, model.ActionCreateRole, role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, orgID, role.ID)
}

func (s *roleService) UpdateRole(ctx context.Context, orgID, roleID, operatorID uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, orgID, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role not found")
		}
		return nil, apperror.Internal("failed to fetch role", err)
	}

	renaming := req.Name != nil && *req.Name != role.Name
	if renaming {
		if role.IsSystem {
			return nil, apperror.Forbidden("system role %q cannot be renamed", role.Name)
		}
		if *req.Name == "" {
			return nil, apperror.Validation("role name must not be empty")
		}
		if existing, err := s.roleRepo.FindByName(ctx, orgID, *req.Name); err == nil && existing.ID != role.ID {
			return nil, apperror.Conflict("role %q already exists in this organization", *req.Name)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Internal("failed to check role name", err)
		}
		role.Name = *req.Name
	}

	var perms []model.Permission
	if req.PermissionIDs != nil {
		perms, err = s.resolveCatalogPermissions(ctx, *req.PermissionIDs)
		if err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if renaming {
			if err := s.roleRepo.Update(txCtx, role); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperror.Conflict("role %q already exists in this organization", role.Name)
				}
				return apperror.Internal("failed to update role", err)
			}
		}
		if req.PermissionIDs != nil {
			if err := s.roleRepo.ReplacePermissions(txCtx, role, perms); err != nil {
				return apperror.Internal("failed to replace permissions", err)
			}
		}
		return s.writeAudit(txCtx, orgID, operatorID, model.ActionUpdateRole, role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	// Permission checks resolve freshly, so connected clients only need a
	// nudge to refetch.
	s.hub.Publish(orgID, ws.EventRoleChanged, map[string]interface{}{
		"role_id": role.ID.String(),
		"name":    role.Name,
	})

	return s.GetRole(ctx, orgID, roleID)
}

func (s *roleService) DeleteRole(ctx context.Context, orgID, roleID, operatorID uuid.UUID) error {
	role, err := s.roleRepo.FindByID(ctx, orgID, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("role not found")
		}
		return apperror.Internal("failed to fetch role", err)
	}

	if role.IsSystem {
		return apperror.Forbidden("system role %q cannot be deleted", role.Name)
	}

	holders, err := s.memberRepo.CountByRole(ctx, orgID, roleID)
	if err != nil {
		return apperror.Internal("failed to count role members", err)
	}
	if holders > 0 {
		return apperror.Conflict("role %q is assigned to %d member(s)", role.Name, holders)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Delete(txCtx, role); err != nil {
			return apperror.Internal("failed to delete role", err)
		}
		return s.writeAudit(txCtx, orgID, operatorID, model.ActionDeleteRole, role.ID.String(), role.Name, nil)
	})
	if err != nil {
		return err
	}

	s.hub.Publish(orgID, ws.EventRoleChanged, map[string]interface{}{
		"role_id": role.ID.String(),
		"name":    role.Name,
		"deleted": true,
	})
	return nil
}

func (s *roleService) BootstrapOrgRoles(ctx context.Context, orgID uuid.UUID) (*model.Role, *model.Role, error) {
	catalog, err := s.roleRepo.ListCatalog(ctx)
	if err != nil {
		return nil, nil, apperror.Internal("failed to snapshot permission catalog", err)
	}

	owner := &model.Role{OrgID: orgID, Name: model.RoleNameOwner, IsSystem: true}
	if err := s.roleRepo.Create(ctx, owner); err != nil {
		return nil, nil, apperror.Internal("failed to create Owner role", err)
	}
	if err := s.roleRepo.ReplacePermissions(ctx, owner, catalog); err != nil {
		return nil, nil, apperror.Internal("failed to grant catalog to Owner role", err)
	}

	member := &model.Role{OrgID: orgID, Name: model.RoleNameMember, IsSystem: true}
	if err := s.roleRepo.Create(ctx, member); err != nil {
		return nil, nil, apperror.Internal("failed to create Member role", err)
	}

	return owner, member, nil
}

// resolveCatalogPermissions parses ids and ensures every one exists in the
// catalog; any unknown id fails validation.
func (s *roleService) resolveCatalogPermissions(ctx context.Context, ids []string) ([]model.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	permIDs := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, apperror.Validation("invalid permission id %q", id)
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		permIDs = append(permIDs, parsed)
	}

	perms, err := s.roleRepo.FindPermissionsByIDs(ctx, permIDs)
	if err != nil {
		return nil, apperror.Internal("failed to fetch permissions", err)
	}
	if len(perms) != len(permIDs) {
		return nil, apperror.Validation("one or more permission ids are not in the catalog")
	}
	return perms, nil
}

func (s *roleService) writeAudit(ctx context.Context, orgID, operatorID uuid.UUID, action, entityID, entityName string, payload interface{}) error {
	return logAudit(ctx, s.auditRepo, orgID, &operatorID, action, entityID, entityName, payload)
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		OrgID:       r.OrgID.String(),
		Name:        r.Name,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
