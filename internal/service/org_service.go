package service

import (
	"context"
	"errors"
	"regexp"

	"orghub/internal/model"
	"orghub/internal/repository"
	"orghub/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type UpdateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

type OrganizationResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type OrganizationService interface {
	CreateOrganization(ctx context.Context, creatorUserID uuid.UUID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetOrganization(ctx context.Context, orgID uuid.UUID) (*OrganizationResponse, error)
	UpdateOrganization(ctx context.Context, orgID, operatorID uuid.UUID, req UpdateOrganizationRequest) (*OrganizationResponse, error)
	ListUserOrganizations(ctx context.Context, userID uuid.UUID) ([]OrganizationResponse, error)
	ResolveSlug(ctx context.Context, slug string) (*OrganizationResponse, error)
}

type organizationService struct {
	orgRepo   repository.OrganizationRepository
	userRepo  repository.UserRepository
	roleSvc   RoleService
	memberSvc MemberService
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewOrganizationService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	roleSvc RoleService,
	memberSvc MemberService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) OrganizationService {
	return &organizationService{
		orgRepo:   orgRepo,
		userRepo:  userRepo,
		roleSvc:   roleSvc,
		memberSvc: memberSvc,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateOrganization creates the organization, its two system roles (Owner
// with the full catalog snapshot, Member with none) and the creator's Owner
// membership in one transaction. Nothing is left behind on failure.
func (s *organizationService) CreateOrganization(ctx context.Context, creatorUserID uuid.UUID, req CreateOrganizationRequest) (*OrganizationResponse, error) {
	if !slugPattern.MatchString(req.Slug) {
		return nil, apperror.Validation("slug must be lower case letters, digits and hyphens")
	}

	creator, err := s.userRepo.GetByID(ctx, creatorUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal("failed to fetch creator", err)
	}

	org := model.Organization{
		Name:      req.Name,
		Slug:      req.Slug,
		CreatedBy: creatorUserID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orgRepo.Create(txCtx, &org); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("slug %q is already taken", req.Slug)
			}
			return apperror.Internal("failed to create organization", err)
		}

		ownerRole, _, err := s.roleSvc.BootstrapOrgRoles(txCtx, org.ID)
		if err != nil {
			return err
		}

		if _, err := s.memberSvc.CreateOwnerMembership(txCtx, org.ID, creatorUserID, ownerRole.ID, creator.Email, creator.DisplayName); err != nil {
			return err
		}

		return logAudit(txCtx, s.auditRepo, org.ID, &creatorUserID, model.ActionCreateOrganization, org.ID.String(), org.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := toOrganizationResponse(org)
	return &resp, nil
}

func (s *organizationService) GetOrganization(ctx context.Context, orgID uuid.UUID) (*OrganizationResponse, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("organization not found")
		}
		return nil, apperror.Internal("failed to fetch organization", err)
	}

	resp := toOrganizationResponse(*org)
	return &resp, nil
}

func (s *organizationService) UpdateOrganization(ctx context.Context, orgID, operatorID uuid.UUID, req UpdateOrganizationRequest) (*OrganizationResponse, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("organization not found")
		}
		return nil, apperror.Internal("failed to fetch organization", err)
	}

	org.Name = req.Name
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orgRepo.Update(txCtx, org); err != nil {
			return apperror.Internal("failed to update organization", err)
		}
		return logAudit(txCtx, s.auditRepo, org.ID, &operatorID, model.ActionUpdateOrganization, org.ID.String(), org.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := toOrganizationResponse(*org)
	return &resp, nil
}

func (s *organizationService) ListUserOrganizations(ctx context.Context, userID uuid.UUID) ([]OrganizationResponse, error) {
	orgs, err := s.orgRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch organizations", err)
	}

	res := make([]OrganizationResponse, 0, len(orgs))
	for _, o := range orgs {
		res = append(res, toOrganizationResponse(o))
	}
	return res, nil
}

func (s *organizationService) ResolveSlug(ctx context.Context, slug string) (*OrganizationResponse, error) {
	org, err := s.orgRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("organization not found")
		}
		return nil, apperror.Internal("failed to resolve slug", err)
	}

	resp := toOrganizationResponse(*org)
	return &resp, nil
}

func toOrganizationResponse(o model.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID.String(),
		Name:      o.Name,
		Slug:      o.Slug,
		CreatedBy: o.CreatedBy.String(),
		CreatedAt: o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
