package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"orghub/internal/model"
	"orghub/internal/repository"
	ws "orghub/internal/websocket"
	"orghub/pkg/apperror"
	"orghub/pkg/token"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type IssueInvitationRequest struct {
	Email  string `json:"email" binding:"required,email"`
	RoleID string `json:"role_id" binding:"required"`
}

type InvitationResponse struct {
	ID           string `json:"id"`
	OrgID        string `json:"org_id"`
	InvitedEmail string `json:"invited_email"`
	InvitedBy    string `json:"invited_by"`
	RoleID       string `json:"role_id"`
	Status       string `json:"status"`
	ExpiresAt    string `json:"expires_at"`
	CreatedAt    string `json:"created_at"`
	// Token is only populated on issuance, for out-of-band delivery.
	Token string `json:"token,omitempty"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

type DeclineInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// AcceptResult reports where the accepting user ended up.
type AcceptResult struct {
	OrgID          string `json:"org_id"`
	RoleAssignedID string `json:"role_assigned_id"`
}

// --- Interface ---

// InvitationService owns the invitation state machine:
// pending -> {accepted, declined, expired}, all terminal. Expiry is detected
// lazily when a pending invitation is touched; there is no background sweep.
// Invitations are never deleted, they remain as audit records.
type InvitationService interface {
	Issue(ctx context.Context, orgID, inviterUserID uuid.UUID, req IssueInvitationRequest) (*InvitationResponse, error)
	Accept(ctx context.Context, tokenStr string, userID uuid.UUID, userEmail string) (*AcceptResult, error)
	Decline(ctx context.Context, tokenStr string, userEmail string) error
	ListByOrg(ctx context.Context, orgID uuid.UUID, page, limit int) ([]InvitationResponse, int64, error)
}

type invitationService struct {
	invRepo    repository.InvitationRepository
	roleRepo   repository.RoleRepository
	memberRepo repository.MemberRepository
	userRepo   repository.UserRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	hub        *ws.Hub
	now        func() time.Time
}

func NewInvitationService(
	invRepo repository.InvitationRepository,
	roleRepo repository.RoleRepository,
	memberRepo repository.MemberRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) InvitationService {
	return &invitationService{
		invRepo:    invRepo,
		roleRepo:   roleRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		hub:        hub,
		now:        time.Now,
	}
}

// --- Implementation ---

// Issue validates the target role and email, then persists a pending
// invitation. The returned token is delivered out-of-band by the caller;
// this service never sends email itself.
func (s *invitationService) Issue(ctx context.Context, orgID, inviterUserID uuid.UUID, req IssueInvitationRequest) (*InvitationResponse, error) {
	email := normalizeEmail(req.Email)

	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return nil, apperror.Validation("invalid role id %q", req.RoleID)
	}
	if _, err := s.roleRepo.FindByID(ctx, orgID, roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("role does not belong to this organization")
		}
		return nil, apperror.Internal("failed to fetch role", err)
	}

	if _, err := s.memberRepo.FindByOrgAndEmail(ctx, orgID, email); err == nil {
		return nil, apperror.Conflict("%s is already a member of this organization", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to check membership", err)
	}

	if _, err := s.invRepo.FindPendingByOrgEmail(ctx, orgID, email); err == nil {
		return nil, apperror.Conflict("a pending invitation for %s already exists", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to check pending invitations", err)
	}

	tok, err := token.NewInviteToken()
	if err != nil {
		return nil, apperror.Internal("failed to generate invitation token", err)
	}

	inv := &model.Invitation{
		OrgID:           orgID,
		InvitedEmail:    email,
		InvitedByUserID: inviterUserID,
		RoleToAssignID:  roleID,
		Token:           tok,
		Status:          model.InvitationPending,
		ExpiresAt:       s.now().Add(model.InvitationTTL),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.invRepo.Create(txCtx, inv); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("a pending invitation for %s already exists", email)
			}
			return apperror.Internal("failed to create invitation", err)
		}
		return logAudit(txCtx, s.auditRepo, orgID, &inviterUserID, model.ActionIssueInvitation, inv.ID.String(), email, nil)
	})
	if err != nil {
		return nil, err
	}

	resp := toInvitationResponse(*inv)
	resp.Token = inv.Token
	return &resp, nil
}

// Accept moves a pending invitation to accepted and materializes the
// membership. Concurrent duplicate accepts are arbitrated by the membership
// uniqueness constraint: the loser still marks the invitation accepted but
// reports Conflict.
func (s *invitationService) Accept(ctx context.Context, tokenStr string, userID uuid.UUID, userEmail string) (*AcceptResult, error) {
	inv, err := s.resolvePending(ctx, tokenStr, userEmail)
	if err != nil {
		return nil, err
	}

	// Re-invitation of an existing member, or a lost race: mark accepted and
	// succeed without touching the member's current role.
	if existing, err := s.memberRepo.FindByOrgAndUser(ctx, inv.OrgID, userID); err == nil {
		if err := s.markAccepted(ctx, inv, userID, existing); err != nil {
			return nil, err
		}
		return &AcceptResult{OrgID: inv.OrgID.String(), RoleAssignedID: existing.OrgRoleID.String()}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to check membership", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch accepting user", err)
	}

	member := &model.Member{
		OrgID:       inv.OrgID,
		UserID:      userID,
		Email:       normalizeEmail(userEmail),
		DisplayName: user.DisplayName,
		OrgRoleID:   inv.RoleToAssignID,
	}

	var lostRace bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.memberRepo.Create(txCtx, member); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// A concurrent accept won the insert. The invitation still
				// resolves to accepted; only this caller sees the conflict.
				lostRace = true
			} else {
				return apperror.Internal("failed to create membership", err)
			}
		}
		inv.Status = model.InvitationAccepted
		if err := s.invRepo.Update(txCtx, inv); err != nil {
			return apperror.Internal("failed to update invitation", err)
		}
		return logAudit(txCtx, s.auditRepo, inv.OrgID, &userID, model.ActionAcceptInvitation, inv.ID.String(), inv.InvitedEmail, nil)
	})
	if err != nil {
		return nil, err
	}

	if lostRace {
		return nil, apperror.Conflict("you are already a member of this organization")
	}

	s.hub.Publish(inv.OrgID, ws.EventMemberJoined, map[string]interface{}{
		"member_id": member.ID.String(),
		"email":     member.Email,
		"role_id":   inv.RoleToAssignID.String(),
	})

	return &AcceptResult{OrgID: inv.OrgID.String(), RoleAssignedID: inv.RoleToAssignID.String()}, nil
}

// Decline moves a pending invitation to declined. No membership side effect.
func (s *invitationService) Decline(ctx context.Context, tokenStr string, userEmail string) error {
	inv, err := s.resolvePending(ctx, tokenStr, userEmail)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inv.Status = model.InvitationDeclined
		if err := s.invRepo.Update(txCtx, inv); err != nil {
			return apperror.Internal("failed to update invitation", err)
		}
		return logAudit(txCtx, s.auditRepo, inv.OrgID, nil, model.ActionDeclineInvitation, inv.ID.String(), inv.InvitedEmail, nil)
	})
}

func (s *invitationService) ListByOrg(ctx context.Context, orgID uuid.UUID, page, limit int) ([]InvitationResponse, int64, error) {
	invs, total, err := s.invRepo.ListByOrg(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch invitations", err)
	}

	res := make([]InvitationResponse, 0, len(invs))
	for _, inv := range invs {
		res = append(res, toInvitationResponse(inv))
	}
	return res, total, nil
}

// resolvePending looks an invitation up by token and runs the shared accept/
// decline gate: status must be pending, the expiry window must be open, and
// the caller's email must match the invited address (case-insensitive).
// A pending invitation past its expiry transitions to expired here, the first
// time it is touched, and the caller gets Gone; later touches see Conflict.
func (s *invitationService) resolvePending(ctx context.Context, tokenStr, userEmail string) (*model.Invitation, error) {
	inv, err := s.invRepo.FindByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("invitation not found")
		}
		return nil, apperror.Internal("failed to fetch invitation", err)
	}

	if inv.Status != model.InvitationPending {
		return nil, apperror.Conflict("invitation already %s", inv.Status)
	}

	if s.now().After(inv.ExpiresAt) {
		// The expiry transition is persisted even though this call fails. The
		// status flip and its audit row commit (or roll back) together.
		inv.Status = model.InvitationExpired
		err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.invRepo.Update(txCtx, inv); err != nil {
				return apperror.Internal("failed to expire invitation", err)
			}
			return logAudit(txCtx, s.auditRepo, inv.OrgID, nil, model.ActionExpireInvitation, inv.ID.String(), inv.InvitedEmail, nil)
		})
		if err != nil {
			return nil, err
		}
		return nil, apperror.Gone("invitation expired")
	}

	if !strings.EqualFold(inv.InvitedEmail, userEmail) {
		return nil, apperror.Forbidden("invitation was issued to a different email address")
	}

	return inv, nil
}

// markAccepted resolves an invitation for a user who is already a member,
// refreshing the member's denormalized display fields.
func (s *invitationService) markAccepted(ctx context.Context, inv *model.Invitation, userID uuid.UUID, existing *model.Member) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.Internal("failed to fetch accepting user", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing.Email = normalizeEmail(user.Email)
		existing.DisplayName = user.DisplayName
		if err := s.memberRepo.Update(txCtx, existing); err != nil {
			return apperror.Internal("failed to refresh member", err)
		}
		inv.Status = model.InvitationAccepted
		if err := s.invRepo.Update(txCtx, inv); err != nil {
			return apperror.Internal("failed to update invitation", err)
		}
		return logAudit(txCtx, s.auditRepo, inv.OrgID, &userID, model.ActionAcceptInvitation, inv.ID.String(), inv.InvitedEmail, nil)
	})
}

// normalizeEmail applies the single email-case policy: addresses are stored
// lower case at issuance and on membership rows, and compared case-
// insensitively on accept/decline.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toInvitationResponse(inv model.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:           inv.ID.String(),
		OrgID:        inv.OrgID.String(),
		InvitedEmail: inv.InvitedEmail,
		InvitedBy:    inv.InvitedByUserID.String(),
		RoleID:       inv.RoleToAssignID.String(),
		Status:       string(inv.Status),
		ExpiresAt:    inv.ExpiresAt.Format("2006-01-02 15:04:05"),
		CreatedAt:    inv.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
