package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"orghub/internal/model"
	"orghub/internal/repository"
	"orghub/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// issueInvite issues an invitation for the org's Member role and returns the
// response carrying the one-time token.
func issueInvite(t *testing.T, env *testEnv, orgID, inviterID uuid.UUID, email string, roleID uuid.UUID) *InvitationResponse {
	t.Helper()
	resp, err := env.invites.Issue(context.Background(), orgID, inviterID, IssueInvitationRequest{
		Email:  email,
		RoleID: roleID.String(),
	})
	if err != nil {
		t.Fatalf("Issue(%s): %v", email, err)
	}
	return resp
}

func TestIssueInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "invite")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "New.Person@Example.COM", roleID)
	if resp.Token == "" {
		t.Fatal("issuance response must carry the token")
	}
	if resp.Status != string(model.InvitationPending) {
		t.Errorf("got status %s, want pending", resp.Status)
	}
	if resp.InvitedEmail != "new.person@example.com" {
		t.Errorf("email not normalized: %s", resp.InvitedEmail)
	}

	// Listings never echo the token back.
	listed, total, err := env.invites.ListByOrg(ctx, org.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if total != 1 || len(listed) != 1 {
		t.Fatalf("expected 1 invitation, got %d (total %d)", len(listed), total)
	}
	if listed[0].Token != "" {
		t.Error("token leaked through listing")
	}
}

func TestIssueInvitationRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "invite-bad")
	otherOrg, otherOwner := env.createOrg(t, "invite-bad-b")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)
	foreignRoleID := env.createCustomRole(t, otherOrg.ID, otherOwner.ID, "Guest", nil)

	// Role must belong to the inviting org.
	_, err := env.invites.Issue(ctx, org.ID, owner.ID, IssueInvitationRequest{Email: "x@example.com", RoleID: foreignRoleID.String()})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("foreign role: expected validation error, got %v", err)
	}

	// Existing members cannot be invited, regardless of email casing.
	env.addMember(t, org.ID, roleID, "taken@example.com")
	_, err = env.invites.Issue(ctx, org.ID, owner.ID, IssueInvitationRequest{Email: "TAKEN@example.com", RoleID: roleID.String()})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("member email: expected conflict, got %v", err)
	}

	// Only one pending invitation per (org, email).
	issueInvite(t, env, org.ID, owner.ID, "dup@example.com", roleID)
	_, err = env.invites.Issue(ctx, org.ID, owner.ID, IssueInvitationRequest{Email: "dup@example.com", RoleID: roleID.String()})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("duplicate pending: expected conflict, got %v", err)
	}
}

func TestAcceptInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "accept")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "joiner@example.com", roleID)
	joiner := env.createUser(t, "joiner@example.com", "Joiner")

	result, err := env.invites.Accept(ctx, resp.Token, joiner.ID, joiner.Email)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if result.RoleAssignedID != roleID.String() {
		t.Errorf("assigned role %s, want %s", result.RoleAssignedID, roleID)
	}

	member, err := env.memberRepo.FindByOrgAndUser(ctx, org.ID, joiner.ID)
	if err != nil {
		t.Fatalf("membership not created: %v", err)
	}
	if member.OrgRoleID != roleID {
		t.Errorf("member holds role %s, want %s", member.OrgRoleID, roleID)
	}

	// Tokens are single-use; a second accept sees the terminal state.
	_, err = env.invites.Accept(ctx, resp.Token, joiner.ID, joiner.Email)
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("second accept: expected conflict, got %v", err)
	}
}

func TestAcceptInvitationEmailMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "accept-email")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "intended@example.com", roleID)
	intruder := env.createUser(t, "intruder@example.com", "Intruder")

	_, err := env.invites.Accept(ctx, resp.Token, intruder.ID, intruder.Email)
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Fatalf("wrong email: expected forbidden, got %v", err)
	}

	// The invitation survives the failed attempt and casing does not matter.
	intended := env.createUser(t, "intended@example.com", "Intended")
	if _, err := env.invites.Accept(ctx, resp.Token, intended.ID, "Intended@Example.Com"); err != nil {
		t.Fatalf("accept with differently-cased email: %v", err)
	}
}

func TestAcceptInvitationExistingMemberKeepsRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "accept-existing")
	heldID := env.createCustomRole(t, org.ID, owner.ID, "Held", nil)
	offeredID := env.createCustomRole(t, org.ID, owner.ID, "Offered", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "veteran@example.com", offeredID)
	member, user := env.addMember(t, org.ID, heldID, "veteran@example.com")

	result, err := env.invites.Accept(ctx, resp.Token, user.ID, user.Email)
	if err != nil {
		t.Fatalf("existing member accept must succeed, got %v", err)
	}
	if result.RoleAssignedID != heldID.String() {
		t.Errorf("reported role %s, want currently held %s", result.RoleAssignedID, heldID)
	}

	reloaded, err := env.memberRepo.FindByID(ctx, org.ID, member.ID)
	if err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if reloaded.OrgRoleID != heldID {
		t.Errorf("member role changed to %s, must stay %s", reloaded.OrgRoleID, heldID)
	}

	inv, err := env.invRepo.FindByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if inv.Status != model.InvitationAccepted {
		t.Errorf("invitation status %s, want accepted", inv.Status)
	}
}

func TestAcceptInvitationExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "accept-expiry")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "late@example.com", roleID)
	late := env.createUser(t, "late@example.com", "Late")

	// Advance the service clock past the validity window.
	env.invites.(*invitationService).now = func() time.Time {
		return time.Now().Add(model.InvitationTTL + time.Hour)
	}

	// First touch transitions pending -> expired and reports Gone.
	_, err := env.invites.Accept(ctx, resp.Token, late.ID, late.Email)
	if apperror.KindOf(err) != apperror.KindGone {
		t.Fatalf("expired accept: expected gone, got %v", err)
	}

	inv, err := env.invRepo.FindByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if inv.Status != model.InvitationExpired {
		t.Fatalf("invitation status %s, want expired", inv.Status)
	}

	// Expired is terminal; later touches see the resolved state.
	_, err = env.invites.Accept(ctx, resp.Token, late.ID, late.Email)
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("accept after expiry: expected conflict, got %v", err)
	}
	if err := env.invites.Decline(ctx, resp.Token, late.Email); apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("decline after expiry: expected conflict, got %v", err)
	}
}

// brokenAuditRepo fails writes for a single action so the transactional
// coupling of a mutation and its audit row can be observed.
type brokenAuditRepo struct {
	repository.AuditRepository
	failAction string
}

func (r *brokenAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.Action == r.failAction {
		return errors.New("audit store unavailable")
	}
	return r.AuditRepository.Log(ctx, entry)
}

func TestExpireInvitationCommitsWithAuditRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "expiry-audit")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "slow@example.com", roleID)
	user := env.createUser(t, "slow@example.com", "Slow")

	pastTTL := func() time.Time { return time.Now().Add(model.InvitationTTL + time.Hour) }

	// With the audit store down, the expiry transition must roll back whole:
	// no status flip without its audit record, and the failure surfaces.
	broken := NewInvitationService(env.invRepo, env.roleRepo, env.memberRepo, env.userRepo,
		&brokenAuditRepo{AuditRepository: env.auditRepo, failAction: model.ActionExpireInvitation},
		env.txManager, nil)
	broken.(*invitationService).now = pastTTL

	_, err := broken.Accept(ctx, resp.Token, user.ID, user.Email)
	if apperror.KindOf(err) != apperror.KindInternal {
		t.Fatalf("failed audit write must surface, got %v", err)
	}

	inv, err := env.invRepo.FindByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if inv.Status != model.InvitationPending {
		t.Fatalf("status flipped to %s without an audit row", inv.Status)
	}

	// With a healthy store, status flip and audit row commit together.
	env.invites.(*invitationService).now = pastTTL
	if _, err := env.invites.Accept(ctx, resp.Token, user.ID, user.Email); apperror.KindOf(err) != apperror.KindGone {
		t.Fatalf("expired accept: expected gone, got %v", err)
	}

	inv, err = env.invRepo.FindByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if inv.Status != model.InvitationExpired {
		t.Fatalf("invitation status %s, want expired", inv.Status)
	}

	logs, _, err := env.audit.ListByOrg(ctx, org.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	found := false
	for _, l := range logs {
		if l.Action == model.ActionExpireInvitation && l.EntityID == inv.ID.String() {
			found = true
		}
	}
	if !found {
		t.Error("expiry committed without its audit row")
	}
}

// racingMemberRepo simulates a concurrent accept that wins the membership
// insert first, leaving this caller with the uniqueness violation.
type racingMemberRepo struct {
	repository.MemberRepository
}

func (r *racingMemberRepo) Create(ctx context.Context, member *model.Member) error {
	return gorm.ErrDuplicatedKey
}

func TestAcceptInvitationConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "accept-race")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "racer@example.com", roleID)
	user := env.createUser(t, "racer@example.com", "Racer")

	racy := NewInvitationService(env.invRepo, env.roleRepo,
		&racingMemberRepo{MemberRepository: env.memberRepo},
		env.userRepo, env.auditRepo, env.txManager, nil)

	// The loser of the insert sees Conflict, never a hard failure.
	_, err := racy.Accept(ctx, resp.Token, user.ID, user.Email)
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("losing a duplicate accept: expected conflict, got %v", err)
	}

	// The invitation still resolves to accepted.
	inv, err := env.invRepo.FindByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if inv.Status != model.InvitationAccepted {
		t.Fatalf("invitation status %s, want accepted", inv.Status)
	}
}

func TestDeclineInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "decline")
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Guest", nil)

	resp := issueInvite(t, env, org.ID, owner.ID, "reluctant@example.com", roleID)
	user := env.createUser(t, "reluctant@example.com", "Reluctant")

	// The email gate applies to decline as well.
	if err := env.invites.Decline(ctx, resp.Token, "someone-else@example.com"); apperror.KindOf(err) != apperror.KindForbidden {
		t.Fatalf("decline with wrong email: expected forbidden, got %v", err)
	}

	if err := env.invites.Decline(ctx, resp.Token, user.Email); err != nil {
		t.Fatalf("Decline: %v", err)
	}

	inv, err := env.invRepo.FindByToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if inv.Status != model.InvitationDeclined {
		t.Fatalf("invitation status %s, want declined", inv.Status)
	}

	// Declined is terminal.
	if _, err := env.invites.Accept(ctx, resp.Token, user.ID, user.Email); apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("accept after decline: expected conflict, got %v", err)
	}
	if _, err := env.memberRepo.FindByOrgAndUser(ctx, org.ID, user.ID); err == nil {
		t.Error("decline must not create a membership")
	}

	// A declined invitation no longer blocks re-inviting the same email.
	if _, err := env.invites.Issue(ctx, org.ID, owner.ID, IssueInvitationRequest{Email: user.Email, RoleID: roleID.String()}); err != nil {
		t.Errorf("re-issue after decline: %v", err)
	}
}

func TestAcceptInvitationUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "nobody@example.com", "Nobody")

	_, err := env.invites.Accept(context.Background(), "no-such-token", user.ID, user.Email)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("unknown token: expected not found, got %v", err)
	}
}
