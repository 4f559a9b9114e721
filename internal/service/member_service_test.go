package service

import (
	"context"
	"testing"

	"orghub/pkg/apperror"

	"github.com/google/uuid"
)

func TestAssignRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "assign")

	fromID := env.createCustomRole(t, org.ID, owner.ID, "From", nil)
	toID := env.createCustomRole(t, org.ID, owner.ID, "To", nil)
	member, _ := env.addMember(t, org.ID, fromID, "staff@example.com")

	resp, err := env.members.AssignRole(ctx, org.ID, member.ID, owner.ID, AssignRoleRequest{RoleID: toID.String()})
	if err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if resp.RoleID != toID.String() {
		t.Errorf("got role %s, want %s", resp.RoleID, toID)
	}

	reloaded, err := env.memberRepo.FindByID(ctx, org.ID, member.ID)
	if err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if reloaded.OrgRoleID != toID {
		t.Errorf("persisted role %s, want %s", reloaded.OrgRoleID, toID)
	}
}

func TestAssignRoleSystemTargetsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "assign-sys")

	customID := env.createCustomRole(t, org.ID, owner.ID, "Custom", nil)
	member, _ := env.addMember(t, org.ID, customID, "worker@example.com")

	// Assigning a system role to anyone is forbidden, for both system roles.
	for _, sysRoleID := range []uuid.UUID{env.ownerRole(t, org.ID).ID, env.memberRole(t, org.ID).ID} {
		_, err := env.members.AssignRole(ctx, org.ID, member.ID, owner.ID, AssignRoleRequest{RoleID: sysRoleID.String()})
		if apperror.KindOf(err) != apperror.KindForbidden {
			t.Errorf("assigning system role %s: expected forbidden, got %v", sysRoleID, err)
		}
	}

	// A member currently holding a system role cannot be reassigned off it.
	sysHolder, _ := env.addMember(t, org.ID, env.memberRole(t, org.ID).ID, "sys-holder@example.com")
	_, err := env.members.AssignRole(ctx, org.ID, sysHolder.ID, owner.ID, AssignRoleRequest{RoleID: customID.String()})
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("reassigning a system-role holder: expected forbidden, got %v", err)
	}
}

func TestAssignRoleSelfForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "assign-self")

	customID := env.createCustomRole(t, org.ID, owner.ID, "Custom", nil)
	ownerMember, err := env.memberRepo.FindByOrgAndUser(ctx, org.ID, owner.ID)
	if err != nil {
		t.Fatalf("load owner membership: %v", err)
	}

	// The self check fires before any role inspection.
	_, err = env.members.AssignRole(ctx, org.ID, ownerMember.ID, owner.ID, AssignRoleRequest{RoleID: customID.String()})
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Fatalf("self role change: expected forbidden, got %v", err)
	}
}

func TestAssignRoleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "assign-bad")
	otherOrg, otherOwner := env.createOrg(t, "assign-bad-b")

	roleID := env.createCustomRole(t, org.ID, owner.ID, "Here", nil)
	foreignRoleID := env.createCustomRole(t, otherOrg.ID, otherOwner.ID, "There", nil)
	member, _ := env.addMember(t, org.ID, roleID, "target@example.com")

	// Role from another org.
	_, err := env.members.AssignRole(ctx, org.ID, member.ID, owner.ID, AssignRoleRequest{RoleID: foreignRoleID.String()})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("foreign role: expected validation error, got %v", err)
	}

	// Unknown member.
	_, err = env.members.AssignRole(ctx, org.ID, uuid.New(), owner.ID, AssignRoleRequest{RoleID: roleID.String()})
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("unknown member: expected not found, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "remove")

	customID := env.createCustomRole(t, org.ID, owner.ID, "Custom", nil)
	member, _ := env.addMember(t, org.ID, customID, "leaver@example.com")

	if err := env.members.RemoveMember(ctx, org.ID, member.ID, owner.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, err := env.memberRepo.FindByID(ctx, org.ID, member.ID); err == nil {
		t.Error("member row still present after removal")
	}

	// Removing again is not found.
	if err := env.members.RemoveMember(ctx, org.ID, member.ID, owner.ID); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("double removal: expected not found, got %v", err)
	}
}

func TestRemoveMemberGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "remove-guard")

	// System-role holders cannot be removed.
	sysHolder, _ := env.addMember(t, org.ID, env.memberRole(t, org.ID).ID, "protected@example.com")
	if err := env.members.RemoveMember(ctx, org.ID, sysHolder.ID, owner.ID); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("removing system-role holder: expected forbidden, got %v", err)
	}

	// Operators cannot remove their own membership.
	ownerMember, err := env.memberRepo.FindByOrgAndUser(ctx, org.ID, owner.ID)
	if err != nil {
		t.Fatalf("load owner membership: %v", err)
	}
	if err := env.members.RemoveMember(ctx, org.ID, ownerMember.ID, owner.ID); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("self removal: expected forbidden, got %v", err)
	}
}

func TestListMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "roster")

	customID := env.createCustomRole(t, org.ID, owner.ID, "Custom", nil)
	env.addMember(t, org.ID, customID, "a@example.com")
	env.addMember(t, org.ID, customID, "b@example.com")

	members, err := env.members.ListMembers(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	// Owner plus the two added members.
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	for _, m := range members {
		if m.RoleName == "" {
			t.Errorf("member %s missing role name in listing", m.Email)
		}
	}
}
