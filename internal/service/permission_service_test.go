package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestHasPermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "perm-check")

	// The owner holds the full catalog snapshot.
	for _, code := range []string{"org:read", "roles:delete", "audit:read"} {
		ok, err := env.perms.HasPermission(ctx, owner.ID, org.ID, code)
		if err != nil {
			t.Fatalf("HasPermission(%s): %v", code, err)
		}
		if !ok {
			t.Errorf("owner should hold %s", code)
		}
	}

	// A member on a scoped role holds exactly its set.
	roleID := env.createCustomRole(t, org.ID, owner.ID, "Viewer", catalogIDs(t, env, "members:read"))
	_, viewer := env.addMember(t, org.ID, roleID, "viewer@example.com")

	ok, err := env.perms.HasPermission(ctx, viewer.ID, org.ID, "members:read")
	if err != nil || !ok {
		t.Errorf("viewer should hold members:read, got (%v, %v)", ok, err)
	}
	ok, err = env.perms.HasPermission(ctx, viewer.ID, org.ID, "members:remove")
	if err != nil || ok {
		t.Errorf("viewer must not hold members:remove, got (%v, %v)", ok, err)
	}
}

func TestHasPermissionNonMemberDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, _ := env.createOrg(t, "perm-outsider")
	outsider := env.createUser(t, "outsider@example.com", "Outsider")

	// Default deny: no membership row is a clean false, never an error.
	ok, err := env.perms.HasPermission(ctx, outsider.ID, org.ID, "org:read")
	if err != nil {
		t.Fatalf("HasPermission for non-member: %v", err)
	}
	if ok {
		t.Error("non-member must not hold any permission")
	}

	isMember, err := env.perms.IsMember(ctx, outsider.ID, org.ID)
	if err != nil || isMember {
		t.Errorf("IsMember for outsider: got (%v, %v)", isMember, err)
	}

	// Unknown users deny the same way.
	ok, err = env.perms.HasPermission(ctx, uuid.New(), org.ID, "org:read")
	if err != nil || ok {
		t.Errorf("unknown user: got (%v, %v)", ok, err)
	}
}

func TestPermissionChangesTakeEffectImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "perm-fresh")

	roleID := env.createCustomRole(t, org.ID, owner.ID, "Shifting", catalogIDs(t, env, "members:read"))
	_, user := env.addMember(t, org.ID, roleID, "shifting@example.com")

	if ok, _ := env.perms.HasPermission(ctx, user.ID, org.ID, "members:read"); !ok {
		t.Fatal("expected initial grant of members:read")
	}

	// Swap the role's set; the next check must see the new state.
	perms := catalogIDs(t, env, "roles:read")
	if _, err := env.roles.UpdateRole(ctx, org.ID, roleID, owner.ID, UpdateRoleRequest{PermissionIDs: &perms}); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}

	if ok, _ := env.perms.HasPermission(ctx, user.ID, org.ID, "members:read"); ok {
		t.Error("revoked permission still granted")
	}
	if ok, _ := env.perms.HasPermission(ctx, user.ID, org.ID, "roles:read"); !ok {
		t.Error("newly granted permission not visible")
	}
}

func TestListUserPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org, owner := env.createOrg(t, "perm-list")

	roleID := env.createCustomRole(t, org.ID, owner.ID, "Pair", catalogIDs(t, env, "org:read", "roles:read"))
	_, user := env.addMember(t, org.ID, roleID, "pair@example.com")

	codes, err := env.perms.ListUserPermissions(ctx, user.ID, org.ID)
	if err != nil {
		t.Fatalf("ListUserPermissions: %v", err)
	}
	if len(codes) != 2 {
		t.Errorf("expected 2 codes, got %v", codes)
	}

	// Non-members get an empty set, not an error.
	outsider := env.createUser(t, "perm-list-out@example.com", "Out")
	codes, err = env.perms.ListUserPermissions(ctx, outsider.ID, org.ID)
	if err != nil {
		t.Fatalf("ListUserPermissions for outsider: %v", err)
	}
	if len(codes) != 0 {
		t.Errorf("outsider permissions should be empty, got %v", codes)
	}
}

func TestSeedCatalogIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.perms.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}

	if err := env.perms.SeedCatalog(ctx); err != nil {
		t.Fatalf("second SeedCatalog: %v", err)
	}

	second, err := env.perms.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("reseeding changed catalog size: %d -> %d", len(first), len(second))
	}
}
