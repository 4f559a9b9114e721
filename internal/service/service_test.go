package service

import (
	"context"
	"testing"

	"orghub/internal/database"
	"orghub/internal/model"
	"orghub/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// testEnv wires the full service stack against an in-memory sqlite database.
type testEnv struct {
	db *gorm.DB

	userRepo   repository.UserRepository
	orgRepo    repository.OrganizationRepository
	roleRepo   repository.RoleRepository
	memberRepo repository.MemberRepository
	invRepo    repository.InvitationRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager

	auth    AuthService
	orgs    OrganizationService
	roles   RoleService
	members MemberService
	invites InvitationService
	perms   PermissionService
	audit   AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every pooled connection gets its own :memory: database; pin to one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	env := &testEnv{
		db:         db,
		userRepo:   repository.NewUserRepository(db),
		orgRepo:    repository.NewOrganizationRepository(db),
		roleRepo:   repository.NewRoleRepository(db),
		memberRepo: repository.NewMemberRepository(db),
		invRepo:    repository.NewInvitationRepository(db),
		auditRepo:  repository.NewAuditRepository(db),
		txManager:  repository.NewTransactionManager(db),
	}

	env.auth = NewAuthService(env.userRepo)
	env.perms = NewPermissionService(env.roleRepo, env.memberRepo)
	env.roles = NewRoleService(env.roleRepo, env.memberRepo, env.auditRepo, env.txManager, nil)
	env.members = NewMemberService(env.memberRepo, env.roleRepo, env.auditRepo, env.txManager, nil)
	env.orgs = NewOrganizationService(env.orgRepo, env.userRepo, env.roles, env.members, env.auditRepo, env.txManager)
	env.invites = NewInvitationService(env.invRepo, env.roleRepo, env.memberRepo, env.userRepo, env.auditRepo, env.txManager, nil)
	env.audit = NewAuditService(env.auditRepo)

	if err := env.perms.SeedCatalog(context.Background()); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	return env
}

func (e *testEnv) createUser(t *testing.T, email, displayName string) *model.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterRequest{
		Email:       email,
		DisplayName: displayName,
		Password:    "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("failed to register user %s: %v", email, err)
	}
	id := uuid.MustParse(user.ID)
	u, err := e.userRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load user %s: %v", email, err)
	}
	return u
}

// createOrg bootstraps an org owned by a fresh user and returns the org row
// plus the owner user.
func (e *testEnv) createOrg(t *testing.T, slug string) (*model.Organization, *model.User) {
	t.Helper()
	owner := e.createUser(t, slug+"-owner@example.com", "Owner of "+slug)
	resp, err := e.orgs.CreateOrganization(context.Background(), owner.ID, CreateOrganizationRequest{
		Name: slug,
		Slug: slug,
	})
	if err != nil {
		t.Fatalf("failed to create org %s: %v", slug, err)
	}
	org, err := e.orgRepo.FindByID(context.Background(), uuid.MustParse(resp.ID))
	if err != nil {
		t.Fatalf("failed to load org %s: %v", slug, err)
	}
	return org, owner
}

// memberRole returns the org's system Member role.
func (e *testEnv) memberRole(t *testing.T, orgID uuid.UUID) *model.Role {
	t.Helper()
	role, err := e.roleRepo.FindByName(context.Background(), orgID, model.RoleNameMember)
	if err != nil {
		t.Fatalf("failed to load Member role: %v", err)
	}
	return role
}

// ownerRole returns the org's system Owner role.
func (e *testEnv) ownerRole(t *testing.T, orgID uuid.UUID) *model.Role {
	t.Helper()
	role, err := e.roleRepo.FindByName(context.Background(), orgID, model.RoleNameOwner)
	if err != nil {
		t.Fatalf("failed to load Owner role: %v", err)
	}
	return role
}

// createCustomRole creates a role through the service and returns its id.
func (e *testEnv) createCustomRole(t *testing.T, orgID, operatorID uuid.UUID, name string, permissionIDs []string) uuid.UUID {
	t.Helper()
	resp, err := e.roles.CreateRole(context.Background(), orgID, operatorID, CreateRoleRequest{
		Name:          name,
		PermissionIDs: permissionIDs,
	})
	if err != nil {
		t.Fatalf("failed to create role %s: %v", name, err)
	}
	return uuid.MustParse(resp.ID)
}

// addMember creates a user and binds them to the role via direct repo insert,
// the same shape invitation acceptance produces.
func (e *testEnv) addMember(t *testing.T, orgID, roleID uuid.UUID, email string) (*model.Member, *model.User) {
	t.Helper()
	user := e.createUser(t, email, "Member "+email)
	member := &model.Member{
		OrgID:       orgID,
		UserID:      user.ID,
		Email:       email,
		DisplayName: user.DisplayName,
		OrgRoleID:   roleID,
	}
	if err := e.memberRepo.Create(context.Background(), member); err != nil {
		t.Fatalf("failed to add member %s: %v", email, err)
	}
	return member, user
}
