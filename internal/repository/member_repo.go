package repository

import (
	"context"

	"orghub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	Update(ctx context.Context, member *model.Member) error
	Delete(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, orgID, memberID uuid.UUID) (*model.Member, error)
	FindByOrgAndUser(ctx context.Context, orgID, userID uuid.UUID) (*model.Member, error)
	FindByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Member, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]model.Member, error)
	CountByRole(ctx context.Context, orgID, roleID uuid.UUID) (int64, error)
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *model.Member) error {
	return GetDB(ctx, r.db).Create(member).Error
}

func (r *memberRepository) Update(ctx context.Context, member *model.Member) error {
	return GetDB(ctx, r.db).Save(member).Error
}

func (r *memberRepository) Delete(ctx context.Context, member *model.Member) error {
	return GetDB(ctx, r.db).Delete(member).Error
}

func (r *memberRepository) FindByID(ctx context.Context, orgID, memberID uuid.UUID) (*model.Member, error) {
	var member model.Member
	if err := GetDB(ctx, r.db).First(&member, "id = ? AND org_id = ?", memberID, orgID).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByOrgAndUser(ctx context.Context, orgID, userID uuid.UUID) (*model.Member, error) {
	var member model.Member
	if err := GetDB(ctx, r.db).Where("org_id = ? AND user_id = ?", orgID, userID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByOrgAndEmail matches the denormalized email snapshot, which is stored
// lower case alongside invitation emails.
func (r *memberRepository) FindByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Member, error) {
	var member model.Member
	if err := GetDB(ctx, r.db).Where("org_id = ? AND email = ?", orgID, email).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]model.Member, error) {
	var members []model.Member
	if err := GetDB(ctx, r.db).Preload("Role").Where("org_id = ?", orgID).Order("created_at asc").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) CountByRole(ctx context.Context, orgID, roleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Member{}).
		Where("org_id = ? AND org_role_id = ?", orgID, roleID).
		Count(&count).Error
	return count, err
}
