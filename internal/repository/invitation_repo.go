package repository

import (
	"context"

	"orghub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *model.Invitation) error
	Update(ctx context.Context, inv *model.Invitation) error
	FindByToken(ctx context.Context, token string) (*model.Invitation, error)
	FindPendingByOrgEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Invitation, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Invitation, int64, error)
}

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	return GetDB(ctx, r.db).Create(inv).Error
}

func (r *invitationRepository) Update(ctx context.Context, inv *model.Invitation) error {
	return GetDB(ctx, r.db).Save(inv).Error
}

func (r *invitationRepository) FindByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := GetDB(ctx, r.db).First(&inv, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) FindPendingByOrgEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Invitation, error) {
	var inv model.Invitation
	err := GetDB(ctx, r.db).
		Where("org_id = ? AND invited_email = ? AND status = ?", orgID, email, model.InvitationPending).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Invitation, int64, error) {
	var invs []model.Invitation
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Invitation{}).Where("org_id = ?", orgID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("org_id = ?", orgID).Order("created_at desc").Offset(offset).Limit(limit).Find(&invs).Error; err != nil {
		return nil, 0, err
	}

	return invs, total, nil
}
