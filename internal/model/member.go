package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member binds one user to one organization with exactly one role.
// Email and DisplayName are denormalized snapshots used for listing.
type Member struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_org_user;uniqueIndex:idx_members_org_email;index" json:"org_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_org_user;index" json:"user_id"`
	Email       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_members_org_email" json:"email"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	OrgRoleID   uuid.UUID `gorm:"type:uuid;not null;index" json:"org_role_id"`
	Role        *Role     `gorm:"foreignKey:OrgRoleID" json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
