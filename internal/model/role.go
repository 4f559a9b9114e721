package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// System role names created for every organization at bootstrap.
const (
	RoleNameOwner  = "Owner"
	RoleNameMember = "Member"
)

// Role belongs to exactly one organization. Name is unique within the
// organization; system roles (Owner, Member) can never be renamed or deleted.
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_roles_org_name;index" json:"org_id"`
	Name        string       `gorm:"type:varchar(100);not null;uniqueIndex:idx_roles_org_name" json:"name"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent rename/deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Permission is a catalog entry seeded once at bootstrap and immutable at
// runtime. Codes are flat "<resource>:<action>" strings, e.g. "roles:assign".
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
