package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvitationStatus is the closed state set of an invitation. The only legal
// transitions are pending -> accepted, pending -> declined, pending -> expired.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is the fixed validity window from issuance.
const InvitationTTL = 72 * time.Hour

// Invitation offers a specific role in a specific organization to an email
// address, via a single-use token. Rows are never deleted; resolved
// invitations remain as audit records.
type Invitation struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"org_id"`
	InvitedEmail    string           `gorm:"type:varchar(255);not null;index" json:"invited_email"` // stored lower case
	InvitedByUserID uuid.UUID        `gorm:"type:uuid;not null" json:"invited_by_user_id"`
	RoleToAssignID  uuid.UUID        `gorm:"type:uuid;not null" json:"role_to_assign_id"`
	Token           string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Status          InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpiresAt       time.Time        `gorm:"not null" json:"expires_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
