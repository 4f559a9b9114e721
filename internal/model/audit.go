package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateOrganization = "CREATE_ORGANIZATION"
	ActionUpdateOrganization = "UPDATE_ORGANIZATION"
	ActionCreateRole         = "CREATE_ROLE"
	ActionUpdateRole         = "UPDATE_ROLE"
	ActionDeleteRole         = "DELETE_ROLE"
	ActionAssignRole         = "ASSIGN_ROLE"
	ActionRemoveMember       = "REMOVE_MEMBER"
	ActionIssueInvitation    = "ISSUE_INVITATION"
	ActionAcceptInvitation   = "ACCEPT_INVITATION"
	ActionDeclineInvitation  = "DECLINE_INVITATION"
	ActionExpireInvitation   = "EXPIRE_INVITATION"
)

// AuditLog tracks Who, What, and When for critical organization changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-initiated entries
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/token id)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
