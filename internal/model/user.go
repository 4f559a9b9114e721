package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a global account. Organization-level capabilities are carried by
// Member rows, never by the user itself.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, omitted from JSON
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
