package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	base.EnsureID()
	return nil
}

// EnsureID assigns a UUID when none is set. Stores that bypass gorm hooks
// call it directly before inserting.
func (base *BaseModel) EnsureID() {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
}
