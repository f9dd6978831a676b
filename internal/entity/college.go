package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// College is a tenant. Code is the access code presented at join time and
// is deliberately not unique.
type College struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Code        string    `gorm:"size:50;index;not null" json:"code"`
	DefaultRole string    `gorm:"size:20;not null;default:viewer" json:"default_role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *College) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	if c.DefaultRole == "" {
		c.DefaultRole = RoleViewer
	}
	return
}
