package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleViewer     = "viewer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// User is the sign-in identity. Everything tenant related lives on Profile.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	AvatarURL    *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	GoogleID     *string   `gorm:"size:100;uniqueIndex" json:"google_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile carries role and college affiliation. A profile without UserID is
// a placeholder pre-provisioned by email and is claimed at first sign-in.
type Profile struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id,omitempty"`
	Email       string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Name        string     `gorm:"size:100" json:"name"`
	Role        string     `gorm:"size:20;index" json:"role"`
	CollegeID   *uuid.UUID `gorm:"type:uuid;index" json:"college_id,omitempty"`
	CollegeName string     `gorm:"size:150" json:"college_name"`
	CollegeCode string     `gorm:"size:50" json:"college_code"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Profile) IsPlaceholder() bool {
	return p.UserID == nil
}

// IsPrivileged reports whether the role must survive a college join.
func IsPrivileged(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
