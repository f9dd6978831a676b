package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CategoryGeneral  = "General"
	CategoryExam     = "Exam"
	CategoryEvent    = "Event"
	CategoryUrgent   = "Urgent"
	CategoryVerified = "Verified"
	CategoryHoliday  = "Holiday"

	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"

	ColorDefault = "default"
	ColorRed     = "red"
	ColorBlue    = "blue"
	ColorGreen   = "green"
	ColorYellow  = "yellow"
)

var (
	Categories = []string{CategoryGeneral, CategoryExam, CategoryEvent, CategoryUrgent, CategoryVerified, CategoryHoliday}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
	Colors     = []string{ColorDefault, ColorRed, ColorBlue, ColorGreen, ColorYellow}
)

type NoticeLink struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type NoticeImage struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type Notice struct {
	ID          uuid.UUID                        `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                           `gorm:"size:120;not null" json:"title"`
	Description string                           `gorm:"type:text" json:"description"`
	Category    string                           `gorm:"size:20;not null" json:"category"`
	Priority    string                           `gorm:"size:10;not null" json:"priority"`
	Color       string                           `gorm:"size:10;not null" json:"color"`
	CollegeID   uuid.UUID                        `gorm:"type:uuid;not null;index:idx_notices_college_created,priority:1" json:"college_id"`
	AuthorID    uuid.UUID                        `gorm:"type:uuid;not null" json:"author_id"`
	AuthorName  string                           `gorm:"size:100" json:"author_name"`
	Links       datatypes.JSONSlice[NoticeLink]  `json:"links"`
	Images      datatypes.JSONSlice[NoticeImage] `json:"images"`
	ExpiryDate  *time.Time                       `json:"expiry_date,omitempty"`
	CreatedAt   time.Time                        `gorm:"autoCreateTime;index:idx_notices_college_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt   time.Time                        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n *Notice) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}

// IsExpired is evaluated against the caller's clock, never persisted.
func (n *Notice) IsExpired(now time.Time) bool {
	return n.ExpiryDate != nil && n.ExpiryDate.Before(now)
}

// PinnedNotice is one entry in a viewer's saved set. The composite key makes
// add and remove single-statement operations.
type PinnedNotice struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	NoticeID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"notice_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PinnedNotice) TableName() string {
	return "pinned_notices"
}

// Upload tracks a hosted image until a notice references it. Rows that stay
// unattached past the grace period are swept by the cleanup job.
type Upload struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	NoticeID    *uuid.UUID `gorm:"type:uuid;index" json:"notice_id,omitempty"`
	URL         string     `gorm:"type:text;not null" json:"url"`
	FileName    string     `gorm:"size:255" json:"file_name"`
	ContentType string     `gorm:"size:100" json:"content_type"`
	Size        int64      `json:"size"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
