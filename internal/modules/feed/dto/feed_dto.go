package dto

import (
	"time"

	"anoa.com/notifiq/internal/entity"
	"github.com/google/uuid"
)

type FeedQuery struct {
	Category string `form:"category"`
	Search   string `form:"q"`
	Width    int    `form:"width" binding:"omitempty,min=0"`
	Columns  int    `form:"columns" binding:"omitempty,min=1,max=3"`
}

// NoticeCard is a notice with everything the board derives for display.
type NoticeCard struct {
	ID              uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	DescriptionHTML string               `json:"description_html"`
	Category        string               `json:"category"`
	Priority        string               `json:"priority"`
	Color           string               `json:"color"`
	CollegeID       uuid.UUID            `json:"college_id"`
	AuthorID        uuid.UUID            `json:"author_id"`
	AuthorName      string               `json:"author_name"`
	Links           []entity.NoticeLink  `json:"links"`
	Images          []entity.NoticeImage `json:"images"`
	ExpiryDate      *time.Time           `json:"expiry_date,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Expired         bool                 `json:"expired"`
	Pinned          bool                 `json:"pinned"`
	BadgeClass      string               `json:"badge_class"`
	PriorityColor   string               `json:"priority_color"`
}

// FeedResponse holds the filtered list and its masonry layout. Columns
// holds positions into Notices.
type FeedResponse struct {
	Notices []NoticeCard `json:"notices"`
	Columns [][]int      `json:"columns"`
	Error   string       `json:"error,omitempty"`
}

type PinResponse struct {
	NoticeID uuid.UUID `json:"notice_id"`
	Pinned   bool      `json:"pinned"`
}
