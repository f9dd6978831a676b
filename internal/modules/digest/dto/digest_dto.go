package dto

import (
	"time"

	"github.com/google/uuid"
)

type DigestItem struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	Unread    bool      `json:"unread"`
}

type DigestResponse struct {
	Items    []DigestItem `json:"items"`
	Unread   int          `json:"unread"`
	LastRead *time.Time   `json:"last_read,omitempty"`
}
