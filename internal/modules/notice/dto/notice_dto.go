package dto

import "time"

type LinkInput struct {
	URL  string `json:"url" binding:"required,url"`
	Name string `json:"name" binding:"max=200"`
}

type ImageInput struct {
	URL  string `json:"url" binding:"required,url"`
	Name string `json:"name" binding:"max=255"`
}

// NoticeRequest is the full field set of a notice. Updates overwrite every
// field. PendingLink is a link the author typed but never confirmed; it is
// appended on submit.
type NoticeRequest struct {
	Title           string       `json:"title" binding:"required,max=120"`
	Description     string       `json:"description" binding:"max=10000"`
	Category        string       `json:"category" binding:"omitempty,oneof=General Exam Event Urgent Verified Holiday"`
	Priority        string       `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	Color           string       `json:"color" binding:"omitempty,oneof=default red blue green yellow"`
	Links           []LinkInput  `json:"links" binding:"omitempty,dive"`
	Images          []ImageInput `json:"images" binding:"omitempty,dive"`
	ExpiryDate      *time.Time   `json:"expiry_date"`
	PendingLink     string       `json:"pending_link" binding:"omitempty,url"`
	PendingLinkName string       `json:"pending_link_name" binding:"max=200"`
}
