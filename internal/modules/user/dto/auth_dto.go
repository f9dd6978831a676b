package dto

import "anoa.com/notifiq/internal/entity"

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by every sign-in path. NeedsCollege is set when
// the viewer still has to present a college access code.
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	Viewer       entity.Viewer `json:"viewer"`
	SearchToken  string        `json:"search_token,omitempty"`
	NeedsCollege bool          `json:"needs_college"`
	Redirect     string        `json:"redirect"`
}
