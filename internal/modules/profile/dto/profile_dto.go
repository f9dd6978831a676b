package dto

import "anoa.com/notifiq/internal/entity"

type UpdateProfileInput struct {
	Name string `json:"name" binding:"required,max=100"`
}

type JoinCollegeInput struct {
	Code string `json:"code" binding:"required,max=50"`
}

// ProfileResponse is the merged viewer plus the stored profile, if any.
type ProfileResponse struct {
	Viewer  entity.Viewer   `json:"viewer"`
	Profile *entity.Profile `json:"profile"`
}

type JoinCollegeResponse struct {
	Viewer   entity.Viewer `json:"viewer"`
	Redirect string        `json:"redirect"`
}
