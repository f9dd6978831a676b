package dto

type CreateCollegeRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Code        string `json:"code" binding:"required,max=50"`
	DefaultRole string `json:"default_role" binding:"omitempty,oneof=viewer admin"`
}

type AssignAdminRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required,max=100"`
	CollegeID string `json:"college_id" binding:"required,uuid"`
}

type AdminResponse struct {
	ProfileID   string `json:"profile_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CollegeID   string `json:"college_id,omitempty"`
	CollegeName string `json:"college_name"`
	Pending     bool   `json:"pending"`
}
