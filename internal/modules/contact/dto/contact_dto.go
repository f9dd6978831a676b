package dto

type ContactRequest struct {
	OrganizationName string `json:"organization_name" binding:"required,max=150"`
	UserName         string `json:"user_name" binding:"required,max=100"`
	UserEmail        string `json:"user_email" binding:"required,email"`
	UserPhone        string `json:"user_phone" binding:"omitempty,max=30"`
	Purpose          string `json:"purpose" binding:"omitempty,max=50"`
	Message          string `json:"message" binding:"required,max=5000"`
}
