package dto

type RewriteRequest struct {
	Text string `json:"text" binding:"required,max=10000"`
	Tone string `json:"tone" binding:"required,oneof=Professional Casual Concise"`
}

type RewriteResponse struct {
	Text string `json:"text"`
}
