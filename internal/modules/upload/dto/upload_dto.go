package dto

type UploadResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}
