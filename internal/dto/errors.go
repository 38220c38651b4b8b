package dto

type ErrorResponse struct {
	Code    string `json:"code" example:"invalid_path"`
	Message string `json:"message" example:"path escapes the permitted root"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}

type ValidationError struct {
	Field   string `json:"field" example:"target_path"`
	Message string `json:"message" example:"target_path is required"`
}
