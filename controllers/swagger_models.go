package controllers

// StandardErrorResponse represents a standardized error response body
type StandardErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// MessageResponse represents a simple message response body
type MessageResponse struct {
	Message string `json:"message" example:"permissions updated"`
}
