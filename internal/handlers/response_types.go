package handlers

import "github.com/voxgate/voxgate/internal/status"

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message" example:"Operation completed successfully"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Something went wrong"`
	Details string `json:"details,omitempty"`
}

// StatusResponse represents the current pipeline status
type StatusResponse struct {
	Listening bool         `json:"listening"`
	Enrolled  bool         `json:"enrolled"`
	Enrolling bool         `json:"enrolling"`
	State     string       `json:"state"`
	Last      status.Event `json:"last"`
}

// TokenRequest represents the request body for issuing an API token
type TokenRequest struct {
	Secret  string `json:"secret" binding:"required"`
	Subject string `json:"subject"`
}

// TokenResponse represents an issued API token
type TokenResponse struct {
	Token string `json:"token"`
}
