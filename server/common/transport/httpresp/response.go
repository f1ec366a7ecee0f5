package httpresp

import "time"

const (
	ErrMissingFields      = "Missing required fields"
	ErrMissingMessage     = "No message provided"
	ErrInvalidBody        = "invalid request body"
	ErrMissingBearerToken = "bearer token is required"
	ErrInvalidToken       = "invalid token"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewHealthResponse(now time.Time) HealthResponse {
	return HealthResponse{Status: "OK", Timestamp: now.Format(time.RFC3339)}
}
