package models

// LoginResponse represents the response to a successful login
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// SuspiciousLoginResponse is returned when a sign-in is denied pending
// verification of a new login context.
type SuspiciousLoginResponse struct {
	Message          string   `json:"message"`
	MismatchedFields []string `json:"mismatched_fields,omitempty"`
}
