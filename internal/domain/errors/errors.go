package errors

import "errors"

// Domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotAuthorised  = errors.New("not authorised")
	ErrGatewayTimeout = errors.New("gateway timeout")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrEmptyCatalog   = errors.New("empty product catalog")
)

// GatewayError represents an explicit rejection from the transaction backend
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return "gateway rejected request (" + e.Code + "): " + e.Message
	}
	return "gateway rejected request (" + e.Code + ")"
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a gateway rejection error carrying the backend
// response code
func NewGatewayError(code, message string) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Err:     ErrNotAuthorised,
	}
}
