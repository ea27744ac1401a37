package errors

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code    string    `json:"code"`              // Business error code, e.g., "OTP_EXPIRED"
	Kind    ErrorKind `json:"kind"`              // Stable error category
	Message string    `json:"message"`           // User-friendly error message
	Details any       `json:"details,omitempty"` // Detailed error information (development only)
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"` // Request tracking ID
}

// SuccessResponse defines the structure for successful responses
type SuccessResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data"`
	Meta    *MetaInfo `json:"meta"`
}

// ErrorResponse defines the structure for error responses
type ErrorResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Error   *ErrorInfo `json:"error"`
	Meta    *MetaInfo  `json:"meta"`
}
