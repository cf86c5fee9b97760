package errors

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string `json:"message"`
	InternalError string `json:"internal_error,omitempty"`
}

// NewErrorResponse builds the wire representation for a failed request
func NewErrorResponse(err error) ErrorResponse {
	detail := ErrorDetail{
		Display:       Hint(err),
		InternalError: err.Error(),
	}
	if detail.Display == "" {
		detail.Display = "Something went wrong"
	}
	return ErrorResponse{Success: false, Error: detail}
}
