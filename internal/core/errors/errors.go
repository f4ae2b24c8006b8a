package errors

const (
	HttpInternalError  = "internal_error"
	HttpInvalidRequest = "invalid_request"
	HttpSchemaError    = "dataset_schema_error"
	HttpUpstreamError  = "upstream_error"
)

// ErrorResponse is the error response body for all API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
