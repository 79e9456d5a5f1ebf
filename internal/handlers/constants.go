package handlers

const (
	maxRequestBodyBytes = 1 << 20

	ErrInvalidRequestBody   = "Invalid request body"
	ErrTooManyRequests      = "Too many requests"
	ErrUnsupportedMediaType = "Content-Type must be application/json"
)
