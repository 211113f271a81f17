package models

// ErrorResponse is the body returned for any non-2xx response. Clients read
// Message for display and Data for field-level detail when present.
type ErrorResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination describes the slice of a collection returned by list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
