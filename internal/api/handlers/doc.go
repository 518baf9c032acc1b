// Package handlers implements the HTTP operations of the pricely API.
// Every operation is registered through Huma and depends on a narrow
// provider interface rather than on the tracking service itself.
package handlers

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
