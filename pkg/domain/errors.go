package domain

import "fmt"

// APIError is the error shape the HTTP resource collaborator rejects with:
// a structured server message plus the response status. Transport failures
// carry status 0.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// ErrNotFound is returned when a record id cannot be resolved in a cached
// collection or by the server.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
