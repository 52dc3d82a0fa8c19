package models

import "errors"

// ErrConnection is returned (wrapped) when the document store cannot be reached.
var ErrConnection = errors.New("could not connect to the document store")

// Messages used by every storage backend.
const (
	MsgNoDataFound     = "No data found"
	MsgFailedToUpdate  = "Failed to update"
	MsgFailedToRemove  = "Failed to remove"
	MsgInvalidUser     = "Invalid user"
	MsgInvalidPageSize = "pageSize must be a positive integer"
)

// UserDBError is a data access failure on the users collection.
type UserDBError struct {
	Message string
}

func (e *UserDBError) Error() string {
	return e.Message
}

func NewUserDBError(message string) *UserDBError {
	return &UserDBError{Message: message}
}

// TodoDBError is a data access failure on the todos collection.
type TodoDBError struct {
	Message string
}

func (e *TodoDBError) Error() string {
	return e.Message
}

func NewTodoDBError(message string) *TodoDBError {
	return &TodoDBError{Message: message}
}

// RequiredError returns the message reported for a missing mandatory field.
func RequiredError(field string) string {
	return field + " is required"
}

// Field is a named mandatory value.
type Field struct {
	Name  string
	Value string
}

// RequireTodoFields returns a TodoDBError for the first empty field.
func RequireTodoFields(fields ...Field) error {
	for _, field := range fields {
		if field.Value == "" {
			return NewTodoDBError(RequiredError(field.Name))
		}
	}

	return nil
}
