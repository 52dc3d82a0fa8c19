// Package models holds the domain types shared by the storage backends,
// the service layer and the HTTP handlers.
package models

import (
	"time"
)

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeMongo
	StorageTypeFile
	StorageTypeMemory
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// User is a registered owner of todo items.
type User struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"createdDate"`
}

// TodoItem is a single todo entry. Every field is omitted from JSON when empty,
// so listing entries render as {id, name} and a missing item renders as {}.
type TodoItem struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	Created      *time.Time `json:"created,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// IsEmpty reports whether the item carries no data at all.
func (t TodoItem) IsEmpty() bool {
	return t == TodoItem{}
}

// NewTodo carries the fields required to create a todo item.
type NewTodo struct {
	Name        string
	Description string
}

// TodoUpdate is a partial update: nil fields are left untouched.
type TodoUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Fields returns the supplied fields keyed by their stored column/field name.
func (u TodoUpdate) Fields() map[string]interface{} {
	result := map[string]interface{}{}
	if u.Name != nil {
		result["name"] = *u.Name
	}
	if u.Description != nil {
		result["description"] = *u.Description
	}

	return result
}

// IsEmpty reports whether no field was supplied.
func (u TodoUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil
}

// PageRequest selects one page of a listing.
type PageRequest struct {
	Page     int
	PageSize int
}

// DefaultPageRequest returns the page used when the caller does not ask for one.
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: DefaultPage, PageSize: DefaultPageSize}
}

// PageInfo describes the page returned by a listing. It is all zeros for
// single item fetches.
type PageInfo struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"pageSize"`
	TotalPages   int64 `json:"totalPages"`
	TotalEntries int64 `json:"totalEntries"`
}

// TodoPage is the result of a todo lookup.
type TodoPage struct {
	PageInfo  PageInfo
	TodoItems []TodoItem
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

type CreateUserResponse struct {
	Status string `json:"status"`
	UserID string `json:"userId"`
}

// CreateTodoRequest is validated before it is converted to NewTodo. Fields are
// untyped so that a wrong JSON type is reported as a validation error instead
// of a decoding failure.
type CreateTodoRequest struct {
	Name        interface{} `json:"name" validate:"required,string,min=1,max=20"`
	Description interface{} `json:"description" validate:"required,string,min=1"`
}

type CreateTodoResponse struct {
	TodoID string `json:"todoId"`
}

type ListTodosResponse struct {
	Status   string     `json:"status"`
	PageInfo PageInfo   `json:"pageInfo"`
	Items    []TodoItem `json:"items"`
}

type TodoDetailsResponse struct {
	Status  string   `json:"status"`
	Details TodoItem `json:"details"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidationErrorsResponse struct {
	Errors []ValidationError `json:"errors"`
}

const StatusOK = "ok"
