// Package mockstorage provides a testify-based mock implementation of the
// storage interfaces consumed by the service, identity and router packages.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/todoapi/internal/models"
)

// StorageMock is a testify mock of a storage backend.
//
// Use it in service and handler tests to simulate database behavior.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CreateUser mocks user creation and returns a generated ID.
func (m *StorageMock) CreateUser(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// GetUser mocks fetching a user by its ID.
func (m *StorageMock) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// CreateTodoItem mocks storing a todo item.
func (m *StorageMock) CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error) {
	args := m.Called(ctx, userID, todo)
	return args.String(0), args.Error(1)
}

// GetTodosByUserID mocks both the listing and the single item lookup.
func (m *StorageMock) GetTodosByUserID(
	ctx context.Context,
	userID string,
	todoID string,
	page models.PageRequest,
) (*models.TodoPage, error) {
	args := m.Called(ctx, userID, todoID, page)
	result, _ := args.Get(0).(*models.TodoPage)
	return result, args.Error(1)
}

// UpdateTodoItem mocks a partial update.
func (m *StorageMock) UpdateTodoItem(ctx context.Context, userID, todoID string, update models.TodoUpdate) error {
	args := m.Called(ctx, userID, todoID, update)
	return args.Error(0)
}

// RemoveTodoItem mocks a delete.
func (m *StorageMock) RemoveTodoItem(ctx context.Context, userID, todoID string) error {
	args := m.Called(ctx, userID, todoID)
	return args.Error(0)
}
