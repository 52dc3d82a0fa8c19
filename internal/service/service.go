// Package service holds the business rules of users and todo items on top of
// an injected storage.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

// MsgTodoItemNotFound replaces every storage failure of a single item fetch.
const MsgTodoItemNotFound = "Todo item not found"

type userKeeper interface {
	CreateUser(ctx context.Context, name string) (string, error)
}

type todoKeeper interface {
	CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error)

	GetTodosByUserID(
		ctx context.Context,
		userID string,
		todoID string,
		page models.PageRequest,
	) (*models.TodoPage, error)

	UpdateTodoItem(ctx context.Context, userID, todoID string, update models.TodoUpdate) error

	RemoveTodoItem(ctx context.Context, userID, todoID string) error
}

// UserServiceError is a violated rule of the users service.
type UserServiceError struct {
	Message string
}

func (e *UserServiceError) Error() string {
	return e.Message
}

// TodoServiceError is a violated rule of the todo service, or a normalized
// storage failure.
type TodoServiceError struct {
	Message string
}

func (e *TodoServiceError) Error() string {
	return e.Message
}

func newTodoServiceError(message string) *TodoServiceError {
	return &TodoServiceError{Message: message}
}

// asTodoServiceError keeps a TodoServiceError and converts anything else into
// one carrying the same message.
func asTodoServiceError(err error) error {
	var serviceErr *TodoServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	return newTodoServiceError(err.Error())
}

type UserService struct {
	db userKeeper
}

func NewUserService(db userKeeper) *UserService {
	return &UserService{db: db}
}

// CreateUser registers a user and returns its id.
func (s *UserService) CreateUser(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", &UserServiceError{Message: "Name is required"}
	}

	return s.db.CreateUser(ctx, name)
}

type TodoService struct {
	db todoKeeper
}

func NewTodoService(db todoKeeper) *TodoService {
	return &TodoService{db: db}
}

func requireFields(fields ...models.Field) error {
	for _, field := range fields {
		if field.Value == "" {
			return newTodoServiceError(models.RequiredError(field.Name))
		}
	}

	return nil
}

// CreateTodoItem stores a new item of userID and returns its id.
func (s *TodoService) CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error) {
	if err := requireFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "name", Value: todo.Name},
		models.Field{Name: "description", Value: todo.Description},
	); err != nil {
		return "", err
	}

	return s.db.CreateTodoItem(ctx, userID, todo)
}

// GetTodosByUserID returns one page of the items of userID.
func (s *TodoService) GetTodosByUserID(
	ctx context.Context,
	userID string,
	page models.PageRequest,
) (*models.TodoPage, error) {
	if err := requireFields(models.Field{Name: "userId", Value: userID}); err != nil {
		return nil, err
	}

	return s.db.GetTodosByUserID(ctx, userID, "", page)
}

// GetTodoItemByUserID returns the item todoID of userID. An unknown item is
// returned as an empty TodoItem, not as an error.
func (s *TodoService) GetTodoItemByUserID(ctx context.Context, userID, todoID string) (models.TodoItem, error) {
	if err := requireFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return models.TodoItem{}, err
	}

	page, err := s.db.GetTodosByUserID(ctx, userID, todoID, models.DefaultPageRequest())
	if err != nil {
		logger.Log.Debugln("Error calling the `s.db.GetTodosByUserID()`", zap.Error(err))
		return models.TodoItem{}, newTodoServiceError(MsgTodoItemNotFound)
	}
	if len(page.TodoItems) == 0 {
		return models.TodoItem{}, nil
	}

	return page.TodoItems[0], nil
}

// UpdateTodoItem applies update and returns the item as stored afterwards.
func (s *TodoService) UpdateTodoItem(
	ctx context.Context,
	userID string,
	todoID string,
	update models.TodoUpdate,
) (models.TodoItem, error) {
	if err := requireFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return models.TodoItem{}, err
	}

	if err := s.db.UpdateTodoItem(ctx, userID, todoID, update); err != nil {
		return models.TodoItem{}, asTodoServiceError(err)
	}

	item, err := s.GetTodoItemByUserID(ctx, userID, todoID)
	if err != nil {
		return models.TodoItem{}, asTodoServiceError(err)
	}

	return item, nil
}

// RemoveTodoItem deletes the item todoID of userID.
func (s *TodoService) RemoveTodoItem(ctx context.Context, userID, todoID string) error {
	if err := requireFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return err
	}

	if err := s.db.RemoveTodoItem(ctx, userID, todoID); err != nil {
		return asTodoServiceError(err)
	}

	return nil
}
