package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/todoapi/internal/mockstorage"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

const (
	testUserID = "64b7f0c2a1b2c3d4e5f60718"
	testTodoID = "64b7f0c2a1b2c3d4e5f60719"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	db := &mockstorage.StorageMock{}
	db.On("CreateUser", ctx, "Clemenza").Return(testUserID, nil)
	db.On("CreateUser", ctx, "Tessio").Return("", models.NewUserDBError("boom"))
	svc := NewUserService(db)

	userID, err := svc.CreateUser(ctx, "Clemenza")
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)

	_, err = svc.CreateUser(ctx, "")
	var serviceErr *UserServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "Name is required", serviceErr.Message)

	_, err = svc.CreateUser(ctx, "Tessio")
	var dbErr *models.UserDBError
	require.ErrorAs(t, err, &dbErr, "storage errors pass through")

	db.AssertNumberOfCalls(t, "CreateUser", 2)
}

func TestCreateTodoItemRequiredFields(t *testing.T) {
	ctx := context.Background()
	db := &mockstorage.StorageMock{}
	svc := NewTodoService(db)

	testCases := []struct {
		name    string
		userID  string
		todo    models.NewTodo
		message string
	}{
		{"no user", "", models.NewTodo{Name: "n", Description: "d"}, "userId is required"},
		{"no name", testUserID, models.NewTodo{Description: "d"}, "name is required"},
		{"no description", testUserID, models.NewTodo{Name: "n"}, "description is required"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := svc.CreateTodoItem(ctx, testCase.userID, testCase.todo)
			var serviceErr *TodoServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, testCase.message, serviceErr.Message)
		})
	}

	db.AssertNotCalled(t, "CreateTodoItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTodoItem(t *testing.T) {
	ctx := context.Background()
	todo := models.NewTodo{Name: "Buy milk", Description: "2 litres"}
	db := &mockstorage.StorageMock{}
	db.On("CreateTodoItem", ctx, testUserID, todo).Return(testTodoID, nil)

	todoID, err := NewTodoService(db).CreateTodoItem(ctx, testUserID, todo)
	require.NoError(t, err)
	assert.Equal(t, testTodoID, todoID)
	db.AssertExpectations(t)
}

func TestGetTodosByUserID(t *testing.T) {
	ctx := context.Background()
	page := models.PageRequest{Page: 2, PageSize: 5}
	expected := &models.TodoPage{
		PageInfo:  models.PageInfo{Page: 2, PageSize: 5, TotalPages: 2, TotalEntries: 7},
		TodoItems: []models.TodoItem{{ID: testTodoID, Name: "n"}},
	}
	db := &mockstorage.StorageMock{}
	db.On("GetTodosByUserID", ctx, testUserID, "", page).Return(expected, nil)
	svc := NewTodoService(db)

	result, err := svc.GetTodosByUserID(ctx, testUserID, page)
	require.NoError(t, err)
	assert.Equal(t, expected, result)

	_, err = svc.GetTodosByUserID(ctx, "", page)
	var serviceErr *TodoServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "userId is required", serviceErr.Message)
}

func TestGetTodoItemByUserID(t *testing.T) {
	ctx := context.Background()
	item := models.TodoItem{ID: testTodoID, Name: "n", Description: "d"}

	t.Run("found", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("GetTodosByUserID", ctx, testUserID, testTodoID, models.DefaultPageRequest()).
			Return(&models.TodoPage{TodoItems: []models.TodoItem{item}}, nil)

		result, err := NewTodoService(db).GetTodoItemByUserID(ctx, testUserID, testTodoID)
		require.NoError(t, err)
		assert.Equal(t, item, result)
	})

	t.Run("absent item is empty", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("GetTodosByUserID", ctx, testUserID, testTodoID, models.DefaultPageRequest()).
			Return(&models.TodoPage{TodoItems: []models.TodoItem{}}, nil)

		result, err := NewTodoService(db).GetTodoItemByUserID(ctx, testUserID, testTodoID)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
	})

	t.Run("storage failure is normalized", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("GetTodosByUserID", ctx, testUserID, testTodoID, models.DefaultPageRequest()).
			Return(nil, models.NewTodoDBError(models.MsgNoDataFound))

		_, err := NewTodoService(db).GetTodoItemByUserID(ctx, testUserID, testTodoID)
		var serviceErr *TodoServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, MsgTodoItemNotFound, serviceErr.Message)
	})

	t.Run("ids are required", func(t *testing.T) {
		_, err := NewTodoService(&mockstorage.StorageMock{}).GetTodoItemByUserID(ctx, testUserID, "")
		var serviceErr *TodoServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "todoId is required", serviceErr.Message)
	})
}

func TestUpdateTodoItem(t *testing.T) {
	ctx := context.Background()
	name := "renamed"
	update := models.TodoUpdate{Name: &name}

	t.Run("returns the refreshed item", func(t *testing.T) {
		refreshed := models.TodoItem{ID: testTodoID, Name: name, Description: "d"}
		db := &mockstorage.StorageMock{}
		db.On("UpdateTodoItem", ctx, testUserID, testTodoID, update).Return(nil)
		db.On("GetTodosByUserID", ctx, testUserID, testTodoID, models.DefaultPageRequest()).
			Return(&models.TodoPage{TodoItems: []models.TodoItem{refreshed}}, nil)

		result, err := NewTodoService(db).UpdateTodoItem(ctx, testUserID, testTodoID, update)
		require.NoError(t, err)
		assert.Equal(t, refreshed, result)
		db.AssertExpectations(t)
	})

	t.Run("storage message is kept", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("UpdateTodoItem", ctx, testUserID, testTodoID, update).
			Return(models.NewTodoDBError(models.MsgFailedToUpdate))

		_, err := NewTodoService(db).UpdateTodoItem(ctx, testUserID, testTodoID, update)
		var serviceErr *TodoServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, models.MsgFailedToUpdate, serviceErr.Message)
		db.AssertNotCalled(t, "GetTodosByUserID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refresh failure", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("UpdateTodoItem", ctx, testUserID, testTodoID, update).Return(nil)
		db.On("GetTodosByUserID", ctx, testUserID, testTodoID, models.DefaultPageRequest()).
			Return(nil, errors.New("socket closed"))

		_, err := NewTodoService(db).UpdateTodoItem(ctx, testUserID, testTodoID, update)
		var serviceErr *TodoServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, MsgTodoItemNotFound, serviceErr.Message)
	})
}

func TestRemoveTodoItem(t *testing.T) {
	ctx := context.Background()
	db := &mockstorage.StorageMock{}
	db.On("RemoveTodoItem", ctx, testUserID, testTodoID).Return(nil).Once()
	db.On("RemoveTodoItem", ctx, testUserID, testTodoID).Return(models.NewTodoDBError(models.MsgFailedToRemove)).Once()
	svc := NewTodoService(db)

	require.NoError(t, svc.RemoveTodoItem(ctx, testUserID, testTodoID))

	err := svc.RemoveTodoItem(ctx, testUserID, testTodoID)
	var serviceErr *TodoServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, models.MsgFailedToRemove, serviceErr.Message)

	err = svc.RemoveTodoItem(ctx, "", testTodoID)
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "userId is required", serviceErr.Message)
}
