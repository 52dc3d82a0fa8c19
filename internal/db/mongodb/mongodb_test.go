package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patric-chuzhbe/todoapi/internal/models"
)

const (
	usersNS = "todo.users"
	todosNS = "todo.todos"
)

func newMockStorage(mt *mtest.T) *Storage {
	return New("", "todo", 0, WithConnector(
		func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
			return mt.Client, nil
		},
	))
}

func commandError() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    2,
		Name:    "BadValue",
		Message: "boom",
	})
}

func TestGatewayRetriesAfterFailedConnect(t *testing.T) {
	ctx := context.Background()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)

	calls := 0
	gateway := NewGateway("mongodb://unused", "todo", time.Second, WithConnector(
		func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("connection refused")
			}
			return client, nil
		},
	))

	_, err = gateway.Collection(ctx, UserCollection)
	assert.ErrorIs(t, err, models.ErrConnection)

	users, err := gateway.Collection(ctx, UserCollection)
	require.NoError(t, err)
	assert.Equal(t, "users", users.Name())
	assert.Equal(t, "todo", users.Database().Name())

	todos, err := gateway.Collection(ctx, TodoCollection)
	require.NoError(t, err)
	assert.Equal(t, "todos", todos.Name())

	assert.Equal(t, 2, calls, "the connection must be established once and then reused")
	assert.NoError(t, gateway.Close(ctx))
	assert.NoError(t, gateway.Close(ctx))
}

func TestUserDB(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create user", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		userID, err := storage.CreateUser(ctx, "Vito Corleone")
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(userID)
		assert.NoError(mt, err)
	})

	mt.Run("create user without name", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		_, err := storage.CreateUser(ctx, "")
		var dbErr *models.UserDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, "name is required", dbErr.Message)
	})

	mt.Run("get user", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, bson.D{
			{Key: "id", Value: id},
			{Key: "name", Value: "Tony Montana"},
			{Key: "created", Value: primitive.NewDateTimeFromTime(time.Now())},
		}))

		usr, err := storage.GetUser(ctx, id.Hex())
		require.NoError(mt, err)
		require.NotNil(mt, usr)
		assert.Equal(mt, id.Hex(), usr.ID)
		assert.Equal(mt, "Tony Montana", usr.Name)
	})

	mt.Run("get unknown user", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		usr, err := storage.GetUser(ctx, primitive.NewObjectID().Hex())
		assert.NoError(mt, err)
		assert.Nil(mt, usr)
	})

	mt.Run("get user with malformed id", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		_, err := storage.GetUser(ctx, "not-an-object-id")
		var dbErr *models.UserDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgNoDataFound, dbErr.Message)
	})

	mt.Run("get user store failure", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(commandError())

		_, err := storage.GetUser(ctx, primitive.NewObjectID().Hex())
		var dbErr *models.UserDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgNoDataFound, dbErr.Message)
	})
}

func TestTodoDBCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	mt.Run("create todo", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		todoID, err := storage.CreateTodoItem(ctx, userID, models.NewTodo{Name: "Buy milk", Description: "2 litres"})
		require.NoError(mt, err)
		assert.Len(mt, todoID, 24)
	})

	mt.Run("missing fields", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		testCases := []struct {
			userID  string
			todo    models.NewTodo
			message string
		}{
			{"", models.NewTodo{Name: "a", Description: "b"}, "userId is required"},
			{userID, models.NewTodo{Description: "b"}, "name is required"},
			{userID, models.NewTodo{Name: "a"}, "description is required"},
		}
		for _, testCase := range testCases {
			_, err := storage.CreateTodoItem(ctx, testCase.userID, testCase.todo)
			var dbErr *models.TodoDBError
			require.ErrorAs(mt, err, &dbErr)
			assert.Equal(mt, testCase.message, dbErr.Message)
		}
	})
}

func TestTodoDBGet(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	mt.Run("list one page", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, todosNS, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(5)}}),
			mtest.CreateCursorResponse(0, todosNS, mtest.FirstBatch,
				bson.D{{Key: "id", Value: primitive.NewObjectID()}, {Key: "name", Value: "first"}},
				bson.D{{Key: "id", Value: primitive.NewObjectID()}, {Key: "name", Value: "second"}},
			),
		)

		page, err := storage.GetTodosByUserID(ctx, userID, "", models.PageRequest{Page: 1, PageSize: 2})
		require.NoError(mt, err)
		assert.Equal(mt, models.PageInfo{Page: 1, PageSize: 2, TotalPages: 3, TotalEntries: 5}, page.PageInfo)
		require.Len(mt, page.TodoItems, 2)
		assert.Equal(mt, "first", page.TodoItems[0].Name)
		assert.Empty(mt, page.TodoItems[0].Description)
		assert.Nil(mt, page.TodoItems[0].Created)
	})

	mt.Run("single item", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		todoID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, todosNS, mtest.FirstBatch, bson.D{
			{Key: "id", Value: todoID},
			{Key: "name", Value: "first"},
			{Key: "description", Value: "details"},
			{Key: "created", Value: primitive.NewDateTimeFromTime(time.Now())},
		}))

		page, err := storage.GetTodosByUserID(ctx, userID, todoID.Hex(), models.DefaultPageRequest())
		require.NoError(mt, err)
		assert.Equal(mt, models.PageInfo{}, page.PageInfo)
		require.Len(mt, page.TodoItems, 1)
		assert.Equal(mt, todoID.Hex(), page.TodoItems[0].ID)
		assert.Equal(mt, "details", page.TodoItems[0].Description)
		assert.NotNil(mt, page.TodoItems[0].Created)
		assert.Nil(mt, page.TodoItems[0].LastModified)
	})

	mt.Run("single item not found", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, todosNS, mtest.FirstBatch))

		page, err := storage.GetTodosByUserID(ctx, userID, primitive.NewObjectID().Hex(), models.DefaultPageRequest())
		require.NoError(mt, err)
		assert.Empty(mt, page.TodoItems)
	})

	mt.Run("invalid page size", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		_, err := storage.GetTodosByUserID(ctx, userID, "", models.PageRequest{Page: 1, PageSize: 0})
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgInvalidPageSize, dbErr.Message)
	})

	mt.Run("missing user id", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		_, err := storage.GetTodosByUserID(ctx, "", "", models.DefaultPageRequest())
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, "userId is required", dbErr.Message)
	})

	mt.Run("store failure", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(commandError())

		_, err := storage.GetTodosByUserID(ctx, userID, "", models.DefaultPageRequest())
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgNoDataFound, dbErr.Message)
	})

	mt.Run("malformed todo id", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		_, err := storage.GetTodosByUserID(ctx, userID, "42", models.DefaultPageRequest())
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgNoDataFound, dbErr.Message)
	})
}

func TestTodoDBUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()
	todoID := primitive.NewObjectID().Hex()
	name := "renamed"

	mt.Run("empty update does not touch the store", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		assert.NoError(mt, storage.UpdateTodoItem(ctx, userID, todoID, models.TodoUpdate{}))
	})

	mt.Run("update", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		assert.NoError(mt, storage.UpdateTodoItem(ctx, userID, todoID, models.TodoUpdate{Name: &name}))
	})

	mt.Run("nothing modified", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := storage.UpdateTodoItem(ctx, userID, todoID, models.TodoUpdate{Name: &name})
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgFailedToUpdate, dbErr.Message)
	})

	mt.Run("store failure", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(commandError())

		err := storage.UpdateTodoItem(ctx, userID, todoID, models.TodoUpdate{Name: &name})
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgFailedToUpdate, dbErr.Message)
	})

	mt.Run("missing todo id", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		err := storage.UpdateTodoItem(ctx, userID, "", models.TodoUpdate{Name: &name})
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, "todoId is required", dbErr.Message)
	})
}

func TestTodoDBRemove(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()
	todoID := primitive.NewObjectID().Hex()

	mt.Run("remove twice", func(mt *mtest.T) {
		storage := newMockStorage(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, storage.RemoveTodoItem(ctx, userID, todoID))

		err := storage.RemoveTodoItem(ctx, userID, todoID)
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgFailedToRemove, dbErr.Message)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		storage := newMockStorage(mt)

		err := storage.RemoveTodoItem(ctx, userID, "zzz")
		var dbErr *models.TodoDBError
		require.ErrorAs(mt, err, &dbErr)
		assert.Equal(mt, models.MsgFailedToRemove, dbErr.Message)
	})
}
