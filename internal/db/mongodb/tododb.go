package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
	"github.com/patric-chuzhbe/todoapi/internal/pagination"
)

const TodoCollection = "todos"

type todoDocument struct {
	ID           primitive.ObjectID `bson:"id"`
	Name         string             `bson:"name"`
	Description  string             `bson:"description,omitempty"`
	Created      *time.Time         `bson:"created,omitempty"`
	LastModified *time.Time         `bson:"lastModified,omitempty"`
}

func (d todoDocument) toModel() models.TodoItem {
	return models.TodoItem{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Description:  d.Description,
		Created:      d.Created,
		LastModified: d.LastModified,
	}
}

var (
	// Listings only show id and name.
	listProjection = bson.D{
		{Key: "_id", Value: 0},
		{Key: "id", Value: "$_id"},
		{Key: "name", Value: 1},
	}

	detailsProjection = bson.D{
		{Key: "_id", Value: 0},
		{Key: "id", Value: "$_id"},
		{Key: "name", Value: 1},
		{Key: "description", Value: 1},
		{Key: "created", Value: 1},
		{Key: "lastModified", Value: 1},
	}

	byIDAscending = bson.D{{Key: "_id", Value: 1}}
)

// TodoDB stores todo items in the todos collection. Every query is scoped
// by the owning user id.
type TodoDB struct {
	gateway collectionGetter
}

func NewTodoDB(gateway collectionGetter) *TodoDB {
	return &TodoDB{gateway: gateway}
}

// CreateTodoItem inserts a todo item owned by userID and returns its id.
func (db *TodoDB) CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error) {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "name", Value: todo.Name},
		models.Field{Name: "description", Value: todo.Description},
	); err != nil {
		return "", err
	}

	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", models.NewTodoDBError("Invalid userId")
	}

	todos, err := db.gateway.Collection(ctx, TodoCollection)
	if err != nil {
		return "", err
	}

	result, err := todos.InsertOne(ctx, bson.D{
		{Key: "userId", Value: owner},
		{Key: "name", Value: todo.Name},
		{Key: "description", Value: todo.Description},
		{Key: "created", Value: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf(
			"in internal/db/mongodb/tododb.go/CreateTodoItem(): error while `todos.InsertOne()` calling: %w",
			err,
		)
	}

	return insertedIDString(result.InsertedID), nil
}

// GetTodosByUserID lists the todo items of userID one page at a time. When
// todoID is not empty only that item is fetched, with all its fields and a
// zero PageInfo.
func (db *TodoDB) GetTodosByUserID(
	ctx context.Context,
	userID string,
	todoID string,
	page models.PageRequest,
) (*models.TodoPage, error) {
	if userID == "" {
		return nil, models.NewTodoDBError(models.RequiredError("userId"))
	}

	listMode := todoID == ""
	if listMode {
		if err := pagination.Validate(page); err != nil {
			return nil, err
		}
	}

	todos, err := db.gateway.Collection(ctx, TodoCollection)
	if err != nil {
		return nil, err
	}

	result := &models.TodoPage{TodoItems: []models.TodoItem{}}

	filter, err := scopedFilter(userID, todoID)
	if err != nil {
		logger.Log.Infoln("invalid todo lookup ids", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}

	findOptions := options.Find().SetSort(byIDAscending)
	if listMode {
		total, err := todos.CountDocuments(ctx, filter)
		if err != nil {
			logger.Log.Infoln("Error calling the `todos.CountDocuments()`", zap.Error(err))
			return nil, models.NewTodoDBError(models.MsgNoDataFound)
		}
		result.PageInfo = pagination.NewPageInfo(page, total)

		findOptions.
			SetProjection(listProjection).
			SetSkip(pagination.Offset(page.Page, page.PageSize)).
			SetLimit(int64(page.PageSize))
	} else {
		findOptions.SetProjection(detailsProjection)
	}

	cursor, err := todos.Find(ctx, filter, findOptions)
	if err != nil {
		logger.Log.Infoln("Error calling the `todos.Find()`", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}

	var docs []todoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		logger.Log.Infoln("Error calling the `cursor.All()`", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}
	for _, doc := range docs {
		result.TodoItems = append(result.TodoItems, doc.toModel())
	}
	logger.Log.Debugln("todoItems ->", result.TodoItems)

	return result, nil
}

// UpdateTodoItem applies the supplied fields and stamps lastModified. An
// update without fields returns without touching the store.
func (db *TodoDB) UpdateTodoItem(ctx context.Context, userID, todoID string, update models.TodoUpdate) error {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return err
	}

	fields := update.Fields()
	if len(fields) == 0 {
		return nil
	}

	todos, err := db.gateway.Collection(ctx, TodoCollection)
	if err != nil {
		return err
	}

	filter, err := scopedFilter(userID, todoID)
	if err != nil {
		logger.Log.Infoln("invalid todo update ids", zap.Error(err))
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}

	result, err := todos.UpdateOne(ctx, filter, bson.D{
		{Key: "$set", Value: bson.M(fields)},
		{Key: "$currentDate", Value: bson.D{{Key: "lastModified", Value: true}}},
	})
	if err != nil {
		logger.Log.Infoln("Error calling the `todos.UpdateOne()`", zap.Error(err))
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}
	if result.ModifiedCount == 0 {
		logger.Log.Infof("Failed to update todo item [userId=%s, todoId=%s]", userID, todoID)
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}

	return nil
}

// RemoveTodoItem deletes the todo item permanently.
func (db *TodoDB) RemoveTodoItem(ctx context.Context, userID, todoID string) error {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return err
	}

	todos, err := db.gateway.Collection(ctx, TodoCollection)
	if err != nil {
		return err
	}

	filter, err := scopedFilter(userID, todoID)
	if err != nil {
		logger.Log.Infoln("invalid todo remove ids", zap.Error(err))
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}

	result, err := todos.DeleteOne(ctx, filter)
	if err != nil {
		logger.Log.Infoln("Error calling the `todos.DeleteOne()`", zap.Error(err))
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}
	if result.DeletedCount == 0 {
		logger.Log.Infof("Failed to remove todo item [userId=%s, todoId=%s]", userID, todoID)
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}

	return nil
}

// scopedFilter matches the documents of userID, narrowed to todoID when given.
func scopedFilter(userID, todoID string) (bson.D, error) {
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	conditions := bson.A{bson.D{{Key: "userId", Value: owner}}}

	if todoID != "" {
		id, err := primitive.ObjectIDFromHex(todoID)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, bson.D{{Key: "_id", Value: id}})
	}

	return bson.D{{Key: "$and", Value: conditions}}, nil
}
