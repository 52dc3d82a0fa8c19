// Package jsondb keeps users and todo items in memory and snapshots them to
// a JSON file. The snapshot is read by New and written back by Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/todoapi/internal/models"
	"github.com/patric-chuzhbe/todoapi/internal/pagination"
)

// TodoRecord is a stored todo item together with its owner.
type TodoRecord struct {
	UserID string `json:"userId"`
	models.TodoItem
}

type CacheStruct struct {
	Users map[string]models.User `json:"users"`
	Todos map[string]TodoRecord  `json:"todos"`
}

// JSONDB is safe for concurrent use. With an empty file name nothing is
// persisted.
type JSONDB struct {
	mu       sync.RWMutex
	fileName string
	Cache    CacheStruct
}

func NewCache() CacheStruct {
	return CacheStruct{
		Users: map[string]models.User{},
		Todos: map[string]TodoRecord{},
	}
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, NewCache())
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	if _, err = file.Write(jsonData); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads fileName, creating it when it does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := initDBFile(fileName); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `initDBFile()` calling: %w", err)
		}
	}
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]models.User{}
	}
	if db.Cache.Todos == nil {
		db.Cache.Todos = map[string]TodoRecord{}
	}

	return db, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the snapshot.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", models.NewUserDBError(models.RequiredError("name"))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	id := primitive.NewObjectID().Hex()
	db.Cache.Users[id] = models.User{
		ID:      id,
		Name:    name,
		Created: time.Now(),
	}

	return id, nil
}

// GetUser returns nil without an error when the user does not exist.
func (db *JSONDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if !primitive.IsValidObjectID(userID) {
		return nil, models.NewUserDBError(models.MsgNoDataFound)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, nil
	}

	return &usr, nil
}

func (db *JSONDB) CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error) {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "name", Value: todo.Name},
		models.Field{Name: "description", Value: todo.Description},
	); err != nil {
		return "", err
	}
	if !primitive.IsValidObjectID(userID) {
		return "", models.NewTodoDBError("Invalid userId")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	id := primitive.NewObjectID().Hex()
	created := time.Now()
	db.Cache.Todos[id] = TodoRecord{
		UserID: userID,
		TodoItem: models.TodoItem{
			ID:          id,
			Name:        todo.Name,
			Description: todo.Description,
			Created:     &created,
		},
	}

	return id, nil
}

// GetTodosByUserID pages through the items of userID in id order, or returns
// the single item todoID with a zero PageInfo.
func (db *JSONDB) GetTodosByUserID(
	ctx context.Context,
	userID string,
	todoID string,
	page models.PageRequest,
) (*models.TodoPage, error) {
	if userID == "" {
		return nil, models.NewTodoDBError(models.RequiredError("userId"))
	}

	result := &models.TodoPage{TodoItems: []models.TodoItem{}}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if todoID != "" {
		if !primitive.IsValidObjectID(todoID) {
			return nil, models.NewTodoDBError(models.MsgNoDataFound)
		}
		if record, found := db.findOwned(userID, todoID); found {
			result.TodoItems = append(result.TodoItems, record.TodoItem)
		}
		return result, nil
	}

	if err := pagination.Validate(page); err != nil {
		return nil, err
	}

	owned := db.ownedBy(userID)
	result.PageInfo = pagination.NewPageInfo(page, int64(len(owned)))

	offset := pagination.Offset(page.Page, page.PageSize)
	if offset >= int64(len(owned)) {
		return result, nil
	}
	end := len(owned)
	if left := end - int(offset); page.PageSize < left {
		end = int(offset) + page.PageSize
	}
	for i := int(offset); i < end; i++ {
		result.TodoItems = append(result.TodoItems, models.TodoItem{
			ID:   owned[i].ID,
			Name: owned[i].Name,
		})
	}

	return result, nil
}

// UpdateTodoItem is a no-op for an empty update.
func (db *JSONDB) UpdateTodoItem(ctx context.Context, userID, todoID string, update models.TodoUpdate) error {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return err
	}
	if update.IsEmpty() {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	record, found := db.findOwned(userID, todoID)
	if !found {
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}

	if update.Name != nil {
		record.Name = *update.Name
	}
	if update.Description != nil {
		record.Description = *update.Description
	}
	lastModified := time.Now()
	record.LastModified = &lastModified
	db.Cache.Todos[todoID] = record

	return nil
}

func (db *JSONDB) RemoveTodoItem(ctx context.Context, userID, todoID string) error {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.findOwned(userID, todoID); !found {
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}
	delete(db.Cache.Todos, todoID)

	return nil
}

func (db *JSONDB) findOwned(userID, todoID string) (TodoRecord, bool) {
	record, found := db.Cache.Todos[todoID]
	if !found || record.UserID != userID {
		return TodoRecord{}, false
	}

	return record, true
}

// ownedBy returns the items of userID sorted by id.
func (db *JSONDB) ownedBy(userID string) []TodoRecord {
	owned := make([]TodoRecord, 0)
	for _, record := range db.Cache.Todos {
		if record.UserID == userID {
			owned = append(owned, record)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].ID < owned[j].ID
	})

	return owned
}
