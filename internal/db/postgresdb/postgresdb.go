// Package postgresdb provides a PostgreSQL-based implementation of the storage
// for users and their todo items. The schema is kept up to date by goose
// migrations embedded into the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
	"github.com/patric-chuzhbe/todoapi/internal/pagination"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// PostgresDB is a PostgreSQL-backed storage of users and todo items.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table before the migrations run.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens the database and applies the embedded migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := newFromDB(database, connectionTimeout)

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

func newFromDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}
}

// CreateUser inserts a new user and returns its id.
func (db *PostgresDB) CreateUser(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", models.NewUserDBError(models.RequiredError("name"))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	var database executor = db.database
	_, err = database.ExecContext(
		ctx,
		`INSERT INTO users (id, name, created) VALUES ($1, $2, $3)`,
		id.String(),
		name,
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/CreateUser(): error while `database.ExecContext()` calling: %w",
			err,
		)
	}

	return id.String(), nil
}

// GetUser fetches a user by id. A missing user is reported as nil without an error.
func (db *PostgresDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, models.NewUserDBError(models.MsgNoDataFound)
	}

	var database queryer = db.database
	row := database.QueryRowContext(
		ctx,
		`SELECT id, name, created FROM users WHERE id = $1`,
		userID,
	)

	usr := &models.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Log.Debugln("Error calling the `row.Scan()`", zap.Error(err))
		return nil, models.NewUserDBError(models.MsgNoDataFound)
	}

	return usr, nil
}

// CreateTodoItem inserts a todo item owned by userID and returns its id.
func (db *PostgresDB) CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error) {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "name", Value: todo.Name},
		models.Field{Name: "description", Value: todo.Description},
	); err != nil {
		return "", err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", models.NewTodoDBError("Invalid userId")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	var database executor = db.database
	_, err = database.ExecContext(
		ctx,
		`INSERT INTO todos (id, user_id, name, description, created) VALUES ($1, $2, $3, $4, $5)`,
		id.String(),
		userID,
		todo.Name,
		todo.Description,
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/CreateTodoItem(): error while `database.ExecContext()` calling: %w",
			err,
		)
	}

	return id.String(), nil
}

// GetTodosByUserID pages through the items of userID ordered by id, or fetches
// the single item todoID with all its columns and a zero PageInfo.
func (db *PostgresDB) GetTodosByUserID(
	ctx context.Context,
	userID string,
	todoID string,
	page models.PageRequest,
) (*models.TodoPage, error) {
	if userID == "" {
		return nil, models.NewTodoDBError(models.RequiredError("userId"))
	}
	if !validIDs(userID, todoID) {
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}

	if todoID != "" {
		return db.getTodoItem(ctx, userID, todoID)
	}

	if err := pagination.Validate(page); err != nil {
		return nil, err
	}

	var database queryer = db.database

	var total int64
	err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		logger.Log.Debugln("Error counting todo items", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}

	rows, err := database.QueryContext(
		ctx,
		`SELECT id, name FROM todos WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		userID,
		page.PageSize,
		pagination.Offset(page.Page, page.PageSize),
	)
	if err != nil {
		logger.Log.Debugln("Error calling the `database.QueryContext()`", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}
	defer rows.Close()

	result := &models.TodoPage{
		PageInfo:  pagination.NewPageInfo(page, total),
		TodoItems: []models.TodoItem{},
	}
	for rows.Next() {
		var item models.TodoItem
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			logger.Log.Debugln("Error calling the `rows.Scan()`", zap.Error(err))
			return nil, models.NewTodoDBError(models.MsgNoDataFound)
		}
		result.TodoItems = append(result.TodoItems, item)
	}
	if err := rows.Err(); err != nil {
		logger.Log.Debugln("Error calling the `rows.Err()`", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}

	return result, nil
}

func (db *PostgresDB) getTodoItem(ctx context.Context, userID, todoID string) (*models.TodoPage, error) {
	var database queryer = db.database
	row := database.QueryRowContext(
		ctx,
		`
			SELECT id, name, description, created, last_modified
				FROM todos
				WHERE user_id = $1 AND id = $2
		`,
		userID,
		todoID,
	)

	var (
		item         models.TodoItem
		created      time.Time
		lastModified sql.NullTime
	)
	result := &models.TodoPage{TodoItems: []models.TodoItem{}}

	err := row.Scan(&item.ID, &item.Name, &item.Description, &created, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return result, nil
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `row.Scan()`", zap.Error(err))
		return nil, models.NewTodoDBError(models.MsgNoDataFound)
	}

	item.Created = &created
	if lastModified.Valid {
		item.LastModified = &lastModified.Time
	}
	result.TodoItems = append(result.TodoItems, item)

	return result, nil
}

// UpdateTodoItem sets the supplied columns and last_modified. An update
// without fields returns without touching the database.
func (db *PostgresDB) UpdateTodoItem(ctx context.Context, userID, todoID string, update models.TodoUpdate) error {
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
	if !validIDs(userID, todoID) {
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}

	query, args := buildUpdateQuery(userID, todoID, fields)

	var database executor = db.database
	result, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Log.Debugln("Error calling the `database.ExecContext()`", zap.Error(err))
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}
	if affected, err := result.RowsAffected(); err != nil || affected == 0 {
		logger.Log.Debugf("Failed to update todo item [userId=%s, todoId=%s]", userID, todoID)
		return models.NewTodoDBError(models.MsgFailedToUpdate)
	}

	return nil
}

// RemoveTodoItem deletes the todo item permanently.
func (db *PostgresDB) RemoveTodoItem(ctx context.Context, userID, todoID string) error {
	if err := models.RequireTodoFields(
		models.Field{Name: "userId", Value: userID},
		models.Field{Name: "todoId", Value: todoID},
	); err != nil {
		return err
	}
	if !validIDs(userID, todoID) {
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}

	var database executor = db.database
	result, err := database.ExecContext(
		ctx,
		`DELETE FROM todos WHERE user_id = $1 AND id = $2`,
		userID,
		todoID,
	)
	if err != nil {
		logger.Log.Debugln("Error calling the `database.ExecContext()`", zap.Error(err))
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}
	if affected, err := result.RowsAffected(); err != nil || affected == 0 {
		logger.Log.Debugf("Failed to remove todo item [userId=%s, todoId=%s]", userID, todoID)
		return models.NewTodoDBError(models.MsgFailedToRemove)
	}

	return nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

// buildUpdateQuery renders the UPDATE statement for fields. Columns are
// emitted in name order so the statement text is stable.
func buildUpdateQuery(userID, todoID string, fields map[string]interface{}) (string, []interface{}) {
	columns := funk.Keys(fields).([]string)
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]interface{}, 0, len(columns)+2)
	for i, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, fields[column])
	}
	assignments = append(assignments, "last_modified = now()")
	args = append(args, userID, todoID)

	query := fmt.Sprintf(
		`UPDATE todos SET %s WHERE user_id = $%d AND id = $%d`,
		strings.Join(assignments, ", "),
		len(columns)+1,
		len(columns)+2,
	)

	return query, args
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}

	return true
}
