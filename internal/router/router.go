// Package router maps the HTTP API onto the user and todo services: it
// decodes and validates requests, calls the services and renders their
// results and failures as JSON.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/gzippedhttp"
	"github.com/patric-chuzhbe/todoapi/internal/identity"
	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

type userCreator interface {
	CreateUser(ctx context.Context, name string) (string, error)
}

type todoManager interface {
	CreateTodoItem(ctx context.Context, userID string, todo models.NewTodo) (string, error)

	GetTodosByUserID(ctx context.Context, userID string, page models.PageRequest) (*models.TodoPage, error)

	GetTodoItemByUserID(ctx context.Context, userID, todoID string) (models.TodoItem, error)

	UpdateTodoItem(
		ctx context.Context,
		userID string,
		todoID string,
		update models.TodoUpdate,
	) (models.TodoItem, error)

	RemoveTodoItem(ctx context.Context, userID, todoID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type identifier interface {
	Resolve(h http.Handler) http.Handler
}

type metricsCollector interface {
	Middleware(h http.Handler) http.Handler
	Handler() http.Handler
}

type guard interface {
	Guard(h http.Handler) http.Handler
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	users     userCreator
	todos     todoManager
	db        pinger
	identity  identifier
	metrics   metricsCollector
	ipChecker guard
	validate  *validator.Validate
}

// Option configures the optional parts of the router.
type Option func(*Router)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(metrics metricsCollector) Option {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// WithIPChecker restricts /metrics to the trusted subnet.
func WithIPChecker(ipChecker guard) Option {
	return func(r *Router) {
		r.ipChecker = ipChecker
	}
}

// New returns the chi router of the service.
func New(
	users userCreator,
	todos todoManager,
	db pinger,
	identity identifier,
	opts ...Option,
) *chi.Mux {
	r := &Router{
		users:    users,
		todos:    todos,
		db:       db,
		identity: identity,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(r)
	}

	router := chi.NewRouter()
	router.Use(logger.WithRequestID)
	router.Use(logger.WithLoggingHTTPMiddleware)
	if r.metrics != nil {
		router.Use(r.metrics.Middleware)
	}
	router.Use(gzippedhttp.UngzipRequest)
	router.Use(gzippedhttp.GzipResponse)

	router.Get(`/ping`, r.GetPing)
	if r.metrics != nil {
		metricsHandler := r.metrics.Handler()
		if r.ipChecker != nil {
			metricsHandler = r.ipChecker.Guard(metricsHandler)
		}
		router.Method(http.MethodGet, `/metrics`, metricsHandler)
	}

	router.Group(func(api chi.Router) {
		api.Use(r.identity.Resolve)

		api.Post(`/user`, r.PostUser)
		api.Post(`/todo`, r.PostTodo)
		api.Get(`/todo`, r.GetTodos)
		api.Get(`/todo/{id}`, r.GetTodo)
		api.Put(`/todo/{id}`, r.PutTodo)
		api.Delete(`/todo/{id}`, r.DeleteTodo)
	})

	return router
}

// PostUser creates a user from {"name": ...}.
func (r *Router) PostUser(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.CreateUserRequest
	if err := decodeBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error decoding the user creation request", zap.Error(err))
		writeMessage(response, err)
		return
	}

	userID, err := r.users.CreateUser(request.Context(), requestDTO.Name)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.users.CreateUser()`", zap.Error(err))
		writeMessage(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.CreateUserResponse{
		Status: models.StatusOK,
		UserID: userID,
	})
}

// PostTodo validates and stores a todo item of the caller. Keys other than
// name and description are rejected.
func (r *Router) PostTodo(response http.ResponseWriter, request *http.Request) {
	var body map[string]interface{}
	if err := decodeBody(request, &body); err != nil {
		logger.Log.Debugln("Error decoding the todo creation request", zap.Error(err))
		writeMessage(response, err)
		return
	}
	requestDTO := models.CreateTodoRequest{
		Name:        body["name"],
		Description: body["description"],
	}

	violations, err := validationErrors(r.validate, requestDTO)
	if err != nil {
		writeMessage(response, err)
		return
	}
	violations = append(violations, unknownKeyErrors(body, "name", "description")...)
	if len(violations) > 0 {
		writeJSON(response, http.StatusBadRequest, models.ValidationErrorsResponse{Errors: violations})
		return
	}

	name, _ := requestDTO.Name.(string)
	description, _ := requestDTO.Description.(string)
	todoID, err := r.todos.CreateTodoItem(
		request.Context(),
		callerID(request),
		models.NewTodo{Name: name, Description: description},
	)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.todos.CreateTodoItem()`", zap.Error(err))
		writeMessage(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.CreateTodoResponse{TodoID: todoID})
}

// GetTodos lists one page of the caller's todo items.
func (r *Router) GetTodos(response http.ResponseWriter, request *http.Request) {
	page, err := pageRequest(request)
	if err != nil {
		writeMessage(response, err)
		return
	}

	result, err := r.todos.GetTodosByUserID(request.Context(), callerID(request), page)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.todos.GetTodosByUserID()`", zap.Error(err))
		writeMessage(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.ListTodosResponse{
		Status:   models.StatusOK,
		PageInfo: result.PageInfo,
		Items:    result.TodoItems,
	})
}

// GetTodo returns one todo item of the caller, or {} when there is none.
func (r *Router) GetTodo(response http.ResponseWriter, request *http.Request) {
	item, err := r.todos.GetTodoItemByUserID(request.Context(), callerID(request), chi.URLParam(request, "id"))
	if err != nil {
		logger.Log.Debugln("Error calling the `r.todos.GetTodoItemByUserID()`", zap.Error(err))
		writeMessage(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.TodoDetailsResponse{
		Status:  models.StatusOK,
		Details: item,
	})
}

// PutTodo applies a partial update and returns the refreshed item.
func (r *Router) PutTodo(response http.ResponseWriter, request *http.Request) {
	var update models.TodoUpdate
	if err := decodeBody(request, &update); err != nil {
		logger.Log.Debugln("Error decoding the todo update request", zap.Error(err))
		writeMessage(response, err)
		return
	}

	item, err := r.todos.UpdateTodoItem(request.Context(), callerID(request), chi.URLParam(request, "id"), update)
	if err != nil {
		logger.Log.Debugln("Error calling the `r.todos.UpdateTodoItem()`", zap.Error(err))
		writeMessage(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.TodoDetailsResponse{
		Status:  models.StatusOK,
		Details: item,
	})
}

// DeleteTodo removes a todo item of the caller.
func (r *Router) DeleteTodo(response http.ResponseWriter, request *http.Request) {
	err := r.todos.RemoveTodoItem(request.Context(), callerID(request), chi.URLParam(request, "id"))
	if err != nil {
		logger.Log.Debugln("Error calling the `r.todos.RemoveTodoItem()`", zap.Error(err))
		writeMessage(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.StatusResponse{Status: models.StatusOK})
}

// GetPing answers 200 when the storage is reachable.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.db.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `r.db.Ping()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func callerID(request *http.Request) string {
	usr, ok := identity.UserFromContext(request.Context())
	if !ok {
		return ""
	}

	return usr.ID
}

// decodeBody fills target from the JSON body. An empty body leaves target as is.
func decodeBody(request *http.Request, target interface{}) error {
	err := json.NewDecoder(request.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

// pageRequest reads page and pageSize, defaulting the absent ones.
func pageRequest(request *http.Request) (models.PageRequest, error) {
	result := models.DefaultPageRequest()
	query := request.URL.Query()

	for _, param := range []struct {
		name   string
		target *int
	}{
		{"page", &result.Page},
		{"pageSize", &result.PageSize},
	} {
		raw := query.Get(param.name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return models.PageRequest{}, &invalidQueryParameterError{name: param.name}
		}
		*param.target = value
	}

	return result, nil
}

type invalidQueryParameterError struct {
	name string
}

func (e *invalidQueryParameterError) Error() string {
	return "Invalid query parameter [" + e.name + "]"
}

// writeMessage renders any failure as 400 {message}.
func writeMessage(response http.ResponseWriter, err error) {
	writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: err.Error()})
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`", zap.Error(err))
	}
}
