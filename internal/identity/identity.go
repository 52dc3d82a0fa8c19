// Package identity resolves the caller of an API request from the x-user-id
// header and hands the user record to the handlers through the request context.
package identity

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

// UserIDHeader names the caller of every request except user creation.
const UserIDHeader = "x-user-id"

const MsgMissingHeader = "Missing header [" + UserIDHeader + "]"

type userGetter interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserKey is the context key of the resolved *models.User.
const UserKey ContextKey = "user"

// Identity is the middleware resolving callers against the users storage.
type Identity struct {
	db   userGetter
	skip func(request *http.Request) bool
}

// Option configures New.
type Option func(*Identity)

// WithSkip replaces the rule deciding which requests are passed through
// without identification.
func WithSkip(skip func(request *http.Request) bool) Option {
	return func(i *Identity) {
		i.skip = skip
	}
}

// IsUserCreation matches POST /user, the only anonymous API route.
func IsUserCreation(request *http.Request) bool {
	return request.Method == http.MethodPost && request.URL.Path == "/user"
}

func New(db userGetter, opts ...Option) *Identity {
	identity := &Identity{
		db:   db,
		skip: IsUserCreation,
	}
	for _, opt := range opts {
		opt(identity)
	}

	return identity
}

// WithUser returns a copy of ctx carrying usr.
func WithUser(ctx context.Context, usr *models.User) context.Context {
	return context.WithValue(ctx, UserKey, usr)
}

// UserFromContext returns the user attached by the middleware, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	usr, ok := ctx.Value(UserKey).(*models.User)
	return usr, ok && usr != nil
}

// Resolve is an HTTP middleware that looks the caller up once per request.
// The handler receives a derived request with the user in its context and
// without the x-user-id header; the inbound request is left as it was.
func (i *Identity) Resolve(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if i.skip(request) {
			h.ServeHTTP(response, request)
			return
		}

		userID := request.Header.Get(UserIDHeader)
		if userID == "" {
			writeMessage(response, http.StatusBadRequest, MsgMissingHeader)
			return
		}

		usr, err := i.db.GetUser(request.Context(), userID)
		if err != nil {
			logger.Log.Debugln("Error calling the `i.db.GetUser()`: ", zap.Error(err))
			writeMessage(response, http.StatusUnauthorized, err.Error())
			return
		}
		if usr == nil {
			writeMessage(response, http.StatusUnauthorized, models.MsgInvalidUser)
			return
		}

		derived := request.Clone(WithUser(request.Context(), usr))
		derived.Header.Del(UserIDHeader)

		h.ServeHTTP(response, derived)
	}

	return http.HandlerFunc(middleware)
}

func writeMessage(response http.ResponseWriter, status int, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(models.MessageResponse{Message: message}); err != nil {
		logger.Log.Debugln("Error encoding the identity failure: ", zap.Error(err))
	}
}
