package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/todoapi/internal/mockstorage"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

const testUserID = "64b7f0c2a1b2c3d4e5f60718"

type captured struct {
	called  bool
	user    *models.User
	hasUser bool
	header  string
}

func (c *captured) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.user, c.hasUser = UserFromContext(r.Context())
		c.header = r.Header.Get(UserIDHeader)
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolve(t *testing.T) {
	usr := &models.User{ID: testUserID, Name: "Luca Brasi"}

	type tExpected struct {
		code   int
		body   string
		called bool
	}
	testCases := []struct {
		name     string
		method   string
		target   string
		userID   string
		setup    func(db *mockstorage.StorageMock)
		expected tExpected
	}{
		{
			name:     "user creation is anonymous",
			method:   http.MethodPost,
			target:   "/user",
			expected: tExpected{code: http.StatusOK, called: true},
		},
		{
			name:     "missing header",
			method:   http.MethodGet,
			target:   "/todo",
			expected: tExpected{code: http.StatusBadRequest, body: `{"message":"Missing header [x-user-id]"}`},
		},
		{
			name:     "listing users is not user creation",
			method:   http.MethodGet,
			target:   "/user",
			expected: tExpected{code: http.StatusBadRequest, body: `{"message":"Missing header [x-user-id]"}`},
		},
		{
			name:   "lookup failure",
			method: http.MethodGet,
			target: "/todo",
			userID: "garbage",
			setup: func(db *mockstorage.StorageMock) {
				db.On("GetUser", mock.Anything, "garbage").Return(nil, models.NewUserDBError(models.MsgNoDataFound))
			},
			expected: tExpected{code: http.StatusUnauthorized, body: `{"message":"No data found"}`},
		},
		{
			name:   "unknown user",
			method: http.MethodDelete,
			target: "/todo/1",
			userID: testUserID,
			setup: func(db *mockstorage.StorageMock) {
				db.On("GetUser", mock.Anything, testUserID).Return(nil, nil)
			},
			expected: tExpected{code: http.StatusUnauthorized, body: `{"message":"Invalid user"}`},
		},
		{
			name:   "known user",
			method: http.MethodGet,
			target: "/todo",
			userID: testUserID,
			setup: func(db *mockstorage.StorageMock) {
				db.On("GetUser", mock.Anything, testUserID).Return(usr, nil)
			},
			expected: tExpected{code: http.StatusOK, called: true},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			db := &mockstorage.StorageMock{}
			if testCase.setup != nil {
				testCase.setup(db)
			}
			next := &captured{}
			handler := New(db).Resolve(next.handler())

			request := httptest.NewRequest(testCase.method, testCase.target, nil)
			if testCase.userID != "" {
				request.Header.Set(UserIDHeader, testCase.userID)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expected.code, recorder.Code)
			assert.Equal(t, testCase.expected.called, next.called)
			if testCase.expected.body != "" {
				assert.JSONEq(t, testCase.expected.body, recorder.Body.String())
			}
			db.AssertExpectations(t)
		})
	}
}

func TestResolveDerivesRequest(t *testing.T) {
	usr := &models.User{ID: testUserID, Name: "Luca Brasi"}
	db := &mockstorage.StorageMock{}
	db.On("GetUser", mock.Anything, testUserID).Return(usr, nil).Once()

	next := &captured{}
	handler := New(db).Resolve(next.handler())

	request := httptest.NewRequest(http.MethodGet, "/todo", nil)
	request.Header.Set(UserIDHeader, testUserID)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	require.True(t, next.called)
	assert.True(t, next.hasUser)
	assert.Same(t, usr, next.user)
	assert.Empty(t, next.header, "the handler must not see the identity header")
	assert.Equal(t, testUserID, request.Header.Get(UserIDHeader), "the inbound request must not be mutated")
	_, inbound := UserFromContext(request.Context())
	assert.False(t, inbound)
	db.AssertNumberOfCalls(t, "GetUser", 1)
}

func TestWithSkip(t *testing.T) {
	db := &mockstorage.StorageMock{}
	next := &captured{}
	handler := New(db, WithSkip(func(*http.Request) bool { return true })).Resolve(next.handler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/todo", nil))

	assert.True(t, next.called)
	db.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestUserFromContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	usr, ok := UserFromContext(WithUser(context.Background(), &models.User{ID: "x"}))
	assert.True(t, ok)
	assert.Equal(t, "x", usr.ID)

	_, ok = UserFromContext(WithUser(context.Background(), nil))
	assert.False(t, ok)
}
