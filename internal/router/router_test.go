package router

import (
	"context"
	"testing"
	"time"

	"chatserver/internal/auth"
	"chatserver/internal/database"
	"chatserver/internal/models"
	"chatserver/internal/services"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) (*auth.Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return auth.NewService(&database.DB{DB: db}, services.NewMemoryCache()), mock
}

func TestDispatch_UnknownRouteReturnsNotFound(t *testing.T) {
	authSvc, _ := newTestAuthService(t)
	r := New(authSvc)

	status, body := r.Dispatch(context.Background(), "POST", "/nope", "", nil)

	require.Equal(t, 404, status)
	require.Contains(t, string(body), "Not found message/user_name/chat")
}

func TestDispatch_PublicRouteSkipsAuth(t *testing.T) {
	authSvc, _ := newTestAuthService(t)
	r := New(authSvc)
	r.Register("POST", "/get-token", false, func(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
		require.Nil(t, user)
		return 200, []byte(`{"token":"abc"}`), nil
	})

	status, body := r.Dispatch(context.Background(), "POST", "/get-token", "", nil)

	require.Equal(t, 200, status)
	require.Equal(t, `{"token":"abc"}`, string(body))
}

func TestDispatch_AuthRequiredRejectsMissingHeader(t *testing.T) {
	authSvc, _ := newTestAuthService(t)
	r := New(authSvc)
	called := false
	r.Register("GET", "/status", true, func(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
		called = true
		return 200, nil, nil
	})

	status, body := r.Dispatch(context.Background(), "GET", "/status", "", nil)

	require.Equal(t, 401, status)
	require.Contains(t, string(body), "Unauthorized. Please name yourself")
	require.False(t, called)
}

func TestDispatch_AuthRequiredResolvesUserFromToken(t *testing.T) {
	authSvc, mock := newTestAuthService(t)
	rows := sqlmock.NewRows([]string{"id", "user_name", "token", "messages_in_hour_in_public_chat", "start_chatting_in_public_chat", "created_at"}).
		AddRow(int64(7), "alice", "tok123", 0, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_name, token").WillReturnRows(rows)

	r := New(authSvc)
	var seenUser *models.User
	r.Register("GET", "/status", true, func(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
		seenUser = user
		return 200, []byte(`{}`), nil
	})

	status, _ := r.Dispatch(context.Background(), "GET", "/status", "Bearer tok123", nil)

	require.Equal(t, 200, status)
	require.NotNil(t, seenUser)
	require.Equal(t, "alice", seenUser.UserName)
}

func TestDispatch_HandlerErrorMapsToStatus(t *testing.T) {
	authSvc, _ := newTestAuthService(t)
	r := New(authSvc)
	r.Register("POST", "/get-token", false, func(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
		return 0, nil, &testAppError{}
	})

	status, _ := r.Dispatch(context.Background(), "POST", "/get-token", "", nil)

	require.Equal(t, 500, status)
}

// testAppError is a plain error (not *errors.AppError) so Dispatch must
// fall back to mapping it as an internal error.
type testAppError struct{}

func (e *testAppError) Error() string { return "boom" }
