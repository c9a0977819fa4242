package handlers_test

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"chatserver/internal/auth"
	"chatserver/internal/config"
	"chatserver/internal/database"
	"chatserver/internal/handlers"
	"chatserver/internal/router"
	"chatserver/internal/services"
	"chatserver/internal/transport"
	"chatserver/internal/workers"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a router with the real handlers against a
// sqlmock-backed store and drives it through transport.ConnHandler
// over an in-process net.Pipe, so these tests exercise the full
// request path: raw bytes in, wire codec, router dispatch, handler,
// encoded response out.
func newTestServer(t *testing.T) (*router.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &database.DB{DB: db}
	cache := services.NewMemoryCache()
	authSvc := auth.NewService(store, cache)
	cfg := &config.Config{RateLimit: config.RateLimitConfig{PublicChatMessageLimit: 20, PublicChatWindowMin: 60, BanHours: 4}}
	pool := workers.NewPoolManager(workers.PoolConfig{WebhookWorkers: 1})
	t.Cleanup(pool.Shutdown)

	h := handlers.New(store, cfg, services.NewWebhookNotifier(config.WebhookConfig{}), pool)

	r := router.New(authSvc)
	r.Register("POST", "/get-token", false, h.GetToken)
	r.Register("GET", "/status", true, h.Status)
	return r, mock
}

func serveOverPipe(t *testing.T, r *router.Router, rawRequest string) *http.Response {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	connHandler := &transport.ConnHandler{Router: r}
	done := make(chan struct{})
	go func() {
		connHandler.Serve(serverConn)
		close(done)
	}()

	if _, err := clientConn.Write([]byte(rawRequest)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := http.ReadResponse(bufio.NewReader(clientConn), nil)
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case resp := <-respCh:
		clientConn.Close()
		<-done
		return resp
	case err := <-errCh:
		t.Fatalf("read response: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
	return nil
}

func TestE2E_GetToken_NewUserIssuesToken(t *testing.T) {
	r, mock := newTestServer(t)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("alice").WillReturnRows(
		sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(sqlmock.AnyArg()).WillReturnRows(
		sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO users").WithArgs("alice", sqlmock.AnyArg()).WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_name", "token", "messages_in_hour_in_public_chat", "start_chatting_in_public_chat", "created_at"}).
			AddRow(int64(1), "alice", "feedfeed", 0, nil, time.Now()))
	mock.ExpectQuery("SELECT id, name, type, created_at FROM chats").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "type", "created_at"}).AddRow(int64(1), "public_chat", "public", time.Now()))
	mock.ExpectExec("INSERT INTO chats_users").WithArgs(int64(1), int64(1)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `{"user_name":"alice"}`
	raw := "POST /get-token HTTP/1.1\r\nHost: x\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body

	resp := serveOverPipe(t, r, raw)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), `"token"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestE2E_GetToken_ExistingUserReturnsInfoNotToken(t *testing.T) {
	r, mock := newTestServer(t)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("bob").WillReturnRows(
		sqlmock.NewRows([]string{"exists"}).AddRow(true))

	body := `{"user_name":"bob"}`
	raw := "POST /get-token HTTP/1.1\r\nHost: x\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body

	resp := serveOverPipe(t, r, raw)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "already got token")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestE2E_Status_MissingBearerTokenReturnsUnauthorized(t *testing.T) {
	r, _ := newTestServer(t)

	raw := "GET /status HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n"

	resp := serveOverPipe(t, r, raw)
	defer resp.Body.Close()
	require.Equal(t, 401, resp.StatusCode)
}

func TestE2E_UnknownRouteReturnsNotFound(t *testing.T) {
	r, _ := newTestServer(t)

	raw := "GET /nope HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n"

	resp := serveOverPipe(t, r, raw)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
