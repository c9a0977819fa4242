// Package router dispatches a decoded request to its registered
// endpoint handler, running the auth gate first for every route
// flagged AuthRequired.
package router

import (
	"context"

	"chatserver/internal/auth"
	"chatserver/internal/errors"
	"chatserver/internal/models"
)

// HandlerFunc implements one endpoint. body is the raw JSON request
// body (nil for empty bodies); user is nil when AuthRequired is
// false. It returns the status code and a JSON-encoded response body.
type HandlerFunc func(ctx context.Context, user *models.User, body []byte) (int, []byte, error)

type route struct {
	AuthRequired bool
	Handler      HandlerFunc
}

// Router maps (method, path) to a handler.
type Router struct {
	routes map[string]route
	auth   *auth.Service
}

func New(authSvc *auth.Service) *Router {
	return &Router{routes: make(map[string]route), auth: authSvc}
}

func key(method, path string) string { return method + " " + path }

// Register adds a route. authRequired controls whether Dispatch runs
// the auth gate before calling the handler; cmd/server registers
// /get-token and the /healthz probe as its only public routes.
func (r *Router) Register(method, path string, authRequired bool, h HandlerFunc) {
	r.routes[key(method, path)] = route{AuthRequired: authRequired, Handler: h}
}

// Dispatch resolves the request to its handler, authenticates it if
// required, and runs it. A target with no registered route returns a
// NotFound error so the transport layer can encode the right status.
func (r *Router) Dispatch(ctx context.Context, method, path string, authHeader string, body []byte) (int, []byte) {
	rt, ok := r.routes[key(method, path)]
	if !ok {
		appErr := errors.New(errors.NotFound)
		return appErr.StatusCode(), encodeError(appErr)
	}

	var user *models.User
	if rt.AuthRequired {
		token, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			appErr, _ := errors.As(err)
			return appErr.StatusCode(), encodeError(appErr)
		}
		u, err := r.auth.Authenticate(ctx, token)
		if err != nil {
			appErr, ok := errors.As(err)
			if !ok {
				appErr = errors.New(errors.Unauthorized)
			}
			return appErr.StatusCode(), encodeError(appErr)
		}
		user = u
	}

	status, respBody, err := rt.Handler(ctx, user, body)
	if err != nil {
		appErr, ok := errors.As(err)
		if !ok {
			appErr = errors.New(errors.Internal)
		}
		return appErr.StatusCode(), encodeError(appErr)
	}
	return status, respBody
}

func encodeError(appErr *errors.AppError) []byte {
	return []byte(`{"error":"` + jsonEscape(appErr.Message) + `"}`)
}

func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		default:
			out = append(out, string(r)...)
		}
	}
	return string(out)
}
