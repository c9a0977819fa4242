// Package transport drives internal/wire.Connection over a real
// net.Conn: reading bytes off the socket, feeding them to the sans-I/O
// parser, assembling a full request, handing it to the router, and
// writing back the encoded response.
package transport

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"chatserver/internal/reqid"
	"chatserver/internal/router"
	"chatserver/internal/wire"
)

// ConnHandler serves one accepted connection to completion.
type ConnHandler struct {
	Router       *router.Router
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Serve reads requests off conn, dispatches each to the router, and
// writes back responses until the connection closes or a MUST_CLOSE
// state is reached.
func (h *ConnHandler) Serve(conn net.Conn) {
	defer conn.Close()

	wconn := wire.NewConnection()
	buf := make([]byte, 16*1024)

	for {
		req, body, err := h.readRequest(conn, wconn, buf)
		if err != nil {
			if _, ok := err.(*wire.ProtocolError); ok {
				h.writeResponse(conn, wconn, 405, []byte(`{"error":"Not allowed http method"}`))
				return
			}
			return
		}
		if req == nil {
			return
		}

		id := reqid.New()
		ctx := context.WithValue(context.Background(), requestIDKey{}, id)

		authHeader, _ := wire.Find(req.Headers, "Authorization")
		status, respBody := h.Router.Dispatch(ctx, req.Method, req.Target, authHeader, body)

		if !h.writeResponse(conn, wconn, status, respBody) {
			return
		}

		if wconn.OurState() == wire.StateMustClose {
			return
		}
		if err := wconn.StartNextCycle(); err != nil {
			return
		}
	}
}

type requestIDKey struct{}

// RequestIDFromContext extracts the correlation ID transport stamped
// on this request's context, for handlers that build AppErrors.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (h *ConnHandler) readRequest(conn net.Conn, wconn *wire.Connection, buf []byte) (*wire.Request, []byte, error) {
	var req *wire.Request
	var body bytes.Buffer

	for {
		ev, err := wconn.NextEvent()
		if err != nil {
			return nil, nil, err
		}

		switch e := ev.(type) {
		case wire.Request:
			reqCopy := e
			req = &reqCopy
		case wire.Data:
			body.Write(e.Bytes)
		case wire.EndOfMessage:
			return req, body.Bytes(), nil
		case wire.ConnectionClosed:
			return nil, nil, nil
		case wire.NeedData:
			if h.ReadTimeout > 0 {
				conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
			}
			n, err := conn.Read(buf)
			if n > 0 {
				wconn.ReceiveData(buf[:n])
			}
			if err != nil {
				wconn.ReceiveData(nil)
			}
		case wire.Paused:
			return nil, nil, nil
		}
	}
}

func (h *ConnHandler) writeResponse(conn net.Conn, wconn *wire.Connection, status int, body []byte) bool {
	if h.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
	}

	headers := []wire.Header{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Content-Length", Value: itoa(len(body))},
	}

	head, err := wconn.Send(wire.Response{StatusCode: status, Headers: headers})
	if err != nil {
		slog.Error("encode response head failed", "error", err)
		return false
	}
	if _, err := conn.Write(head); err != nil {
		return false
	}

	if len(body) > 0 {
		dataBytes, err := wconn.Send(wire.Data{Bytes: body})
		if err != nil {
			slog.Error("encode response body failed", "error", err)
			return false
		}
		if _, err := conn.Write(dataBytes); err != nil {
			return false
		}
	}

	if _, err := wconn.Send(wire.EndOfMessage{}); err != nil {
		slog.Error("encode end of message failed", "error", err)
		return false
	}
	return true
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
