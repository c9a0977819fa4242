package wire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

var allowedMethods = map[string]bool{"GET": true, "POST": true}

// Connection is a single HTTP/1.1 request/response cycle driver, one
// instance per TCP connection. It is not safe for concurrent use; a
// connection handler must drive it from a single goroutine.
type Connection struct {
	in  []byte
	eof bool

	ourState OurState

	headersParsed bool
	method        string
	target        string
	headers       []Header
	contentLength int
	bodyRead      int
	eomEmitted    bool
	keepAlive     bool
}

// NewConnection returns a fresh server-role connection in IDLE state.
func NewConnection() *Connection {
	return &Connection{ourState: StateIdle, keepAlive: true}
}

// OurState reports this side's place in the request/response cycle.
func (c *Connection) OurState() OurState { return c.ourState }

// ReceiveData feeds newly-read bytes into the parser. An empty slice
// signals the peer half-closed the connection (EOF).
func (c *Connection) ReceiveData(data []byte) {
	if len(data) == 0 {
		c.eof = true
		return
	}
	c.in = append(c.in, data...)
}

// NextEvent pulls the next event out of whatever bytes have been fed
// so far. It returns NeedData when more bytes are required and Paused
// once a full request/response cycle has been drained.
func (c *Connection) NextEvent() (Event, error) {
	if !c.headersParsed {
		idx := bytes.Index(c.in, []byte("\r\n\r\n"))
		if idx < 0 {
			if c.eof {
				return ConnectionClosed{}, nil
			}
			return NeedData{}, nil
		}
		head := c.in[:idx]
		c.in = c.in[idx+4:]

		method, target, headers, err := parseRequestHead(head)
		if err != nil {
			return nil, err
		}
		if !allowedMethods[method] {
			return nil, &ProtocolError{Reason: "unsupported method: " + method}
		}

		c.method = method
		c.target = target
		c.headers = headers
		c.headersParsed = true
		c.contentLength = contentLength(headers)
		c.keepAlive = !hasConnectionClose(headers)

		return Request{Method: method, Target: target, Headers: headers}, nil
	}

	if c.bodyRead < c.contentLength {
		if len(c.in) == 0 {
			if c.eof {
				return ConnectionClosed{}, nil
			}
			return NeedData{}, nil
		}
		need := c.contentLength - c.bodyRead
		take := len(c.in)
		if take > need {
			take = need
		}
		chunk := c.in[:take]
		c.in = c.in[take:]
		c.bodyRead += take
		return Data{Bytes: chunk}, nil
	}

	if !c.eomEmitted {
		c.eomEmitted = true
		return EndOfMessage{}, nil
	}

	return Paused{}, nil
}

// Send encodes an outgoing event into wire bytes and advances
// ourState. Response begins framing, Data carries body bytes verbatim,
// and EndOfMessage closes the response out.
func (c *Connection) Send(event Event) ([]byte, error) {
	switch e := event.(type) {
	case Response:
		if c.ourState != StateIdle {
			return nil, &ProtocolError{Reason: fmt.Sprintf("cannot send response from state %s", c.ourState)}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", e.StatusCode, statusText(e.StatusCode))
		for _, h := range e.Headers {
			fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
		}
		if !c.keepAlive {
			b.WriteString("Connection: close\r\n")
		}
		b.WriteString("\r\n")
		c.ourState = StateSendResponse
		return []byte(b.String()), nil
	case Data:
		if c.ourState != StateSendResponse {
			return nil, &ProtocolError{Reason: fmt.Sprintf("cannot send data from state %s", c.ourState)}
		}
		return e.Bytes, nil
	case EndOfMessage:
		if c.ourState != StateSendResponse {
			return nil, &ProtocolError{Reason: fmt.Sprintf("cannot end message from state %s", c.ourState)}
		}
		if c.keepAlive {
			c.ourState = StateDone
		} else {
			c.ourState = StateMustClose
		}
		return nil, nil
	default:
		return nil, &ProtocolError{Reason: "unsendable event"}
	}
}

// StartNextCycle resets the connection for the next keep-alive request
// once the previous response has fully been sent.
func (c *Connection) StartNextCycle() error {
	if c.ourState != StateDone {
		return &ProtocolError{Reason: fmt.Sprintf("cannot start next cycle from state %s", c.ourState)}
	}
	c.ourState = StateIdle
	c.headersParsed = false
	c.method = ""
	c.target = ""
	c.headers = nil
	c.contentLength = 0
	c.bodyRead = 0
	c.eomEmitted = false
	return nil
}

func parseRequestHead(head []byte) (method, target string, headers []Header, err error) {
	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", "", nil, &ProtocolError{Reason: "empty request line"}
	}
	parts := strings.SplitN(lines[0], " ", 3)
	if len(parts) != 3 {
		return "", "", nil, &ProtocolError{Reason: "malformed request line"}
	}
	method = parts[0]
	target = parts[1]

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return "", "", nil, &ProtocolError{Reason: "malformed header: " + line}
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		headers = append(headers, Header{Name: name, Value: value})
	}
	return method, target, headers, nil
}

func contentLength(headers []Header) int {
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(h.Value))
			if err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func hasConnectionClose(headers []Header) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Connection") && strings.EqualFold(strings.TrimSpace(h.Value), "close") {
			return true
		}
	}
	return false
}

var statusTexts = map[int]string{
	200: "OK",
	201: "Created",
	400: "Bad Request",
	401: "Unauthorized",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

func statusText(code int) string {
	if t, ok := statusTexts[code]; ok {
		return t
	}
	return "Unknown"
}
