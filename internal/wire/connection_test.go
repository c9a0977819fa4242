package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestResponseCycle(t *testing.T) {
	conn := NewConnection()
	raw := "POST /send HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer abc\r\nContent-Length: 13\r\n\r\n{\"a\":\"hello\"}"
	conn.ReceiveData([]byte(raw))

	ev, err := conn.NextEvent()
	require.NoError(t, err)
	req, ok := ev.(Request)
	require.True(t, ok)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, "/send", req.Target)

	ev, err = conn.NextEvent()
	require.NoError(t, err)
	data, ok := ev.(Data)
	require.True(t, ok)
	require.Equal(t, `{"a":"hello"}`, string(data.Bytes))

	ev, err = conn.NextEvent()
	require.NoError(t, err)
	require.IsType(t, EndOfMessage{}, ev)

	ev, err = conn.NextEvent()
	require.NoError(t, err)
	require.IsType(t, Paused{}, ev)

	out, err := conn.Send(Response{StatusCode: 201, Headers: []Header{{Name: "Content-Type", Value: "application/json"}}})
	require.NoError(t, err)
	require.Contains(t, string(out), "HTTP/1.1 201 Created")
	require.Equal(t, StateSendResponse, conn.OurState())

	out, err = conn.Send(Data{Bytes: []byte(`{"info":"ok"}`)})
	require.NoError(t, err)
	require.Equal(t, `{"info":"ok"}`, string(out))

	_, err = conn.Send(EndOfMessage{})
	require.NoError(t, err)
	require.Equal(t, StateDone, conn.OurState())

	require.NoError(t, conn.StartNextCycle())
	require.Equal(t, StateIdle, conn.OurState())
}

func TestNeedDataUntilFullHeaders(t *testing.T) {
	conn := NewConnection()
	conn.ReceiveData([]byte("GET /status HTTP/1.1\r\nHost: x\r\n"))
	ev, err := conn.NextEvent()
	require.NoError(t, err)
	require.IsType(t, NeedData{}, ev)

	conn.ReceiveData([]byte("\r\n"))
	ev, err = conn.NextEvent()
	require.NoError(t, err)
	req, ok := ev.(Request)
	require.True(t, ok)
	require.Equal(t, "GET", req.Method)
}

func TestUnsupportedMethodIsProtocolError(t *testing.T) {
	conn := NewConnection()
	conn.ReceiveData([]byte("DELETE /status HTTP/1.1\r\nHost: x\r\n\r\n"))
	_, err := conn.NextEvent()
	require.Error(t, err)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestConnectionCloseSetsMustClose(t *testing.T) {
	conn := NewConnection()
	conn.ReceiveData([]byte("GET /status HTTP/1.1\r\nConnection: close\r\n\r\n"))
	_, err := conn.NextEvent()
	require.NoError(t, err)
	_, err = conn.NextEvent() // EndOfMessage (no body)
	require.NoError(t, err)

	_, err = conn.Send(Response{StatusCode: 200})
	require.NoError(t, err)
	_, err = conn.Send(EndOfMessage{})
	require.NoError(t, err)
	require.Equal(t, StateMustClose, conn.OurState())
}
