package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// wsURL rewrites an httptest server URL to the ws scheme.
func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func receive(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "message channel closed early")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestChannelDeliversMessagesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for i, payload := range []string{`{"seq":1}`, `{"seq":2}`, `{"seq":3}`} {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)), "write %d", i)
		}
		// Keep the connection open until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewWebsocketChannel(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.JSONEq(t, `{"seq":1}`, string(receive(t, c.Messages())))
	assert.JSONEq(t, `{"seq":2}`, string(receive(t, c.Messages())))
	assert.JSONEq(t, `{"seq":3}`, string(receive(t, c.Messages())))
}

func TestChannelSend(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, payload, err := conn.ReadMessage()
		if err == nil {
			got <- string(payload)
		}
	}))
	defer srv.Close()

	c := NewWebsocketChannel(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Send(map[string]string{"result": "processed"}))
	select {
	case payload := <-got:
		assert.JSONEq(t, `{"result":"processed"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the reply")
	}
}

func TestChannelReconnects(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		n := conns.Add(1)
		if n == 1 {
			// Deliver one message, then drop the connection without a close
			// handshake to force a redial.
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"conn":1}`)))
			conn.Close()
			return
		}
		defer conn.Close()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"conn":2}`)))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewWebsocketChannel(Config{
		URL:                  wsURL(srv),
		MaxReconnectInterval: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.JSONEq(t, `{"conn":1}`, string(receive(t, c.Messages())))
	assert.JSONEq(t, `{"conn":2}`, string(receive(t, c.Messages())))
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestChannelClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewWebsocketChannel(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	_, ok := <-c.Messages()
	assert.False(t, ok, "message channel is closed after Close")
	assert.ErrorIs(t, c.Send(map[string]string{"result": "processed"}), ErrChannelClosed)
	assert.ErrorIs(t, c.Connect(context.Background()), ErrChannelClosed)
}

func TestChannelCloseWithoutConnect(t *testing.T) {
	c := NewWebsocketChannel(Config{URL: "ws://127.0.0.1:0"}, nil)
	require.NoError(t, c.Close())

	_, ok := <-c.Messages()
	assert.False(t, ok)
}

func TestChannelConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewWebsocketChannel(Config{URL: wsURL(srv), HandshakeTimeout: time.Second}, nil)
	assert.Error(t, c.Connect(context.Background()))
}

func TestChannelConnectIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewWebsocketChannel(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()), "second connect is a no-op")
	defer c.Close()
}
