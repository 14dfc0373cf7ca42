package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newSocketPair dials a throwaway httptest server and hands back both ends
// of the upgraded WebSocket.
func newSocketPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
	t.Helper()

	serverConnCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConnCh <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = clientSide.Close() })

	select {
	case serverSide = <-serverConnCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server side of socket pair never arrived")
	}
	t.Cleanup(func() { _ = serverSide.Close() })

	return serverSide, clientSide
}

// fakeConn is an in-memory interfaces.Connection for registry tests.
type fakeConn struct {
	id     string
	userID string

	mu     sync.Mutex
	writes []any
	closed bool
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnectionClosed
	}
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) GetID() string     { return f.id }
func (f *fakeConn) GetUserID() string { return f.userID }
