package websocket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/specialistvlad/routegrid/internal/sink"
	"github.com/specialistvlad/routegrid/internal/testutil"
	"github.com/specialistvlad/routegrid/modules/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocket_SendsEntriesAsText(t *testing.T) {
	// --- Arrange ---
	messages := make(chan []byte, 4)
	closed := make(chan struct{})
	upgrader := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		defer close(closed)
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == gws.TextMessage {
				messages <- data
			}
		}
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	kind, input := testutil.SinkInput(t, &websocket.Module{}, "websocket", fmt.Sprintf("url = %q", url))
	w, err := kind.Open(context.Background(), input)
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, w.Write(context.Background(), sink.Entry{Route: "api", Message: "hello"}))
	require.NoError(t, w.Close())

	// --- Assert ---
	select {
	case data := <-messages:
		var e sink.Entry
		require.NoError(t, json.Unmarshal(data, &e))
		assert.Equal(t, "hello", e.Message)
		assert.Equal(t, "api", e.Route)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not received")
	}
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the close")
	}
}

func TestWebsocket_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	kind, input := testutil.SinkInput(t, &websocket.Module{}, "websocket", fmt.Sprintf("url = %q", url))

	_, err := kind.Open(context.Background(), input)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
