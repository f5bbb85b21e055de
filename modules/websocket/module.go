// Package websocket provides the "websocket" sink, which sends every entry
// as a JSON text message over a websocket connection.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the websocket sink.
type Input struct {
	URL          string            `hcl:"url"`
	Headers      map[string]string `hcl:"headers,optional"`
	WriteTimeout string            `hcl:"write_timeout,optional"`
}

const defaultWriteTimeout = 10 * time.Second

type writer struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func open(ctx context.Context, raw any) (sink.Writer, error) {
	input := raw.(*Input)
	logger := ctxlog.FromContext(ctx).With("sink", "websocket", "url", input.URL)

	writeTimeout := defaultWriteTimeout
	if input.WriteTimeout != "" {
		var err error
		if writeTimeout, err = time.ParseDuration(input.WriteTimeout); err != nil {
			return nil, fmt.Errorf("invalid write_timeout: %w", err)
		}
	}

	header := http.Header{}
	for k, v := range input.Headers {
		header.Set(k, v)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, input.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	logger.Debug("Websocket connected.")

	w := &writer{conn: conn, writeTimeout: writeTimeout}
	// Reading is required to process control frames such as close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("Websocket read loop stopped.", "error", err)
				}
				return
			}
		}
	}()
	return w, nil
}

func (w *writer) Write(ctx context.Context, e sink.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("websocket", &sink.Kind{
		NewInput: func() any { return new(Input) },
		Open:     open,
	})
}
