// Package socketio provides the "socketio" sink, which emits every entry as
// a socket.io event over a websocket transport.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the socketio sink.
type Input struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

const (
	defaultEvent          = "log"
	defaultConnectTimeout = 15 * time.Second
)

type writer struct {
	io    *socket.Socket
	event string
}

// connect opens a client and waits for the connect or connect_error event.
func connect(ctx context.Context, input *Input) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", input.URL)
	logger.Info("Creating new client instance...")

	timeout := defaultConnectTimeout
	if input.ConnectTimeout != "" {
		var err error
		if timeout, err = time.ParseDuration(input.ConnectTimeout); err != nil {
			return nil, fmt.Errorf("invalid connect_timeout: %w", err)
		}
	}

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(input.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func open(ctx context.Context, raw any) (sink.Writer, error) {
	input := raw.(*Input)
	io, err := connect(ctx, input)
	if err != nil {
		return nil, err
	}
	event := input.Event
	if event == "" {
		event = defaultEvent
	}
	return &writer{io: io, event: event}, nil
}

func (w *writer) Write(ctx context.Context, e sink.Entry) error {
	if !w.io.Connected() {
		return fmt.Errorf("socket.io client is not connected")
	}
	payload := map[string]any{
		"time":    e.Time.Format(time.RFC3339Nano),
		"route":   e.Route,
		"level":   e.Level.String(),
		"message": e.Message,
	}
	if len(e.Fields) > 0 {
		payload["fields"] = e.Fields
	}
	return w.io.Emit(w.event, payload)
}

func (w *writer) Close() error {
	w.io.Disconnect()
	return nil
}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("socketio", &sink.Kind{
		NewInput: func() any { return new(Input) },
		Open:     open,
	})
}
