package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/host"
	"github.com/specialistvlad/routegrid/internal/sink"
)

const (
	maxLineSize = 1 << 20
	// readerStopTimeout bounds the wait for the line reader after the input
	// is closed on cancellation.
	readerStopTimeout = time.Second
)

// inputLine is the JSON form of an input line.
type inputLine struct {
	Time    time.Time      `json:"time"`
	Route   string         `json:"route"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields"`
}

// parseLine turns an input line into an entry. Lines starting with '{' are
// JSON; anything else is "route: message", or a bare message for the root
// route.
func parseLine(line string) (sink.Entry, error) {
	if strings.HasPrefix(line, "{") {
		var in inputLine
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			return sink.Entry{}, fmt.Errorf("invalid JSON entry: %w", err)
		}
		e := sink.Entry{Time: in.Time, Route: in.Route, Level: slog.LevelInfo, Message: in.Message, Fields: in.Fields}
		if in.Level != "" {
			level, err := sink.ParseLevel(in.Level)
			if err != nil {
				return sink.Entry{}, err
			}
			e.Level = level
		}
		return e, nil
	}

	if route, msg, ok := strings.Cut(line, ": "); ok && route != "" && !strings.ContainsAny(route, " \t") {
		return sink.Entry{Route: route, Level: slog.LevelInfo, Message: msg}, nil
	}
	return sink.Entry{Level: slog.LevelInfo, Message: line}, nil
}

// ingest feeds every line of r into the routes until r is exhausted or ctx
// is cancelled. On cancellation r is closed when it is an io.Closer, which
// unblocks the line reader. A reader that cannot be closed, or a file whose
// reads ignore Close such as a blocking stdin, keeps its goroutine until the
// read returns or the process exits.
func (a *App) ingest(ctx context.Context, r io.Reader) error {
	logger := ctxlog.FromContext(ctx)
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Ingestion stopped.", "reason", ctx.Err())
			stopReader(ctx, r, errc)
			return nil
		case line, ok := <-lines:
			if !ok {
				a.flushBacklog(ctx, a.config.PendingTimeout)
				if n := len(a.backlog); n > 0 {
					logger.Warn("Input finished while a configuration was pending, dropping backlog.", "dropped", n)
					a.stats.dropped.Add(int64(n))
					a.setBacklog(nil)
				}
				if err := <-errc; err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			e, err := parseLine(line)
			if err != nil {
				a.stats.failed.Add(1)
				logger.Warn("Skipping malformed input line.", "error", err)
				continue
			}
			a.submit(ctx, e)
		}
	}
}

// stopReader closes r and waits briefly for the reader goroutine to report.
func stopReader(ctx context.Context, r io.Reader, errc <-chan error) {
	c, ok := r.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		ctxlog.FromContext(ctx).Debug("Failed to close input.", "error", err)
	}
	select {
	case <-errc:
	case <-time.After(readerStopTimeout):
		ctxlog.FromContext(ctx).Warn("Input reader did not stop after close.")
	}
}

// submit delivers e, or queues it while a configuration is pending. Only
// the first queued entry waits for the pending configuration; later ones
// are queued right away so ingestion keeps up.
func (a *App) submit(ctx context.Context, e sink.Entry) {
	if len(a.backlog) > 0 {
		a.enqueue(ctx, e)
		a.flushBacklog(ctx, 0)
		return
	}
	if err := a.deliver(ctx, e); !errors.Is(err, host.ErrPending) {
		return
	}
	a.enqueue(ctx, e)
	a.flushBacklog(ctx, a.config.PendingTimeout)
}

func (a *App) enqueue(ctx context.Context, e sink.Entry) {
	backlog := a.backlog
	if len(backlog) >= a.config.BacklogSize {
		ctxlog.FromContext(ctx).Warn("Backlog is full, dropping the oldest entry.", "size", len(backlog))
		a.stats.dropped.Add(1)
		backlog = backlog[1:]
	}
	a.setBacklog(append(backlog, e))
}

// flushBacklog waits up to wait for the pending configuration and then
// delivers the backlog in order.
func (a *App) flushBacklog(ctx context.Context, wait time.Duration) {
	if len(a.backlog) == 0 {
		return
	}
	if !a.host.WaitForAppliedPendingConfiguration(ctx, wait) {
		if wait > 0 {
			ctxlog.FromContext(ctx).Warn("Configuration still pending, entries stay in the backlog.", "backlog", len(a.backlog))
		}
		return
	}
	for len(a.backlog) > 0 {
		if err := a.deliver(ctx, a.backlog[0]); errors.Is(err, host.ErrPending) {
			return
		}
		a.setBacklog(a.backlog[1:])
	}
	a.setBacklog(nil)
}

func (a *App) setBacklog(b []sink.Entry) {
	a.backlog = b
	a.stats.backlog.Store(int64(len(b)))
}

// deliver dispatches e through the route matching its name. It only returns
// host.ErrPending; dispatch failures are logged and counted.
func (a *App) deliver(ctx context.Context, e sink.Entry) error {
	lease, err := a.host.ObtainRoute(e.Route)
	if err != nil {
		return err
	}
	defer lease.Release()

	route, ok := lease.Route().(*sink.Route)
	if !ok {
		a.stats.failed.Add(1)
		ctxlog.FromContext(ctx).Error("Unexpected route type.", "type", fmt.Sprintf("%T", lease.Route()))
		return nil
	}
	if err := route.Dispatch(ctx, e); err != nil {
		a.stats.failed.Add(1)
		ctxlog.FromContext(ctx).Warn("Failed to deliver entry.", "route", route.Path(), "error", err)
		return nil
	}
	a.stats.delivered.Add(1)
	return nil
}
