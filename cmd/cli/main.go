package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/routegrid/internal/app"
	"github.com/specialistvlad/routegrid/internal/cli"
	"github.com/specialistvlad/routegrid/internal/hcl"
)

// main is the entrypoint for the routegrid daemon.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The first signal drains and closes the sinks, a second one exits at once.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	err := run(ctx, os.Stdout, os.Stdin, os.Args[1:])
	stop()
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, exitErr.Message)
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// run parses args and runs the daemon until the input ends or ctx is done.
// It is separate from main so tests can drive it with their own streams.
func run(ctx context.Context, outW io.Writer, input io.Reader, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil || shouldExit {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	return app.NewApp(outW, input, appConfig, hcl.NewLoader()).Run(ctx)
}
