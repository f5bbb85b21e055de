package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/routegrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

const usage = `
routegrid - A hot-reloadable log routing daemon.

Reads log entries from stdin (or -input), one per line, either as JSON
{"route": ..., "level": ..., "message": ..., "fields": {...}} or as
"route: message", and dispatches them through the routes of the configuration.

Usage:
  routegrid [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`

// flags holds the raw values bound to a flag set.
type flags struct {
	config, c      string
	input          string
	healthPort     int
	logFormat      string
	logLevel       string
	drainTimeout   time.Duration
	pendingTimeout time.Duration
	backlog        int
	watch          bool
	reloadDebounce time.Duration
}

func (f *flags) bind(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "Path to the route configuration file or directory.")
	fs.StringVar(&f.c, "c", "", "Path to the route configuration file or directory (shorthand).")
	fs.StringVar(&f.input, "input", "", "File to read entries from. Empty or '-' reads stdin.")
	fs.IntVar(&f.healthPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	fs.StringVar(&f.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Logging level: 'debug', 'info', 'warn', 'error', optionally with an offset such as 'info+2'.")
	fs.DurationVar(&f.drainTimeout, "drain-timeout", 5*time.Second, "Maximum wait for in-flight entries on reconfiguration. Negative waits forever.")
	fs.DurationVar(&f.pendingTimeout, "pending-timeout", app.DefaultPendingTimeout, "Maximum wait for a pending configuration before entries are kept in the backlog.")
	fs.IntVar(&f.backlog, "backlog", app.DefaultBacklogSize, "Maximum number of entries held while a configuration is pending.")
	fs.BoolVar(&f.watch, "watch", false, "Reload the configuration when its files change.")
	fs.DurationVar(&f.reloadDebounce, "reload-debounce", app.DefaultReloadDebounce, "Quiet period after a file change before reloading.")
}

// configPath picks -config, then -c, then the first positional argument.
func (f *flags) configPath(fs *flag.FlagSet) string {
	for _, p := range []string{f.config, f.c, fs.Arg(0)} {
		if p != "" {
			return p
		}
	}
	return ""
}

// normalize lower-cases and checks the logging options.
func (f *flags) normalize() error {
	f.logFormat = strings.ToLower(f.logFormat)
	if f.logFormat != "text" && f.logFormat != "json" {
		return usageError("invalid log-format %q: must be 'text' or 'json'", f.logFormat)
	}

	f.logLevel = strings.ToLower(f.logLevel)
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return usageError("invalid log-level %q: must be 'debug', 'info', 'warn' or 'error'", f.logLevel)
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	fs := flag.NewFlagSet("routegrid", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}

	var f flags
	f.bind(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err)
	}

	path := f.configPath(fs)
	if path == "" {
		slog.Debug("No configuration path provided, printing usage and exiting.")
		fs.Usage()
		return nil, true, nil
	}
	if err := f.normalize(); err != nil {
		return nil, false, err
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:      path,
		InputPath:       f.input,
		HealthcheckPort: f.healthPort,
		LogFormat:       f.logFormat,
		LogLevel:        f.logLevel,
		DrainTimeout:    f.drainTimeout,
		PendingTimeout:  f.pendingTimeout,
		BacklogSize:     f.backlog,
		Watch:           f.watch,
		ReloadDebounce:  f.reloadDebounce,
	})
	if err != nil {
		return nil, false, usageError("%s", err)
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
