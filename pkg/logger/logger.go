// Package logger builds the structured logger shared by the CLI, the terminal
// viewer and the browser server: zap underneath, logr on top.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oakwood-commons/jvx/pkg/settings"
)

type loggerContextKey struct{}

const (
	CommitKey    = "commit"
	VersionKey   = "version"
	BuildTimeKey = "build_time"
	GoVersionKey = "go_version"
	TimeStampKey = "timestamp"
	MessageKey   = "message"
	CommandKey   = "command"
)

// Levels lists the accepted log.level values.
var Levels = []string{"debug", "info", "warn", "error"}

// Options configures New.
type Options struct {
	// Level is one of Levels; empty means info.
	Level string
	// File appends log lines to a file instead of Output.
	File string
	// Output receives log lines when File is empty. Nil means stderr.
	Output io.Writer
	// Discard drops everything; the terminal viewer uses it when no log file
	// is set so log lines never land on the screen.
	Discard bool
}

var (
	mu              sync.RWMutex
	globalZapLogger *zap.Logger
	globalLogr      logr.Logger = logr.Discard()
	closeFile       func() error
)

// ParseLevel maps a level name to a zap level. logr's V(1) is zap's debug.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: valid values are %s", s, strings.Join(Levels, ", "))
}

// New builds a JSON logger and installs it as the global logger returned by
// Get. Calling New again replaces the previous logger and closes its file.
func New(opts Options) (logr.Logger, error) {
	if opts.Discard && opts.File == "" {
		install(nil, logr.Discard(), nil)
		return logr.Discard(), nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), err
	}

	var (
		sink   zapcore.WriteSyncer
		closer func() error
	)
	switch {
	case opts.File != "":
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return logr.Discard(), fmt.Errorf("open log file: %w", err)
		}
		sink, closer = zapcore.Lock(f), f.Close
	case opts.Output != nil:
		sink = zapcore.AddSync(opts.Output)
	default:
		sink = zapcore.Lock(os.Stderr)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = TimeStampKey
	encoderCfg.MessageKey = MessageKey

	goVersion := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		sink,
		zap.NewAtomicLevelAt(level),
	).With([]zapcore.Field{
		zap.String(CommitKey, settings.VersionInformation.Commit),
		zap.String(VersionKey, settings.VersionInformation.BuildVersion),
		zap.String(BuildTimeKey, settings.VersionInformation.BuildTime),
		zap.String(GoVersionKey, goVersion),
	})

	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.WithFatalHook(zapcore.WriteThenPanic),
	)
	lg := zapr.NewLogger(zl).WithName(settings.CliBinaryName)
	install(zl, lg, closer)
	return lg, nil
}

func install(zl *zap.Logger, lg logr.Logger, closer func() error) {
	mu.Lock()
	prevClose := closeFile
	globalZapLogger, globalLogr, closeFile = zl, lg, closer
	mu.Unlock()
	if prevClose != nil {
		_ = prevClose()
	}
}

// Get returns the global logger, a no-op logger before New is called.
func Get() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogr
}

// WithLogger returns a context carrying log.
func WithLogger(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the context's logger, falling back to Get.
func FromContext(ctx context.Context) logr.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(logr.Logger); ok {
		return log
	}
	return Get()
}

// Sync flushes buffered log entries and closes the log file, if any. Call it
// before the process exits.
func Sync() {
	mu.Lock()
	zl, closer := globalZapLogger, closeFile
	closeFile = nil
	mu.Unlock()

	if zl != nil {
		if err := zl.Sync(); err != nil && !isIgnorableSyncError(err) {
			fmt.Fprintf(os.Stderr, "WARNING: failed to sync zap logger: %v\n", err)
		}
	}
	if closer != nil {
		_ = closer()
	}
}

// isIgnorableSyncError returns true for common Sync errors on pipes/TTYs.
// Windows consoles can return ERROR_INVALID_HANDLE wrapped in *os.PathError,
// which does not compare equal to syscall.EINVAL, so we also string-match.
func isIgnorableSyncError(err error) bool {
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EBADF) {
		return true
	}
	return strings.Contains(err.Error(), "The handle is invalid")
}
