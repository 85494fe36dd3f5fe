// Package trace is the call-trace sink shared by an instance and its callers.
//
// A Log is owned by whoever creates it and travels through the call context;
// there is no package-level logger. Every write goes through one lock, so an
// instance driven from several goroutines never interleaves partial lines.
package trace

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// Log is a serialized sink of JSON trace lines. Lines are kept in memory and
// copied to an optional writer.
type Log struct {
	mu    *deadlock.Mutex
	out   io.Writer
	lines []string
	level slog.Level
}

// Option configures a Log.
type Option func(*Log)

// WithLevel drops records below level. The default keeps everything from
// slog.LevelDebug up.
func WithLevel(level slog.Level) Option {
	return func(l *Log) { l.level = level }
}

// New returns a Log that mirrors every line to out (which may be nil).
func New(out io.Writer, opts ...Option) *Log {
	l := &Log{mu: &deadlock.Mutex{}, out: out, level: slog.LevelDebug}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Write records one or more complete lines. slog handlers call Write once
// per record.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) > 0 {
			l.lines = append(l.lines, string(line))
		}
	}
	if l.out != nil {
		return l.out.Write(p)
	}
	return len(p), nil
}

// Lines returns a copy of every line written so far.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Logger returns a JSON logger writing into l.
func (l *Log) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(l, &slog.HandlerOptions{Level: l.level}))
}

type logKey struct{}

type callKey struct{}

type call struct {
	id     string
	depth  int
	logger *slog.Logger
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// WithLog attaches l to ctx.
func WithLog(ctx context.Context, l *Log) context.Context {
	return context.WithValue(ctx, logKey{}, l)
}

// LogFrom returns the Log attached to ctx, or nil.
func LogFrom(ctx context.Context) *Log {
	l, _ := ctx.Value(logKey{}).(*Log)
	return l
}

// StartCall opens a trace scope for one zome call. Top-level calls get a
// fresh call ID; nested calls record their parent and depth.
func StartCall(ctx context.Context, zome, capability, fn string) (context.Context, *slog.Logger) {
	parent, _ := ctx.Value(callKey{}).(*call)
	c := &call{id: uuid.NewString()}

	base := discard
	if l := LogFrom(ctx); l != nil {
		base = l.Logger()
	}
	attrs := []any{"call_id", c.id, "zome", zome, "capability", capability, "fn", fn}
	if parent != nil {
		c.depth = parent.depth + 1
		attrs = append(attrs, "parent", parent.id)
	}
	attrs = append(attrs, "depth", c.depth)
	c.logger = base.With(attrs...)
	return context.WithValue(ctx, callKey{}, c), c.logger
}

// FromContext returns the logger of the innermost call scope, a logger for
// the attached Log outside any call, or a discarding logger.
func FromContext(ctx context.Context) *slog.Logger {
	if c, ok := ctx.Value(callKey{}).(*call); ok {
		return c.logger
	}
	if l := LogFrom(ctx); l != nil {
		return l.Logger()
	}
	return discard
}

// CallID returns the ID of the innermost call scope.
func CallID(ctx context.Context) string {
	if c, ok := ctx.Value(callKey{}).(*call); ok {
		return c.id
	}
	return ""
}

// Depth returns the nesting depth of the innermost call scope; a top-level
// call has depth 0 and no call scope has depth -1.
func Depth(ctx context.Context) int {
	if c, ok := ctx.Value(callKey{}).(*call); ok {
		return c.depth
	}
	return -1
}
