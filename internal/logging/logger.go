package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"acexporter/internal/config"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
	ansiGray    = "\x1b[90m"

	// LevelPanic is the most severe level; slog has no built-in equivalent.
	LevelPanic = slog.Level(12)
)

// New builds a logger that fans out to the enabled console and file sinks.
// Params: cfg validated log section.
// Returns: logger, close function for file sinks and setup error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	handlers := make([]slog.Handler, 0, 2)
	closers := make([]io.Closer, 0, 1)

	if cfg.Console.Enabled {
		handler, err := newSinkHandler(os.Stdout, cfg.Console, true)
		if err != nil {
			return nil, nil, fmt.Errorf("log.console: %w", err)
		}
		handlers = append(handlers, handler)
	}

	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("log.file: create dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("log.file: open %q: %w", path, err)
		}
		handler, err := newSinkHandler(file, cfg.File, false)
		if err != nil {
			_ = file.Close()
			return nil, nil, fmt.Errorf("log.file: %w", err)
		}
		handlers = append(handlers, handler)
		closers = append(closers, file)
	}

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			for _, closer := range closers {
				_ = closer.Close()
			}
		})
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closeFn, nil
	case 1:
		return slog.New(handlers[0]), closeFn, nil
	default:
		return slog.New(fanoutHandler(handlers)), closeFn, nil
	}
}

// ParseLevel maps a config level name to slog level.
// Params: level is one of debug|info|warn|error|panic.
// Returns: slog level or error for unknown names.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "panic":
		return LevelPanic, nil
	default:
		return 0, fmt.Errorf("unsupported log level %q", level)
	}
}

func newSinkHandler(dst io.Writer, sink config.LogSinkConfig, colored bool) (slog.Handler, error) {
	level, err := ParseLevel(sink.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.LevelKey {
				if lvl, ok := attr.Value.Any().(slog.Level); ok && lvl >= LevelPanic {
					attr.Value = slog.StringValue("PANIC")
				}
			}
			return attr
		},
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "json":
		return slog.NewJSONHandler(dst, opts), nil
	case "", "line":
		if colored {
			dst = &colorLineWriter{dst: dst}
		}
		return slog.NewTextHandler(dst, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", sink.Format)
	}
}

// fanoutHandler duplicates records to every handler that accepts the level.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithAttrs(attrs))
	}
	return next
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithGroup(name))
	}
	return next
}

// colorLineWriter paints slog text lines by level and highlights value tokens.
// Lines without a recognised level pass through untouched.
type colorLineWriter struct {
	mu  sync.Mutex
	dst io.Writer
}

func (w *colorLineWriter) Write(p []byte) (int, error) {
	line := string(p)
	newline := strings.HasSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\n")

	base := levelColor(line)
	if base == "" {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, err := w.dst.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	var b strings.Builder
	b.Grow(len(line) + 64)
	b.WriteString(base)
	writeColoredTokens(&b, line, base)
	b.WriteString(ansiReset)
	if newline {
		b.WriteByte('\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.dst, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func levelColor(line string) string {
	switch {
	case strings.Contains(line, "level=DEBUG"):
		return ansiGray
	case strings.Contains(line, "level=INFO"):
		return ansiBlue
	case strings.Contains(line, "level=WARN"):
		return ansiMagenta
	case strings.Contains(line, "level=ERROR"), strings.Contains(line, "level=PANIC"):
		return ansiRed
	default:
		return ""
	}
}

// writeColoredTokens copies key=value pairs, colouring quoted, IP and numeric values.
func writeColoredTokens(b *strings.Builder, line string, base string) {
	i := 0
	for i < len(line) {
		if line[i] == ' ' {
			b.WriteByte(' ')
			i++
			continue
		}

		start := i
		for i < len(line) && line[i] != '=' && line[i] != ' ' {
			i++
		}
		if i >= len(line) || line[i] != '=' {
			b.WriteString(line[start:i])
			continue
		}
		b.WriteString(line[start : i+1])
		i++

		valueStart := i
		if i < len(line) && line[i] == '"' {
			i++
			for i < len(line) {
				if line[i] == '\\' {
					i += 2
					continue
				}
				if line[i] == '"' {
					i++
					break
				}
				i++
			}
			if i > len(line) {
				i = len(line)
			}
			writeToken(b, ansiGreen, line[valueStart:i], base)
			continue
		}

		for i < len(line) && line[i] != ' ' {
			i++
		}
		value := line[valueStart:i]
		switch {
		case isIPToken(value):
			writeToken(b, ansiCyan, value, base)
		case isNumberToken(value):
			writeToken(b, ansiYellow, value, base)
		default:
			b.WriteString(value)
		}
	}
}

func writeToken(b *strings.Builder, color, token, base string) {
	if token == "" {
		return
	}
	b.WriteString(color)
	b.WriteString(token)
	b.WriteString(ansiReset)
	b.WriteString(base)
}

func isIPToken(value string) bool {
	if net.ParseIP(value) != nil {
		return true
	}
	host, _, err := net.SplitHostPort(value)
	return err == nil && net.ParseIP(host) != nil
}

func isNumberToken(value string) bool {
	if value == "" {
		return false
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}
