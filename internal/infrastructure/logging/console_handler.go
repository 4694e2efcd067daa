package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// ConsoleHandler is a slog.Handler that writes bracketed, colorized lines:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value key=value
//
// Colors are only emitted when the writer is a TTY. The "system" attribute is
// pulled out of the attr list and rendered as its own bracket.
type ConsoleHandler struct {
	w      io.Writer
	level  slog.Level
	mu     *sync.Mutex
	system string
	colors bool
	attrs  []slog.Attr
}

// NewConsoleHandler creates a handler writing to w.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		w:      w,
		level:  slog.LevelInfo,
		mu:     &sync.Mutex{},
		colors: writerIsTerminal(w),
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level.Level()
	}
	return h
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	h.writeColored(&buf, levelColor(r.Level), "["+levelLabel(r.Level)+"]")
	if h.system != "" {
		buf.WriteString(" [" + h.system + "]")
	}
	h.writeColored(&buf, ansiGray, " ["+r.Time.Format("15:04:05")+"]")
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, attr := range h.attrs {
		writeAttr(&buf, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, a)
		return true
	})
	buf.WriteString("\n")

	_, err := h.w.Write([]byte(buf.String()))
	return err
}

func (h *ConsoleHandler) writeColored(buf *strings.Builder, color, s string) {
	if h.colors {
		buf.WriteString(color)
		buf.WriteString(s)
		buf.WriteString(ansiReset)
		return
	}
	buf.WriteString(s)
}

func writeAttr(buf *strings.Builder, a slog.Attr) {
	if a.Key == "system" {
		// shown in its own bracket instead
		return
	}
	fmt.Fprintf(buf, " %s=%v", a.Key, a.Value.Any())
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	for _, attr := range attrs {
		if attr.Key == "system" {
			clone.system = attr.Value.String()
		}
	}
	return &clone
}

// WithGroup is accepted but groups are not rendered; the flat key=value form
// stays readable for the handful of attrs these logs carry.
func (h *ConsoleHandler) WithGroup(string) slog.Handler {
	return h
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiCyan
	default:
		return ansiGray
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
