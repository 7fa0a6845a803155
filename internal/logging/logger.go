package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"baler/internal/config"
)

// Options configure logger construction for one process invocation.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
}

// New builds the process logger. Format "console" renders compact
// single-line text, "json" emits one object per line. Every output path
// receives every record; "stdout" and "stderr" are recognized as path
// names, anything else is opened for append.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)

	sink, terminal, err := combinedSink(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newConsoleHandler(sink, level, terminal)), nil
	case "json":
		return slog.New(newJSONHandler(sink, level)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// RunLogPath returns the per-run log file path for the given run identifier.
func RunLogPath(cfg *config.Config, runID string) string {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("baler-run-%s.log", runID))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// combinedSink merges the output paths into one writer, dropping blanks and
// duplicates. The terminal result is true only when the whole sink is a
// single terminal, the one case where color cannot leak into a file.
func combinedSink(paths []string) (io.Writer, bool, error) {
	seen := make(map[string]struct{}, len(paths))
	var writers []io.Writer
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		writer, err := openSink(path)
		if err != nil {
			return nil, false, err
		}
		writers = append(writers, writer)
	}

	switch len(writers) {
	case 0:
		return os.Stdout, isTerminal(os.Stdout), nil
	case 1:
		file, ok := writers[0].(*os.File)
		return writers[0], ok && isTerminal(file), nil
	default:
		return io.MultiWriter(writers...), false, nil
	}
}

func openSink(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory for %s: %w", path, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func isTerminal(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: normalizeJSONAttr,
	})
}

func normalizeJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorDim    = "\x1b[2m"
)

// consoleHandler renders one compact line per record:
//
//	15:04:05 INF catalog: opened store item_id=7
//
// The per-run log file name already carries the date and run identifier,
// so line timestamps stay short. At debug level the caller is appended as
// (file.go:line).
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	color  bool
	caller bool
	prefix string      // dotted group path accumulated by WithGroup
	attrs  []slog.Attr // accumulated by WithAttrs, keys already prefixed
}

func newConsoleHandler(w io.Writer, level slog.Level, color bool) slog.Handler {
	return &consoleHandler{
		mu:     &sync.Mutex{},
		out:    w,
		level:  level,
		color:  color,
		caller: level <= slog.LevelDebug,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(160)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("15:04:05"))
	buf.WriteByte(' ')
	h.writeBadge(&buf, record.Level)
	buf.WriteByte(' ')

	component, attrs := h.collect(record)
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	buf.WriteString(record.Message)

	if h.caller {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}

	for _, attr := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(attr.Key)
		buf.WriteByte('=')
		appendValue(&buf, attr.Value)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = appendFlattened(append([]slog.Attr(nil), h.attrs...), h.prefix, attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *consoleHandler) writeBadge(buf *bytes.Buffer, level slog.Level) {
	badge, badgeColor := "INF", colorGreen
	switch {
	case level >= slog.LevelError:
		badge, badgeColor = "ERR", colorRed
	case level >= slog.LevelWarn:
		badge, badgeColor = "WRN", colorYellow
	case level < slog.LevelInfo:
		badge, badgeColor = "DBG", colorDim
	}
	if h.color {
		buf.WriteString(badgeColor)
		buf.WriteString(badge)
		buf.WriteString(colorReset)
		return
	}
	buf.WriteString(badge)
}

// collect flattens accumulated and per-record attributes into render order
// and pulls the component name out of the attribute list.
func (h *consoleHandler) collect(record slog.Record) (string, []slog.Attr) {
	flat := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	flat = append(flat, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		flat = appendFlattened(flat, h.prefix, attr)
		return true
	})

	component := ""
	kept := flat[:0]
	for _, attr := range flat {
		if attr.Key == FieldComponent && component == "" {
			component = attr.Value.Resolve().String()
			continue
		}
		kept = append(kept, attr)
	}
	return component, kept
}

// appendFlattened resolves values and expands group attributes into dotted
// keys so every rendered attribute is a flat key=value pair.
func appendFlattened(dst []slog.Attr, prefix string, attrs ...slog.Attr) []slog.Attr {
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		attr.Value = attr.Value.Resolve()
		if attr.Value.Kind() == slog.KindGroup {
			groupPrefix := prefix
			if attr.Key != "" {
				groupPrefix = prefix + attr.Key + "."
			}
			dst = appendFlattened(dst, groupPrefix, attr.Value.Group()...)
			continue
		}
		if prefix != "" {
			attr.Key = prefix + attr.Key
		}
		dst = append(dst, attr)
	}
	return dst
}

// appendValue writes one attribute value, quoting anything that would break
// key=value tokenization.
func appendValue(buf *bytes.Buffer, v slog.Value) {
	switch v.Kind() {
	case slog.KindString:
		appendQuoted(buf, v.String())
	case slog.KindInt64:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		buf.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		buf.WriteString(strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case slog.KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case slog.KindDuration:
		buf.WriteString(v.Duration().String())
	case slog.KindTime:
		buf.WriteString(v.Time().UTC().Format(time.RFC3339))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			appendQuoted(buf, err.Error())
			return
		}
		appendQuoted(buf, fmt.Sprint(v.Any()))
	default:
		appendQuoted(buf, v.String())
	}
}

func appendQuoted(buf *bytes.Buffer, s string) {
	plain := s != "" && strings.IndexFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	}) < 0
	if plain {
		buf.WriteString(s)
		return
	}
	buf.WriteString(strconv.Quote(s))
}
