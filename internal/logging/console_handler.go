package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one header line per record followed by indented
// fields. Component, asset and decision result are lifted into the header:
//
//	2024-03-01 10:00:00 INFO [staleness] css/app.css – remote checked -> skip
//	    - storage_key: static/css/app.css
//	    - decision_reason: remote up to date
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	fields := newFieldSet(record.NumAttrs() + len(h.attrs))
	for _, attr := range h.attrs {
		fields.add(h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields.add(h.groups, attr)
		return true
	})

	component := fields.take(FieldComponent)
	asset := fields.take(FieldAsset)
	decision := fields.take(FieldDecisionResult)
	if decision != "" {
		fields.take(FieldDecisionType)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var b strings.Builder
	b.WriteString(formatTime(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if asset != "" {
		b.WriteString(" " + asset)
	}
	b.WriteString(" – ")
	b.WriteString(msg)
	if decision != "" {
		b.WriteString(" -> " + decision)
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			b.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	b.WriteByte('\n')
	for _, f := range fields.list() {
		b.WriteString("    - ")
		b.WriteString(f.key)
		b.WriteString(": ")
		b.WriteString(formatField(f.key, f.value))
		b.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

type field struct {
	key   string
	value slog.Value
}

// fieldSet keeps flattened attributes in first-seen order. A repeated key
// keeps its first position and takes the latest value.
type fieldSet struct {
	fields []field
	index  map[string]int
	taken  map[string]bool
}

func newFieldSet(capacity int) *fieldSet {
	return &fieldSet{
		fields: make([]field, 0, capacity),
		index:  make(map[string]int, capacity),
		taken:  map[string]bool{},
	}
}

func (s *fieldSet) add(groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, child := range value.Group() {
			s.add(inner, child)
		}
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	if key == "" {
		return
	}
	if pos, ok := s.index[key]; ok {
		s.fields[pos].value = value
		return
	}
	s.index[key] = len(s.fields)
	s.fields = append(s.fields, field{key: key, value: value})
}

// take removes key from the rendered fields and returns its plain value.
func (s *fieldSet) take(key string) string {
	pos, ok := s.index[key]
	if !ok || s.taken[key] {
		return ""
	}
	s.taken[key] = true
	return plainValue(s.fields[pos].value)
}

func (s *fieldSet) list() []field {
	if len(s.taken) == 0 {
		return s.fields
	}
	out := make([]field, 0, len(s.fields))
	for _, f := range s.fields {
		if !s.taken[f.key] {
			out = append(out, f)
		}
	}
	return out
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
