package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// defaultKeyOrder fixes where well-known keys appear in a line. Unknown keys
// follow in alphabetical order.
var defaultKeyOrder = strings.Fields(`
	ts level component event status
	rid rid_full ts_unix_nano update_id user_id chat_id
	handler state next_state action outcome duration_ms
	messages kb cart_id order_id product_id line_item_id items total payload
	method path http_code mode listen backend db host port
	err err_code cause attempts
`)

// Outcomes outside this set are dropped from the line.
var knownOutcome = map[string]bool{"ok": true, "fail": true, "cancelled": true, "rate_limited": true}

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler is the slog.Handler behind L. Every record becomes one
// flat line in the configured format.
type structuredHandler struct {
	cfg    handlerConfig
	rank   map[string]int
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		rank[k] = i
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	rec := h.collect(ctx, r)

	var (
		line []byte
		err  error
	)
	keys := rec.keys(h.rank)
	if h.cfg.format == formatJSON {
		line, err = encodeJSON(rec, keys)
	} else {
		line = encodeKV(rec, keys)
	}
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], h.grouped(attrs)...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &clone
}

// grouped wraps attrs in the handler's open groups so WithAttrs keeps the
// prefix that was active when they were added.
func (h *structuredHandler) grouped(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		a.Key = strings.Join(h.groups, ".") + "." + a.Key
		out[i] = a
	}
	return out
}

// collect merges handler attrs, record attrs and context metadata into a
// record. Explicit attrs win over context values.
func (h *structuredHandler) collect(ctx context.Context, r slog.Record) record {
	rec := record{}
	ts := r.Time.UTC()
	rec.set("ts", ts.Truncate(time.Millisecond).Format(timeFormatMillis))
	rec.set("level", levelName(r.Level))
	if h.cfg.format == formatJSON {
		rec.set("ts_unix_nano", ts.UnixNano())
	}

	for _, a := range h.attrs {
		rec.add("", a)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		rec.add(prefix, a)
		return true
	})
	rec.fromContext(ctx)
	rec.finish(r.Message, h.cfg.format == formatJSON)
	return rec
}

// record is one log line under construction.
type record map[string]any

func (rec record) set(key string, val any) { rec[key] = val }

func (rec record) setDefault(key string, val any, ok bool) {
	if _, present := rec[key]; ok && !present {
		rec[key] = val
	}
}

func (rec record) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	val := a.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		for _, child := range val.Group() {
			rec.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := scalar(key, val); ok {
		rec[k] = v
	}
}

func (rec record) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	rid := RIDFrom(ctx)
	rec.setDefault("rid", rid, rid != "")
	uid := UserIDFrom(ctx)
	rec.setDefault("user_id", uid, uid != 0)
	upd := UpdateIDFrom(ctx)
	rec.setDefault("update_id", upd, upd != 0)
	cid := ChatIDFrom(ctx)
	rec.setDefault("chat_id", cid, cid != 0)
	hn := HandlerFrom(ctx)
	rec.setDefault("handler", hn, hn != "")
	st := StateFrom(ctx)
	rec.setDefault("state", st, st != "")
}

// finish applies defaults and normalization once all sources are merged.
func (rec record) finish(msg string, keepFullRID bool) {
	if rid, _ := rec["rid"].(string); rid != "" {
		if short := CompactRID(rid); short != rid {
			if keepFullRID {
				rec.setDefault("rid_full", rid, true)
			}
			rec["rid"] = short
		}
	}
	if ev, _ := rec["event"].(string); ev == "" {
		if msg == "" {
			msg = "unknown"
		}
		rec["event"] = msg
	}
	if c, _ := rec["component"].(string); c == "" {
		rec["component"] = "app"
	}
	if s, ok := rec["status"].(string); ok {
		rec["status"] = strings.ToLower(s)
	}
	if o, ok := rec["outcome"].(string); ok {
		o = strings.ToLower(o)
		if knownOutcome[o] {
			rec["outcome"] = o
		} else {
			delete(rec, "outcome")
		}
	}
	for k, v := range rec {
		if v == nil || v == "" {
			delete(rec, k)
		}
	}
}

// scalar converts a resolved slog value into a plain JSON-friendly value.
// Durations are reported in milliseconds under a *_ms key.
func scalar(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
