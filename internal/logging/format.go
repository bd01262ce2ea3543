package logging

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	logTimestampLayout = "2006-01-02 15:04:05"
	redacted           = "[redacted]"
)

// secretKeys are attribute keys whose values never reach a log sink.
var secretKeys = map[string]struct{}{
	"api_key":       {},
	"apikey":        {},
	"api_token":     {},
	"token":         {},
	"x-emby-token":  {},
	"authorization": {},
}

func isSecretKey(key string) bool {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	_, ok := secretKeys[strings.ToLower(key)]
	return ok
}

// scrubURL blanks credential query parameters in s when it parses as a URL
// carrying them. Emby accepts the key as ?api_key=.
func scrubURL(s string) string {
	if !strings.Contains(s, "api_key=") && !strings.Contains(s, "X-Emby-Token=") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	q := u.Query()
	changed := false
	for key := range q {
		if isSecretKey(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return s
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// redactAttr replaces secret values. Used by both handlers.
func redactAttr(key string, v slog.Value) slog.Value {
	if isSecretKey(key) {
		if v.Kind() == slog.KindString && v.String() == "" {
			return v
		}
		return slog.StringValue(redacted)
	}
	if v.Kind() == slog.KindString {
		return slog.StringValue(scrubURL(v.String()))
	}
	return v
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders a header value (component, server, path) unquoted.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatField("", v)
	}
}

// formatField renders one key=value field for the console handler.
func formatField(key string, v slog.Value) string {
	v = redactAttr(key, v.Resolve())
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = scrubURL(err.Error())
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
