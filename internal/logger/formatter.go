package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FixedFormatWriter turns zerolog JSON lines into fixed-width columns for
// people reading the service log in Notepad on the host:
//
//	2026-10-18 09:12:44.031 [INF] [controller     ] Service status reported state=running
//	2026-10-18 09:12:51.870 [WRN] [controller     ] Control code declined code=200
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter creates a new FixedFormatWriter that wraps the given writer.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

const (
	componentWidth  = 15
	timestampWidth  = len(fixedTimeLayout)
	fixedTimeLayout = "2006-01-02 15:04:05.000"
)

var levelAbbrev = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := formatTimestamp(takeString(fields, zerolog.TimestampFieldName))
	level := takeString(fields, zerolog.LevelFieldName)
	component := takeString(fields, "component")
	message := takeString(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.CallerFieldName)

	abbrev, ok := levelAbbrev[level]
	if !ok {
		abbrev = "???"
	}
	if len(component) > componentWidth {
		component = component[:componentWidth]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, abbrev, componentWidth, component, message)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	// zerolog treats a short count as a failed write
	return len(p), err
}

// takeString removes key from fields and returns its value as a string.
func takeString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatTimestamp renders an RFC3339 timestamp as wall-clock time in its own
// offset with millisecond precision. The result is always timestampWidth wide.
func formatTimestamp(ts string) string {
	if ts == "" {
		return strings.Repeat(" ", timestampWidth)
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Format(fixedTimeLayout)
	}
	if len(ts) > timestampWidth {
		return ts[:timestampWidth]
	}
	return ts + strings.Repeat(" ", timestampWidth-len(ts))
}

// formatExtra renders the remaining fields as sorted key=value pairs.
func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			s = fmt.Sprintf("%q", s)
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, " ")
}
