package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConsoleFormatter renders entries for terminals
type ConsoleFormatter struct {
	timeFormat string
}

// NewConsoleFormatter creates a console formatter
func NewConsoleFormatter(config *Config) *ConsoleFormatter {
	tf := config.TimeFormat
	if tf == "" {
		tf = time.RFC3339
	}
	return &ConsoleFormatter{timeFormat: tf}
}

// Format implements Formatter
func (f *ConsoleFormatter) Format(entry *LogEntry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(entry.Timestamp.Format(f.timeFormat))
	b.WriteString(" [")
	b.WriteString(entry.Level.String())
	b.WriteString("] ")
	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
		}
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

// JSONFormatter renders entries as one JSON object per line
type JSONFormatter struct {
	timeFormat string
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter(config *Config) *JSONFormatter {
	tf := config.TimeFormat
	if tf == "" {
		tf = time.RFC3339
	}
	return &JSONFormatter{timeFormat: tf}
}

// Format implements Formatter
func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	record := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		record[k] = v
	}
	record["time"] = entry.Timestamp.Format(f.timeFormat)
	record["level"] = entry.Level.String()
	record["message"] = entry.Message
	if entry.Error != nil {
		record["error"] = entry.Error.Error()
	}

	out, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
