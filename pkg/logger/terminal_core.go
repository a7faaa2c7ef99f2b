package logger

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TerminalPrefix marks log entries that are operator-facing output. They are
// printed as plain text on the console and still recorded by the other cores.
const TerminalPrefix = "terminal prompt:"

type terminalConsoleCore struct {
	base    zapcore.Core
	out     io.Writer
	context []zapcore.Field
}

func newTerminalConsoleCore(base zapcore.Core, out io.Writer) zapcore.Core {
	return &terminalConsoleCore{base: base, out: out}
}

func (c *terminalConsoleCore) Enabled(level zapcore.Level) bool {
	return c.base.Enabled(level)
}

func (c *terminalConsoleCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.context)+len(fields))
	merged = append(merged, c.context...)
	merged = append(merged, fields...)
	return &terminalConsoleCore{base: c.base.With(fields), out: c.out, context: merged}
}

func (c *terminalConsoleCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if strings.HasPrefix(entry.Message, TerminalPrefix) {
		return ce.AddCore(entry, c)
	}
	return c.base.Check(entry, ce)
}

func (c *terminalConsoleCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if strings.HasPrefix(entry.Message, TerminalPrefix) {
		c.writeTerminal(entry.Message, append(c.context[:len(c.context):len(c.context)], fields...))
		return nil
	}
	return c.base.Write(entry, fields)
}

func (c *terminalConsoleCore) Sync() error {
	return c.base.Sync()
}

// writeTerminal prints the message, then an "output" field verbatim, then
// the remaining fields as sorted "key: value" lines.
func (c *terminalConsoleCore) writeTerminal(message string, fields []zapcore.Field) {
	text := strings.TrimSpace(strings.TrimPrefix(message, TerminalPrefix))
	if text != "" || len(fields) == 0 {
		fmt.Fprintln(c.out, text)
	}
	if len(fields) == 0 {
		return
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}

	if output, ok := enc.Fields["output"]; ok {
		fmt.Fprintln(c.out, strings.TrimRight(fmt.Sprint(output), "\n"))
		delete(enc.Fields, "output")
	}

	keys := make([]string, 0, len(enc.Fields))
	for key := range enc.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(c.out, "  %s: %v\n", key, enc.Fields[key])
	}
}
