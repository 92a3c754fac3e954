package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// DefaultScriptTimeout bounds the run time of a configuration script.
const DefaultScriptTimeout = 2 * time.Second

type scriptConfig struct {
	logger  *slog.Logger
	timeout time.Duration
}

// ScriptOption configures LoadScript.
type ScriptOption func(*scriptConfig)

// WithConsole routes console.log, console.warn and console.error to l.
func WithConsole(l *slog.Logger) ScriptOption {
	return func(c *scriptConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithScriptTimeout overrides DefaultScriptTimeout.
func WithScriptTimeout(d time.Duration) ScriptOption {
	return func(c *scriptConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// LoadScript evaluates a JavaScript configuration program. The program
// either assigns a document to the global "config" or leaves it as the
// value of its last expression. The built-in document is available as the
// global "defaults".
//
//	config = { faces: defaults.faces.slice(0, 2) }
func LoadScript(src string, opts ...ScriptOption) (*Config, error) {
	cfg := scriptConfig{logger: slog.New(discardHandler{}), timeout: DefaultScriptTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	vm := goja.New()
	registerConsole(vm, cfg.logger)

	defaults, err := JSON.Marshal(Document{Faces: builtinFaces()})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := vm.RunString("var defaults = " + string(defaults) + ";"); err != nil {
		return nil, fmt.Errorf("config: script: %w", err)
	}

	timer := time.AfterFunc(cfg.timeout, func() {
		vm.Interrupt("timeout")
	})
	result, err := vm.RunString(src)
	timer.Stop()
	if err != nil {
		return nil, fmt.Errorf("config: script: %w", err)
	}

	if v := vm.Get("config"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		result = v
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, fmt.Errorf("config: script produced no document")
	}

	raw, err := JSON.Marshal(result.Export())
	if err != nil {
		return nil, fmt.Errorf("config: script result: %w", err)
	}
	var doc Document
	if err := JSON.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: script result: %w", err)
	}
	return doc.Build()
}

func registerConsole(vm *goja.Runtime, l *slog.Logger) {
	emit := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			l.Log(context.Background(), level, formatArgs(call.Arguments), "source", "config-script")
			return goja.Undefined()
		}
	}
	console := vm.NewObject()
	_ = console.Set("log", emit(slog.LevelInfo))
	_ = console.Set("warn", emit(slog.LevelWarn))
	_ = console.Set("error", emit(slog.LevelError))
	_ = vm.Set("console", console)
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
