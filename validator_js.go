//go:build js_eval

package state

import (
	"fmt"

	"github.com/dop251/goja"
)

// JSValidator compiles expression into a Validator using goja. The expression
// sees `value`, `path` and `state` bindings plus any registered functions, and
// must yield a boolean; false rejects the candidate.
func JSValidator(expression string, opts ...JSValidatorOption) (Validator, error) {
	if expression == "" {
		return nil, fmt.Errorf("state: js validator: expression must not be empty")
	}
	cfg := applyJSValidatorOptions(opts)

	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, fmt.Errorf("state: js validator %q: %w", expression, err)
	}

	reason := cfg.reason
	if reason == "" {
		reason = fmt.Sprintf("expression %q returned false", expression)
	}
	return func(path string, value, snapshot any) error {
		vm := goja.New()
		vm.Set("value", value)
		vm.Set("path", path)
		vm.Set("state", snapshot)
		if cfg.registry != nil {
			vm.Set("call", func(name string, arguments ...any) (any, error) {
				return cfg.registry.Call(name, arguments...)
			})
			for _, name := range cfg.registry.Names() {
				fn := name
				vm.Set(fn, func(arguments ...any) (any, error) {
					return cfg.registry.Call(fn, arguments...)
				})
			}
		}
		out, err := vm.RunProgram(program)
		if err != nil {
			return &ValidationError{Path: path, Value: value, Reason: err.Error(), Err: err}
		}
		accepted, ok := out.Export().(bool)
		if !ok {
			return &ValidationError{Path: path, Value: value, Reason: fmt.Sprintf("expression %q did not return a boolean", expression)}
		}
		if !accepted {
			return &ValidationError{Path: path, Value: value, Reason: reason}
		}
		return nil
	}, nil
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

func jsValidatorAvailable() bool {
	return true
}
