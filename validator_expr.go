package state

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
)

// ExprValidatorOption configures an expr-backed validator.
type ExprValidatorOption func(*exprValidatorConfig)

type exprValidatorConfig struct {
	registry *FuncRegistry
	reason   string
}

// ExprWithFuncs exposes registry functions to the expression.
func ExprWithFuncs(registry *FuncRegistry) ExprValidatorOption {
	return func(cfg *exprValidatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// ExprWithReason overrides the rejection reason, which defaults to the
// expression text.
func ExprWithReason(reason string) ExprValidatorOption {
	return func(cfg *exprValidatorConfig) {
		cfg.reason = reason
	}
}

// ExprValidator compiles expression into a Validator using
// github.com/expr-lang/expr. The expression sees `value`, `path` and `state`
// bindings plus any registered functions, and must yield a boolean; false
// rejects the candidate.
func ExprValidator(expression string, opts ...ExprValidatorOption) (Validator, error) {
	if expression == "" {
		return nil, fmt.Errorf("state: expr validator: expression must not be empty")
	}
	cfg := exprValidatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if cfg.registry != nil {
		for _, name := range cfg.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(args ...any) (any, error) {
				return cfg.registry.Call(fn, args...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("state: expr validator %q: %w", expression, err)
	}

	reason := cfg.reason
	if reason == "" {
		reason = fmt.Sprintf("expression %q returned false", expression)
	}
	return func(path string, value, snapshot any) error {
		env := map[string]any{
			"value": value,
			"path":  path,
			"state": snapshot,
		}
		out, err := exprlang.Run(program, env)
		if err != nil {
			return &ValidationError{Path: path, Value: value, Reason: err.Error(), Err: err}
		}
		accepted, ok := out.(bool)
		if !ok {
			return &ValidationError{Path: path, Value: value, Reason: fmt.Sprintf("expression %q did not return a boolean", expression)}
		}
		if !accepted {
			return &ValidationError{Path: path, Value: value, Reason: reason}
		}
		return nil
	}, nil
}
