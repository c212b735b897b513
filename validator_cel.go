package state

import (
	"fmt"
	"reflect"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELValidatorOption configures a CEL-backed validator.
type CELValidatorOption func(*celValidatorConfig)

type celValidatorConfig struct {
	registry *FuncRegistry
	reason   string
}

// CELWithFuncs exposes registry functions to the expression through a
// `call(name, [args])` builtin.
func CELWithFuncs(registry *FuncRegistry) CELValidatorOption {
	return func(cfg *celValidatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// CELWithReason overrides the rejection reason, which defaults to the
// expression text.
func CELWithReason(reason string) CELValidatorOption {
	return func(cfg *celValidatorConfig) {
		cfg.reason = reason
	}
}

// CELValidator compiles expression into a Validator using
// github.com/google/cel-go. The expression sees `value`, `path` and `state`
// and must yield a boolean; false rejects the candidate.
func CELValidator(expression string, opts ...CELValidatorOption) (Validator, error) {
	if expression == "" {
		return nil, fmt.Errorf("state: cel validator: expression must not be empty")
	}
	cfg := celValidatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	envOpts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("path", celgo.StringType),
		celgo.Variable("state", celgo.DynType),
	}
	if cfg.registry != nil {
		envOpts = append(envOpts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
		), celgo.SingletonFunctionBinding(callBinding(cfg.registry))))
	}
	env, err := celgo.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("state: cel validator %q: %w", expression, err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("state: cel validator %q: %w", expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("state: cel validator %q: %w", expression, issues.Err())
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("state: cel validator %q: %w", expression, err)
	}

	reason := cfg.reason
	if reason == "" {
		reason = fmt.Sprintf("expression %q returned false", expression)
	}
	return func(path string, value, snapshot any) error {
		out, _, err := program.Eval(map[string]any{
			"value": value,
			"path":  path,
			"state": snapshot,
		})
		if err != nil {
			return &ValidationError{Path: path, Value: value, Reason: err.Error(), Err: err}
		}
		accepted, ok := out.Value().(bool)
		if !ok {
			return &ValidationError{Path: path, Value: value, Reason: fmt.Sprintf("expression %q did not return a boolean", expression)}
		}
		if !accepted {
			return &ValidationError{Path: path, Value: value, Reason: reason}
		}
		return nil
	}, nil
}

func callBinding(registry *FuncRegistry) functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if registry == nil {
			return types.NewErr("state: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("state: call requires a function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("state: call name must be a string")
		}
		var args []any
		if len(values) > 1 {
			native, err := values[1].ConvertToNative(reflect.TypeOf([]any{}))
			if err != nil {
				return types.WrapErr(err)
			}
			args, _ = native.([]any)
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
