//go:build !js_eval

package state

import "fmt"

// JSValidator is unavailable without the js_eval build tag.
func JSValidator(expression string, opts ...JSValidatorOption) (Validator, error) {
	_ = applyJSValidatorOptions(opts)
	return nil, fmt.Errorf("state: js validator requires the js_eval build tag")
}

func jsValidatorAvailable() bool {
	return false
}
