package state

type jsValidatorConfig struct {
	registry *FuncRegistry
	reason   string
}

// JSValidatorOption configures a goja-backed validator.
type JSValidatorOption func(*jsValidatorConfig)

// JSWithFuncs exposes registry functions to the script.
func JSWithFuncs(registry *FuncRegistry) JSValidatorOption {
	return func(cfg *jsValidatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// JSWithReason overrides the rejection reason, which defaults to the
// expression text.
func JSWithReason(reason string) JSValidatorOption {
	return func(cfg *jsValidatorConfig) {
		cfg.reason = reason
	}
}

func applyJSValidatorOptions(opts []JSValidatorOption) jsValidatorConfig {
	cfg := jsValidatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
