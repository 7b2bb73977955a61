/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
triggerflow uses it to read settings files: which handlers start out
bypassed, per-handler loop limits and whether diagnostics are on.

# Basic Usage

	cfg := config.New(map[string]any{
	    "diagnostics": true,
	    "bypass":      []any{"LeadHandler"},
	    "handlers": map[string]any{
	        "AccountHandler": map[string]any{"max_loop_count": 2},
	    },
	})

	cfg.Bool("diagnostics", false)        // true
	cfg.StringSlice("bypass", nil)        // [LeadHandler]
	handlers := cfg.Section("handlers")
	handlers.Keys()                       // [AccountHandler]
	handlers.Section("AccountHandler").Int("max_loop_count", 0) // 2

IntStrict reports why a value could not be read instead of falling back,
for callers that must reject bad input.

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("triggerflow.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
