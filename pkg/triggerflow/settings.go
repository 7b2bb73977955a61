package triggerflow

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/randalmurphal/triggerflow/pkg/triggerflow/config"
)

// Settings is the file-configurable part of a unit of work.
//
// In YAML:
//
//	diagnostics: true
//	bypass_all: false
//	bypass: [LeadHandler]
//	handlers:
//	  AccountHandler:
//	    max_loop_count: 2
type Settings struct {
	// Diagnostics turns on the post-run resource usage report for every
	// supervisor that does not set WithDiagnostics itself.
	Diagnostics bool

	// BypassAll sets the global bypass flag when the unit of work starts.
	BypassAll bool

	// Bypass lists identities suppressed when the unit of work starts.
	Bypass []string

	// MaxLoopCounts is the default max loop count per handler identity.
	MaxLoopCounts map[string]int
}

// Settings keys.
const (
	keyDiagnostics  = "diagnostics"
	keyBypassAll    = "bypass_all"
	keyBypass       = "bypass"
	keyHandlers     = "handlers"
	keyMaxLoopCount = "max_loop_count"
)

// SettingsFromConfig reads Settings from cfg. Unknown keys are ignored;
// malformed handler entries are rejected with a ConfigError wrapping
// ErrInvalidSettings.
func SettingsFromConfig(cfg config.Config) (Settings, error) {
	s := Settings{
		Diagnostics: cfg.Bool(keyDiagnostics, false),
		BypassAll:   cfg.Bool(keyBypassAll, false),
	}

	if cfg.Has(keyBypass) {
		ids := cfg.StringSlice(keyBypass, nil)
		if ids == nil {
			return Settings{}, invalid("", keyBypass, errors.New("want a list of handler names"))
		}
		for _, id := range ids {
			if err := validateIdentity(id); err != nil {
				return Settings{}, invalid(id, keyBypass, err)
			}
		}
		s.Bypass = ids
	}

	handlers := cfg.Section(keyHandlers)
	if cfg.Has(keyHandlers) && !cfg.IsSection(keyHandlers) {
		return Settings{}, invalid("", keyHandlers, errors.New("want a map of handler names"))
	}
	for _, id := range handlers.Keys() {
		if err := validateIdentity(id); err != nil {
			return Settings{}, invalid(id, keyHandlers, err)
		}
		h := handlers.Section(id)
		if !h.Has(keyMaxLoopCount) {
			continue
		}
		n, err := h.IntStrict(keyMaxLoopCount)
		if err != nil {
			return Settings{}, invalid(id, keyMaxLoopCount, err)
		}
		if n < 0 {
			return Settings{}, invalid(id, keyMaxLoopCount, errors.New("must not be negative"))
		}
		if s.MaxLoopCounts == nil {
			s.MaxLoopCounts = make(map[string]int)
		}
		s.MaxLoopCounts[id] = n
	}

	return s, nil
}

// LoadSettings reads Settings from a YAML or JSON file.
func LoadSettings(path string) (Settings, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return SettingsFromConfig(cfg)
}

// MaxLoopCount returns the configured limit for id and whether one is set.
func (s Settings) MaxLoopCount(id string) (int, bool) {
	n, ok := s.MaxLoopCounts[id]
	return n, ok
}

// Handlers returns the identities with a configured limit, sorted.
func (s Settings) Handlers() []string {
	return slices.Sorted(maps.Keys(s.MaxLoopCounts))
}

func invalid(id, field string, cause error) error {
	return &ConfigError{
		Identity: id,
		Field:    field,
		Err:      fmt.Errorf("%w: %w", ErrInvalidSettings, cause),
	}
}

// validateIdentity checks the identity invariants shared by supervisors and
// settings.
func validateIdentity(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyIdentity
	}
	if id == bypassAllToken {
		return ErrReservedIdentity
	}
	return nil
}
