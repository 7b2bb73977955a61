// Package simulate runs scripted units of work against recording handlers.
//
// A script declares handlers, what each does when it runs, and a list of
// steps that fire them or change the bypass registry. It exists so settings
// and handler interplay can be tried from the command line without a
// platform.
package simulate

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/randalmurphal/triggerflow/pkg/triggerflow"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/bypass"
	"gopkg.in/yaml.v3"
)

// Script is a parsed simulation script.
//
//	settings:
//	  handlers:
//	    AccountHandler: {max_loop_count: 2}
//	handlers:
//	  - name: AccountHandler
//	    phases: [after_update]
//	    on_run:
//	      - run: AccountHandler
//	        phase: after_update
//	steps:
//	  - bypass: ContactHandler
//	  - run: AccountHandler
//	    phase: after_update
type Script struct {
	// Settings uses the same keys as a settings file.
	Settings map[string]any `yaml:"settings"`
	Handlers []HandlerSpec  `yaml:"handlers"`
	Steps    []Step         `yaml:"steps"`
}

// HandlerSpec declares one simulated handler.
type HandlerSpec struct {
	Name string `yaml:"name"`

	// MaxLoopCount overrides the settings limit when positive.
	MaxLoopCount int `yaml:"max_loop_count"`

	// Phases the handler implements. Empty means all of them.
	Phases []string `yaml:"phases"`

	// Error, if set, is returned by every callback after OnRun completes.
	Error string `yaml:"error"`

	// OnRun steps execute inside the callback, as nested invocations.
	OnRun []Step `yaml:"on_run"`
}

// Step actions.
const (
	ActionRun         = "run"
	ActionBypass      = "bypass"
	ActionClearBypass = "clear_bypass"
	ActionBypassAll   = "bypass_all"
	ActionClearGlobal = "clear_global"
	ActionClearAll    = "clear_all"
)

// Step is one scripted action. Exactly one action field must be set.
type Step struct {
	Run         string `yaml:"run"`
	Phase       string `yaml:"phase"`
	Bypass      string `yaml:"bypass"`
	ClearBypass string `yaml:"clear_bypass"`
	BypassAll   bool   `yaml:"bypass_all"`
	ClearGlobal bool   `yaml:"clear_global"`
	ClearAll    bool   `yaml:"clear_all"`
}

// ErrInvalidScript is wrapped by every script validation failure.
var ErrInvalidScript = errors.New("invalid simulation script")

// Action returns the step's action name.
func (s Step) Action() (string, error) {
	var actions []string
	if s.Run != "" {
		actions = append(actions, ActionRun)
	}
	if s.Bypass != "" {
		actions = append(actions, ActionBypass)
	}
	if s.ClearBypass != "" {
		actions = append(actions, ActionClearBypass)
	}
	if s.BypassAll {
		actions = append(actions, ActionBypassAll)
	}
	if s.ClearGlobal {
		actions = append(actions, ActionClearGlobal)
	}
	if s.ClearAll {
		actions = append(actions, ActionClearAll)
	}
	switch len(actions) {
	case 0:
		return "", fmt.Errorf("%w: step has no action", ErrInvalidScript)
	case 1:
		return actions[0], nil
	default:
		return "", fmt.Errorf("%w: step has several actions %v", ErrInvalidScript, actions)
	}
}

// Target returns the handler the step refers to, if any.
func (s Step) Target() string {
	switch {
	case s.Run != "":
		return s.Run
	case s.Bypass != "":
		return s.Bypass
	default:
		return s.ClearBypass
	}
}

// Parse decodes a script. Unknown keys are rejected so typos surface.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks handler declarations and every step, including nested
// ones, against them.
func (s *Script) Validate() error {
	known := make(map[string]bool, len(s.Handlers))
	for _, h := range s.Handlers {
		if !bypass.ValidID(h.Name) {
			return fmt.Errorf("%w: handler name %q", ErrInvalidScript, h.Name)
		}
		if known[h.Name] {
			return fmt.Errorf("%w: handler %s declared twice", ErrInvalidScript, h.Name)
		}
		known[h.Name] = true
		if h.MaxLoopCount < 0 {
			return fmt.Errorf("%w: handler %s: max_loop_count must not be negative", ErrInvalidScript, h.Name)
		}
		for _, p := range h.Phases {
			if _, err := triggerflow.ParsePhase(p); err != nil {
				return fmt.Errorf("%w: handler %s: %w", ErrInvalidScript, h.Name, err)
			}
		}
	}

	for _, h := range s.Handlers {
		if err := validateSteps(h.OnRun, known); err != nil {
			return fmt.Errorf("handler %s on_run: %w", h.Name, err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	return validateSteps(s.Steps, known)
}

func validateSteps(steps []Step, known map[string]bool) error {
	for i, step := range steps {
		action, err := step.Action()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if action == ActionBypass || action == ActionClearBypass {
			if !bypass.ValidID(step.Target()) {
				return fmt.Errorf("step %d: %w: cannot %s %q", i+1, ErrInvalidScript, action, step.Target())
			}
			continue
		}
		if action != ActionRun {
			continue
		}
		if !known[step.Run] {
			return fmt.Errorf("step %d: %w: unknown handler %s", i+1, ErrInvalidScript, step.Run)
		}
		if _, err := triggerflow.ParsePhase(step.Phase); err != nil {
			return fmt.Errorf("step %d: %w: %w", i+1, ErrInvalidScript, err)
		}
	}
	return nil
}
