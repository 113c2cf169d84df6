// Package registry implements the Action Registry (spec §4.F): a named,
// typed, parameter-validated action table whose system-prompt description
// and dispatch table are generated from the same metadata, so the model's
// view of what it can do can never drift from what Execute actually runs
// (spec §9: "dynamic action dispatch by string type" is re-architected
// into registration-by-name plus per-entry schema, not a hand-maintained
// switch statement).
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anxuanzi/bua-go/bruntime/errs"
)

// ParamType enumerates the scalar kinds a handler's parameters may take.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
)

// ParamSpec describes one named parameter of an action.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
	// Enum restricts the parameter to one of these string values when set
	// (e.g. scroll's `direction`).
	Enum []string
}

// Action is one model-issued, parameterised operation (spec §3). Action
// is immutable once constructed — handlers receive Params by value and
// must not retain a pointer to mutate it later.
type Action struct {
	Type   string
	Params map[string]any
}

// ActionError is the optional structured error an ActionResult carries.
type ActionError struct {
	Message     string
	Recoverable bool
}

func (e *ActionError) Error() string { return e.Message }

// ActionResult is produced exactly once per action execution (spec §3).
type ActionResult struct {
	ExtractedContent string
	LongTermMemory   string
	ShortTermMemory  string
	Err              *ActionError
}

// Success builds an ActionResult with no error, carrying longTerm as the
// model-visible memory and shortTerm as the debug memory. ExtractedContent
// is left empty.
func Success(longTerm, shortTerm string) ActionResult {
	return ActionResult{LongTermMemory: longTerm, ShortTermMemory: shortTerm}
}

// Failure builds an ActionResult carrying a structured error. recoverable
// should be true unless the caller already knows the task cannot
// continue.
func Failure(message string, recoverable bool) ActionResult {
	return ActionResult{
		LongTermMemory:  message,
		ShortTermMemory: message,
		Err:             &ActionError{Message: message, Recoverable: recoverable},
	}
}

// Handler implements one action's side effect against a Controller.
type Handler func(ctx context.Context, controller Controller, params map[string]any) (ActionResult, error)

// Definition is what gets registered under a name: its parameter schema,
// a short natural-language description for the system prompt, and the
// handler that executes it.
type Definition struct {
	Name        string
	Description string
	Params      []ParamSpec
	Handler     Handler
}

// Registry is the named table of action Definitions.
type Registry struct {
	defs map[string]*Definition
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def to the registry, overwriting any prior definition of
// the same name.
func (r *Registry) Register(def Definition) {
	d := def
	r.defs[d.Name] = &d
}

// Names returns every registered action name, sorted, so prompt
// generation is deterministic.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the definition for name, if registered.
func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Execute validates params against the named action's schema and, on
// success, invokes its handler. Unknown parameter keys are rejected;
// missing required parameters are rejected; the action's own handler
// error, if any, is what the model sees via the returned ActionResult
// (never a raw Go error — spec §4.F: "the registry rejects unknown keys
// and returns a structured error the loop can feed back to the model").
func (r *Registry) Execute(ctx context.Context, action Action, controller Controller) (ActionResult, error) {
	def, ok := r.defs[action.Type]
	if !ok {
		return Failure(fmt.Sprintf("unknown action %q", action.Type), true), nil
	}

	if err := validate(def, action.Params); err != nil {
		ae := errs.NewInvalidActionError(action.Type, err.Error())
		return Failure(ae.LongTermMemory, true), nil
	}

	return def.Handler(ctx, controller, action.Params)
}

func validate(def *Definition, params map[string]any) error {
	allowed := make(map[string]ParamSpec, len(def.Params))
	for _, p := range def.Params {
		allowed[p.Name] = p
	}

	for k := range params {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("unexpected parameter %q", k)
		}
	}

	for _, p := range def.Params {
		v, present := params[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		if err := checkType(p, v); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	return nil
}

func checkType(p ParamSpec, v any) error {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		if len(p.Enum) > 0 {
			for _, e := range p.Enum {
				if e == s {
					return nil
				}
			}
			return fmt.Errorf("value %q not in %v", s, p.Enum)
		}
		return nil
	case TypeInt:
		switch v.(type) {
		case int, int32, int64, float64:
			return nil
		default:
			return fmt.Errorf("expected integer, got %T", v)
		}
	case TypeFloat:
		switch v.(type) {
		case float32, float64, int, int64:
			return nil
		default:
			return fmt.Errorf("expected number, got %T", v)
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		return nil
	default:
		return nil
	}
}

// SystemPrompt renders every registered action's name, parameters, and
// description for inclusion in the model's system prompt (spec §4.F: the
// description used to synthesise the system prompt comes from the same
// metadata Execute validates against, guaranteeing agreement).
func (r *Registry) SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("Available actions:\n")
	for _, name := range r.Names() {
		def := r.defs[name]
		sb.WriteString(fmt.Sprintf("- %s(", name))
		for i, p := range def.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
			if !p.Required {
				sb.WriteString("?")
			}
			sb.WriteString(fmt.Sprintf(": %s", p.Type))
		}
		sb.WriteString(fmt.Sprintf(") — %s\n", def.Description))
	}
	return sb.String()
}

// IntParam reads an int-typed parameter, accepting both Go int and
// float64 (the shape JSON decoding into map[string]any produces).
func IntParam(params map[string]any, name string) (int, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// StringParam reads a string-typed parameter.
func StringParam(params map[string]any, name string) (string, bool) {
	v, ok := params[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BoolParam reads a bool-typed parameter, defaulting to false if absent.
func BoolParam(params map[string]any, name string) bool {
	v, ok := params[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// FloatParam reads a float-typed parameter, accepting int inputs too.
func FloatParam(params map[string]any, name string) (float64, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
