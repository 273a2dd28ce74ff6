package toolhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Sentinel errors used by hosts to map failures onto their own surface.
var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrInvalidArgs = errors.New("invalid arguments")
)

// Handler executes a tool with raw JSON arguments already validated against
// the tool's schema, returning a raw JSON result.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Definition describes a callable tool. Name must be a stable lowercase
// snake_case identifier and never change; behavior changes bump SemVer.
type Definition struct {
	Name         string
	SemVer       string
	Description  string
	JSONSchema   json.RawMessage
	Capabilities []string
	Handler      Handler
}

// Meta is the minimal serializable view used by catalogs and logs.
type Meta struct {
	Name         string   `json:"name"`
	SemVer       string   `json:"semver"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

var (
	nameRe   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	semverRe = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)$`)
)

// Registry holds the available tools keyed by stable name.
type Registry struct {
	tools map[string]Definition

	// PerToolTimeout bounds a single Execute call. Zero applies no deadline
	// beyond the caller's context.
	PerToolTimeout time.Duration
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register adds or replaces a tool definition after validating its identity,
// version, schema and handler.
func (r *Registry) Register(def Definition) error {
	if !nameRe.MatchString(def.Name) {
		return fmt.Errorf("invalid tool name %q: must be lowercase snake_case starting with a letter", def.Name)
	}
	if !semverRe.MatchString(def.SemVer) {
		return fmt.Errorf("invalid semver %q for tool %q", def.SemVer, def.Name)
	}
	if len(def.JSONSchema) == 0 || !isJSONObject(def.JSONSchema) {
		return fmt.Errorf("tool %q: json schema must be a non-empty JSON object", def.Name)
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q: handler must not be nil", def.Name)
	}
	r.tools[def.Name] = def
	return nil
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// Specs returns tool specs sorted by name for deterministic output.
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, name := range r.sortedNames() {
		def := r.tools[name]
		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: fmt.Sprintf("%s (version %s)", def.Description, def.SemVer),
			JSONSchema:  def.JSONSchema,
		})
	}
	return specs
}

// Catalog returns a deterministic, sorted listing of the registered tools.
func (r *Registry) Catalog() []Meta {
	out := make([]Meta, 0, len(r.tools))
	for _, name := range r.sortedNames() {
		def := r.tools[name]
		out = append(out, Meta{
			Name:         def.Name,
			SemVer:       def.SemVer,
			Description:  def.Description,
			Capabilities: append([]string(nil), def.Capabilities...),
		})
	}
	return out
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute validates args against the tool's schema and runs its handler.
// Empty args are treated as an empty object.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	def, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if err := validateArgs(decoded, def.JSONSchema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if r.PerToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.PerToolTimeout)
		defer cancel()
	}
	return def.Handler(ctx, args)
}

func isJSONObject(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	_, ok := v.(map[string]any)
	return ok
}
