package core

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"

	"depscout/internal/types"
)

// Candidate is one zero-argument resolution attempt. Order in a
// candidate list encodes priority; the first success wins.
type Candidate struct {
	Method types.Method
	Try    func(ctx context.Context) (types.ResolvedDependency, error)
}

// FactoryFunc builds an ordered candidate list for dependencies whose
// discovery needs depend on the environment, machine or options.
type FactoryFunc func(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) ([]Candidate, error)

// Handler specializes resolution for one dependency name. Exactly one
// field must be set: a single method, an ordered method list, or an
// arbitrary factory.
type Handler struct {
	Method  types.Method
	Methods []types.Method
	Factory FactoryFunc
}

func (h Handler) shapeCount() int {
	n := 0
	if h.Method != "" {
		n++
	}
	if len(h.Methods) > 0 {
		n++
	}
	if h.Factory != nil {
		n++
	}
	return n
}

// Registry maps dependency names to specialized handlers. Lookup is
// case-insensitive; absence means "use the default adapter ordering".
type Registry struct {
	handlers       map[string]Handler
	acceptLanguage map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		handlers:       map[string]Handler{},
		acceptLanguage: map[string]struct{}{},
	}
}

// Register installs a handler for a dependency name. A handler of an
// unrecognized shape is an engine bug.
func (r *Registry) Register(name string, handler Handler) error {
	assert.NotEmpty(context.Background(), name, "registry name must be set")
	if handler.shapeCount() != 1 {
		return EngineBug("registry entry for %q must set exactly one of Method, Methods or Factory", name)
	}
	r.handlers[strings.ToLower(name)] = handler
	return nil
}

// Lookup returns the handler registered for name, if any.
func (r *Registry) Lookup(name string) (Handler, bool) {
	handler, ok := r.handlers[strings.ToLower(name)]
	return handler, ok
}

// AllowLanguage opts a dependency into accepting the language keyword.
func (r *Registry) AllowLanguage(name string) {
	r.acceptLanguage[strings.ToLower(name)] = struct{}{}
}

// AcceptsLanguage reports whether a dependency accepts the language
// keyword.
func (r *Registry) AcceptsLanguage(name string) bool {
	_, ok := r.acceptLanguage[strings.ToLower(name)]
	return ok
}
