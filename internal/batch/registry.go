package batch

import (
	"fmt"

	"github.com/jo-hoe/layerbatch/internal/invoke"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
)

// ProcedureFactory creates the pipeline step of a configured procedure.
// The batcher calls it once per run, so the returned command may keep
// per-run state in its closure.
type ProcedureFactory func(params map[string]any) (invoke.Command, error)

// ProcedureSpec describes a registered procedure.
type ProcedureSpec struct {
	// DisplayName is the human readable name, e.g. "Scale".
	DisplayName string
	// NameOnly marks procedures that only affect item names. They also
	// run during name preview passes.
	NameOnly bool
	// Factory creates the pipeline step for one run.
	Factory ProcedureFactory
}

// ProcedureRegistry manages the registration and creation of procedures
type ProcedureRegistry struct {
	specs map[string]ProcedureSpec
	names []string
}

// NewProcedureRegistry creates a new procedure registry
func NewProcedureRegistry() *ProcedureRegistry {
	return &ProcedureRegistry{
		specs: make(map[string]ProcedureSpec),
	}
}

// Register adds a procedure spec to the registry
func (r *ProcedureRegistry) Register(name string, spec ProcedureSpec) error {
	if name == "" {
		return fmt.Errorf("procedure name cannot be empty")
	}
	if spec.Factory == nil {
		return fmt.Errorf("procedure factory cannot be nil")
	}
	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("procedure %s is already registered", name)
	}
	r.specs[name] = spec
	r.names = append(r.names, name)
	return nil
}

// Create instantiates the pipeline step of a procedure by name with the
// given parameters
func (r *ProcedureRegistry) Create(name string, params map[string]any) (invoke.Command, error) {
	spec, exists := r.specs[name]
	if !exists {
		return nil, fmt.Errorf("unknown procedure: %s", name)
	}

	command, err := spec.Factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create procedure %s: %w", name, err)
	}

	return command, nil
}

// Spec returns the spec registered under the given name
func (r *ProcedureRegistry) Spec(name string) (ProcedureSpec, bool) {
	spec, exists := r.specs[name]
	return spec, exists
}

// IsRegistered checks if a procedure with the given name is registered
func (r *ProcedureRegistry) IsRegistered(name string) bool {
	_, exists := r.specs[name]
	return exists
}

// RegisteredNames returns all registered procedure names in registration
// order
func (r *ProcedureRegistry) RegisteredNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// ConstraintFunc decides whether an item is processed in a run.
type ConstraintFunc func(batcher *Batcher, item *itemtree.Item) bool

// ConstraintFactory creates a constraint predicate from its configured
// parameters.
type ConstraintFactory func(params map[string]any) (ConstraintFunc, error)

// ConstraintSpec describes a registered constraint.
type ConstraintSpec struct {
	// DisplayName is the human readable name, e.g. "Visible".
	DisplayName string
	// Factory creates the predicate for one run.
	Factory ConstraintFactory
}

// ConstraintRegistry manages the registration and creation of constraints
type ConstraintRegistry struct {
	specs map[string]ConstraintSpec
	names []string
}

// NewConstraintRegistry creates a new constraint registry
func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{
		specs: make(map[string]ConstraintSpec),
	}
}

// Register adds a constraint spec to the registry
func (r *ConstraintRegistry) Register(name string, spec ConstraintSpec) error {
	if name == "" {
		return fmt.Errorf("constraint name cannot be empty")
	}
	if spec.Factory == nil {
		return fmt.Errorf("constraint factory cannot be nil")
	}
	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("constraint %s is already registered", name)
	}
	r.specs[name] = spec
	r.names = append(r.names, name)
	return nil
}

// Create instantiates the predicate of a constraint by name with the
// given parameters
func (r *ConstraintRegistry) Create(name string, params map[string]any) (ConstraintFunc, error) {
	spec, exists := r.specs[name]
	if !exists {
		return nil, fmt.Errorf("unknown constraint: %s", name)
	}

	constraint, err := spec.Factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create constraint %s: %w", name, err)
	}

	return constraint, nil
}

// Spec returns the spec registered under the given name
func (r *ConstraintRegistry) Spec(name string) (ConstraintSpec, bool) {
	spec, exists := r.specs[name]
	return spec, exists
}

// IsRegistered checks if a constraint with the given name is registered
func (r *ConstraintRegistry) IsRegistered(name string) bool {
	_, exists := r.specs[name]
	return exists
}

// RegisteredNames returns all registered constraint names in registration
// order
func (r *ConstraintRegistry) RegisteredNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Default registries the built-in procedures and constraints register
// themselves into.
var (
	DefaultProcedures  = NewProcedureRegistry()
	DefaultConstraints = NewConstraintRegistry()
)
