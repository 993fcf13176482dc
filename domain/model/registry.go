package model

import (
	"fmt"

	"bayesreg/domain/core"
)

// Role is what a parameter does in the linear predictor or likelihood
type Role string

const (
	RoleLocation  Role = "location"  // constant mean of the naive model
	RoleIntercept Role = "intercept" // constant term of a regression
	RoleSlope     Role = "slope"     // coefficient of one predictor column
	RoleScale     Role = "scale"     // likelihood standard deviation
	RoleFree      Role = "free"      // only meaningful to a custom linear predictor
)

// ParameterDef is one entry of the parameter registry:
// name -> role -> prior kind -> prior parameters.
type ParameterDef struct {
	Name      core.ParameterName `json:"name"`
	Role      Role               `json:"role"`
	Prior     Prior              `json:"prior"`
	Predictor core.VariableKey   `json:"predictor,omitempty"`
}

// SlopeName is the registry name for the slope of a predictor column
func SlopeName(predictor core.VariableKey) core.ParameterName {
	return core.ParameterName(fmt.Sprintf("slope[%s]", predictor))
}

// Registry is an ordered, read-only set of parameter definitions. The order
// is the coordinate order of every parameter vector the model sees.
type Registry struct {
	defs  []ParameterDef
	index map[core.ParameterName]int
}

// NewRegistry validates definitions and fixes their order
func NewRegistry(defs []ParameterDef) (*Registry, error) {
	r := &Registry{
		defs:  make([]ParameterDef, len(defs)),
		index: make(map[core.ParameterName]int, len(defs)),
	}
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("parameter %d has no name", i)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", d.Name)
		}
		if err := d.Prior.Validate(d.Name.String()); err != nil {
			return nil, err
		}
		r.defs[i] = d
		r.index[d.Name] = i
	}
	return r, nil
}

// Len returns the number of free parameters
func (r *Registry) Len() int {
	return len(r.defs)
}

// Defs returns a copy of the definitions in coordinate order
func (r *Registry) Defs() []ParameterDef {
	return append([]ParameterDef(nil), r.defs...)
}

// Names returns parameter names in coordinate order
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name.String()
	}
	return names
}

// Index returns the coordinate of a parameter
func (r *Registry) Index(name core.ParameterName) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Get returns a parameter definition by name
func (r *Registry) Get(name core.ParameterName) (ParameterDef, error) {
	i, ok := r.index[name]
	if !ok {
		return ParameterDef{}, fmt.Errorf("%w: %s", core.ErrParameterNotFound, name)
	}
	return r.defs[i], nil
}

// ByRole returns the coordinates of all parameters with a role, in order
func (r *Registry) ByRole(role Role) []int {
	var idx []int
	for i, d := range r.defs {
		if d.Role == role {
			idx = append(idx, i)
		}
	}
	return idx
}
