package agent

import "fmt"

// Capabilities names one provider per agent type. A nil field means the
// agent is not available in this deployment.
type Capabilities struct {
	RepositoryAnalyzer    Capability
	RequirementsExtractor Capability
	ArchitectureDesigner  Capability
	ImplementationPlanner Capability
	Validator             Capability
}

// Registry maps agent types to capabilities. It is populated once at
// startup and read-only afterward, so concurrent Resolve calls need no
// locking.
type Registry struct {
	caps Capabilities
}

// NewRegistry builds a registry from injected capabilities.
func NewRegistry(caps Capabilities) *Registry {
	return &Registry{caps: caps}
}

// Resolve returns the capability registered for t. The switch is
// exhaustive over the closed type set; an invalid t and an unregistered
// valid t both yield ErrNotFound.
func (r *Registry) Resolve(t Type) (Capability, error) {
	var c Capability
	switch t {
	case TypeRepositoryAnalyzer:
		c = r.caps.RepositoryAnalyzer
	case TypeRequirementsExtractor:
		c = r.caps.RequirementsExtractor
	case TypeArchitectureDesigner:
		c = r.caps.ArchitectureDesigner
	case TypeImplementationPlanner:
		c = r.caps.ImplementationPlanner
	case TypeValidator:
		c = r.caps.Validator
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, t)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, t)
	}
	return c, nil
}

// Registered returns the agent types that currently resolve, in
// declaration order.
func (r *Registry) Registered() []Type {
	var out []Type
	for _, t := range All() {
		if _, err := r.Resolve(t); err == nil {
			out = append(out, t)
		}
	}
	return out
}
