package builtin

import "github.com/mattjoyce/orchestra-gw/internal/agent"

// Capabilities returns the full builtin capability set. root anchors the
// repository analyzer's path resolution.
func Capabilities(root string) agent.Capabilities {
	return agent.Capabilities{
		RepositoryAnalyzer:    NewRepositoryAnalyzer(root),
		RequirementsExtractor: NewRequirementsExtractor(),
		ArchitectureDesigner:  NewArchitectureDesigner(),
		ImplementationPlanner: NewImplementationPlanner(),
		Validator:             NewValidator(),
	}
}
