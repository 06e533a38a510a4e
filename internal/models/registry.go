package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/ensim/internal/sim"
)

// Definition bundles everything the ensemble driver needs to run one model
// family: a seed generator, its step functions, and default collectors.
type Definition struct {
	Generator func(seed uint32) *sim.Model
	AgentStep sim.AgentStep
	ModelStep sim.ModelStep
	Collect   sim.RunOptions
}

// Registry maps model names to definition factories. Factories take the flat
// parameter map from the config layer; unset parameters fall back to the
// model's defaults.
type Registry struct {
	entries      map[string]func(params map[string]float64) Definition
	descriptions map[string]string
}

// NewRegistry returns a registry with all built-in models.
func NewRegistry() *Registry {
	r := &Registry{
		entries:      make(map[string]func(map[string]float64) Definition),
		descriptions: make(map[string]string),
	}

	r.register("walkers", "random walkers on a bounded line", func(params map[string]float64) Definition {
		p := DefaultWalkerParams()
		if v, ok := params["n"]; ok {
			p.N = int(v)
		}
		if v, ok := params["max_step"]; ok {
			p.MaxStep = v
		}
		if v, ok := params["bound"]; ok {
			p.Bound = v
		}
		return Definition{
			Generator: WalkerGenerator(p),
			AgentStep: WalkerStep,
			Collect:   WalkerCollect(),
		}
	})

	r.register("sir", "stochastic SIR epidemic", func(params map[string]float64) Definition {
		p := DefaultSIRParams()
		if v, ok := params["n"]; ok {
			p.N = int(v)
		}
		if v, ok := params["i0"]; ok {
			p.I0 = int(v)
		}
		if v, ok := params["beta"]; ok {
			p.Beta = v
		}
		if v, ok := params["gamma"]; ok {
			p.Gamma = v
		}
		return Definition{
			Generator: SIRGenerator(p),
			AgentStep: SIRStep,
			Collect:   SIRCollect(),
		}
	})

	return r
}

func (r *Registry) register(name, desc string, build func(map[string]float64) Definition) {
	r.entries[name] = build
	r.descriptions[name] = desc
}

// Get builds the definition for a named model.
func (r *Registry) Get(name string, params map[string]float64) (Definition, error) {
	build, ok := r.entries[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown model: %s", name)
	}
	return build(params), nil
}

// List returns all model names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the one-line description for a model name.
func (r *Registry) Describe(name string) string {
	return r.descriptions[name]
}
