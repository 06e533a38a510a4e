package sim

import (
	"math/rand"
)

// Agent is the minimal capability a model participant must provide. Concrete
// agents are ordinary structs owned by their model.
type Agent interface {
	ID() int
}

// AgentStep advances one agent by one step. It may mutate the agent, the
// model properties, and other agents reachable through the model.
type AgentStep func(a Agent, m *Model)

// ModelStep advances model-level state once per step, after all agents have
// stepped. May be nil.
type ModelStep func(m *Model)

// Model is one independently configured simulation instance: an agent set in
// activation order, model-level properties, and a private seeded RNG. Models
// are not safe for concurrent use; the ensemble driver never shares one
// across runs.
type Model struct {
	Props map[string]float64

	agents map[int]Agent
	order  []int
	nextID int
	steps  int

	seed uint32
	rng  *rand.Rand
}

// NewModel creates an empty model whose randomness is fully determined by
// seed.
func NewModel(seed uint32) *Model {
	return &Model{
		Props:  make(map[string]float64),
		agents: make(map[int]Agent),
		seed:   seed,
		rng:    rand.New(rand.NewSource(int64(seed))),
	}
}

// Seed returns the seed the model was created with.
func (m *Model) Seed() uint32 { return m.seed }

// RNG returns the model's private random source. All stochastic decisions in
// step functions must draw from it, never from a global source.
func (m *Model) RNG() *rand.Rand { return m.rng }

// Steps returns the number of completed steps.
func (m *Model) Steps() int { return m.steps }

// NextID reserves a fresh agent ID.
func (m *Model) NextID() int {
	m.nextID++
	return m.nextID
}

// AddAgent registers an agent. Activation order is insertion order.
func (m *Model) AddAgent(a Agent) {
	if _, exists := m.agents[a.ID()]; exists {
		return
	}
	m.agents[a.ID()] = a
	m.order = append(m.order, a.ID())
}

// RemoveAgent deletes an agent mid-run. Safe to call from a step function;
// the removed agent is skipped for the rest of the current step.
func (m *Model) RemoveAgent(id int) {
	if _, exists := m.agents[id]; !exists {
		return
	}
	delete(m.agents, id)
	for i, aid := range m.order {
		if aid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Agent returns the agent with the given ID, or nil.
func (m *Model) Agent(id int) Agent {
	return m.agents[id]
}

// Agents returns all agents in activation order.
func (m *Model) Agents() []Agent {
	out := make([]Agent, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.agents[id])
	}
	return out
}

// Len returns the number of agents.
func (m *Model) Len() int { return len(m.agents) }

// step runs one full step: every agent in activation order, then the model
// step. Agents added during the step are not activated until the next one.
func (m *Model) step(agentStep AgentStep, modelStep ModelStep) {
	if agentStep != nil {
		ids := make([]int, len(m.order))
		copy(ids, m.order)
		for _, id := range ids {
			a, alive := m.agents[id]
			if !alive {
				continue
			}
			agentStep(a, m)
		}
	}
	if modelStep != nil {
		modelStep(m)
	}
	m.steps++
}
