package models

import (
	"github.com/san-kum/ensim/internal/sim"
)

// Epidemic states for a Person.
const (
	Susceptible = iota
	Infected
	Recovered
)

// Person is one individual in the SIR epidemic model.
type Person struct {
	id     int
	Status int
}

// ID implements sim.Agent.
func (p *Person) ID() int { return p.id }

// SIRParams configures the epidemic model.
type SIRParams struct {
	N     int     // population size
	I0    int     // initially infected
	Beta  float64 // per-step probability an infected transmits to a random contact
	Gamma float64 // per-step recovery probability
}

// DefaultSIRParams returns the parameters used when none are given.
func DefaultSIRParams() SIRParams {
	return SIRParams{N: 200, I0: 5, Beta: 0.3, Gamma: 0.1}
}

// SIRGenerator returns a seed generator producing independent epidemic
// models. The first I0 persons start infected.
func SIRGenerator(p SIRParams) func(seed uint32) *sim.Model {
	return func(seed uint32) *sim.Model {
		m := sim.NewModel(seed)
		m.Props["beta"] = p.Beta
		m.Props["gamma"] = p.Gamma
		for i := 0; i < p.N; i++ {
			status := Susceptible
			if i < p.I0 {
				status = Infected
			}
			m.AddAgent(&Person{id: m.NextID(), Status: status})
		}
		return m
	}
}

// SIRStep advances one person: an infected person contacts one random other
// (possibly transmitting) and then may recover.
func SIRStep(a sim.Agent, m *sim.Model) {
	p := a.(*Person)
	if p.Status != Infected {
		return
	}

	agents := m.Agents()
	if len(agents) > 1 {
		contact := agents[m.RNG().Intn(len(agents))].(*Person)
		if contact.Status == Susceptible && m.RNG().Float64() < m.Props["beta"] {
			contact.Status = Infected
		}
	}
	if m.RNG().Float64() < m.Props["gamma"] {
		p.Status = Recovered
	}
}

// SIRCollect is the default observation set: per-person status plus the
// three compartment counts.
func SIRCollect() sim.RunOptions {
	return sim.RunOptions{
		AgentData: []sim.AgentCollector{
			{Name: "status", Fn: func(a sim.Agent, m *sim.Model) float64 {
				return float64(a.(*Person).Status)
			}},
		},
		ModelData: []sim.ModelCollector{
			{Name: "susceptible", Fn: sirCount(Susceptible)},
			{Name: "infected", Fn: sirCount(Infected)},
			{Name: "recovered", Fn: sirCount(Recovered)},
		},
	}
}

func sirCount(status int) func(m *sim.Model) float64 {
	return func(m *sim.Model) float64 {
		n := 0
		for _, a := range m.Agents() {
			if a.(*Person).Status == status {
				n++
			}
		}
		return float64(n)
	}
}
