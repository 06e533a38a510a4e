package models

import (
	"math"

	"github.com/san-kum/ensim/internal/sim"
)

// Walker is a random walker on a bounded 1-D line.
type Walker struct {
	id  int
	Pos float64
}

// ID implements sim.Agent.
func (w *Walker) ID() int { return w.id }

// WalkerParams configures the walkers model.
type WalkerParams struct {
	N       int     // number of walkers
	MaxStep float64 // maximum displacement per step
	Bound   float64 // walkers are clamped to [-Bound, Bound]
}

// DefaultWalkerParams returns the parameters used when none are given.
func DefaultWalkerParams() WalkerParams {
	return WalkerParams{N: 50, MaxStep: 1.0, Bound: 25.0}
}

// WalkerGenerator returns a seed generator producing independent walker
// models, all starting at the origin.
func WalkerGenerator(p WalkerParams) func(seed uint32) *sim.Model {
	return func(seed uint32) *sim.Model {
		m := sim.NewModel(seed)
		m.Props["max_step"] = p.MaxStep
		m.Props["bound"] = p.Bound
		for i := 0; i < p.N; i++ {
			m.AddAgent(&Walker{id: m.NextID()})
		}
		return m
	}
}

// WalkerStep moves one walker by a uniform displacement, clamped to the
// model's bound.
func WalkerStep(a sim.Agent, m *sim.Model) {
	w := a.(*Walker)
	step := m.Props["max_step"]
	bound := m.Props["bound"]
	w.Pos += (m.RNG().Float64()*2 - 1) * step
	if w.Pos > bound {
		w.Pos = bound
	}
	if w.Pos < -bound {
		w.Pos = -bound
	}
}

// WalkerCollect is the default observation set: per-walker position, plus
// mean position and mean absolute displacement across the population.
func WalkerCollect() sim.RunOptions {
	return sim.RunOptions{
		AgentData: []sim.AgentCollector{
			{Name: "pos", Fn: func(a sim.Agent, m *sim.Model) float64 {
				return a.(*Walker).Pos
			}},
		},
		ModelData: []sim.ModelCollector{
			{Name: "mean_pos", Fn: walkerMean(func(w *Walker) float64 { return w.Pos })},
			{Name: "spread", Fn: walkerMean(func(w *Walker) float64 { return math.Abs(w.Pos) })},
		},
	}
}

func walkerMean(f func(w *Walker) float64) func(m *sim.Model) float64 {
	return func(m *sim.Model) float64 {
		if m.Len() == 0 {
			return 0
		}
		sum := 0.0
		for _, a := range m.Agents() {
			sum += f(a.(*Walker))
		}
		return sum / float64(m.Len())
	}
}
