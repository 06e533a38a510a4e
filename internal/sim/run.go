package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ensim/internal/table"
)

// Domain errors for single runs.
var (
	// ErrNilModel indicates a run was requested without a model.
	ErrNilModel = errors.New("sim: nil model")

	// ErrNegativeSteps indicates a negative step count.
	ErrNegativeSteps = errors.New("sim: negative step count")
)

// AgentCollector observes one value per agent per collection step.
type AgentCollector struct {
	Name string
	Fn   func(a Agent, m *Model) float64
}

// ModelCollector observes one model-level value per collection step.
type ModelCollector struct {
	Name string
	Fn   func(m *Model) float64
}

// RunOptions configures a single run. The zero value collects every step,
// including the initial state, with no observation columns beyond the
// bookkeeping ones.
type RunOptions struct {
	// AgentData defines the agent table columns after "step" and "id".
	AgentData []AgentCollector

	// ModelData defines the model table columns after "step".
	ModelData []ModelCollector

	// CollectEvery collects observations every k-th step. Values below 1
	// mean every step.
	CollectEvery int

	// SkipInitial suppresses the step-0 rows collected before stepping.
	SkipInitial bool
}

// AgentSchema returns the agent table column names for these options.
func (o RunOptions) AgentSchema() []string {
	names := []string{"step", "id"}
	for _, c := range o.AgentData {
		names = append(names, c.Name)
	}
	return names
}

// ModelSchema returns the model table column names for these options.
func (o RunOptions) ModelSchema() []string {
	names := []string{"step"}
	for _, c := range o.ModelData {
		names = append(names, c.Name)
	}
	return names
}

// Run advances m through n steps and returns the collected agent and model
// tables. The model is mutated in place; the same *Model remains valid (and
// inspectable) after the run. A collector panic is not recovered: a failing
// run aborts with no partial tables, matching the ensemble contract.
func Run(m *Model, agentStep AgentStep, modelStep ModelStep, n int, opts RunOptions) (*table.Table, *table.Table, error) {
	if m == nil {
		return nil, nil, ErrNilModel
	}
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrNegativeSteps, n)
	}

	every := opts.CollectEvery
	if every < 1 {
		every = 1
	}

	agentTbl := table.New(opts.AgentSchema()...)
	modelTbl := table.New(opts.ModelSchema()...)

	collect := func(step int) error {
		for _, a := range m.Agents() {
			row := make([]float64, 0, 2+len(opts.AgentData))
			row = append(row, float64(step), float64(a.ID()))
			for _, c := range opts.AgentData {
				row = append(row, c.Fn(a, m))
			}
			if err := agentTbl.AppendRow(row...); err != nil {
				return err
			}
		}
		row := make([]float64, 0, 1+len(opts.ModelData))
		row = append(row, float64(step))
		for _, c := range opts.ModelData {
			row = append(row, c.Fn(m))
		}
		return modelTbl.AppendRow(row...)
	}

	if !opts.SkipInitial {
		if err := collect(m.steps); err != nil {
			return nil, nil, err
		}
	}

	for s := 1; s <= n; s++ {
		m.step(agentStep, modelStep)
		if s%every == 0 {
			if err := collect(m.steps); err != nil {
				return nil, nil, err
			}
		}
	}

	logrus.Debugf("run complete: seed=%d steps=%d agents=%d agent_rows=%d model_rows=%d",
		m.seed, n, m.Len(), agentTbl.Rows(), modelTbl.Rows())

	return agentTbl, modelTbl, nil
}
