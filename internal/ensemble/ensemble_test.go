package ensemble

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ensim/internal/sim"
	"github.com/san-kum/ensim/internal/table"
)

// probe is a minimal agent whose observed value depends on its model's seed,
// its ID, and the step count, so per-member results are distinguishable.
type probe struct {
	id    int
	ticks int
}

func (p *probe) ID() int { return p.id }

func probeGen(seed uint32) *sim.Model {
	m := sim.NewModel(seed)
	m.Props["offset"] = float64(seed) * 1000
	m.AddAgent(&probe{id: m.NextID()})
	m.AddAgent(&probe{id: m.NextID()})
	return m
}

func probeStep(a sim.Agent, m *sim.Model) { a.(*probe).ticks++ }

func probeOptions() sim.RunOptions {
	return sim.RunOptions{
		AgentData: []sim.AgentCollector{
			{Name: "value", Fn: func(a sim.Agent, m *sim.Model) float64 {
				return m.Props["offset"] + float64(a.ID())*10 + float64(a.(*probe).ticks)
			}},
		},
		ModelData: []sim.ModelCollector{
			{Name: "total", Fn: func(m *sim.Model) float64 {
				total := 0.0
				for _, a := range m.Agents() {
					total += float64(a.(*probe).ticks)
				}
				return total
			}},
		},
	}
}

func probeMembers(n int) []*sim.Model {
	members := make([]*sim.Model, n)
	for i := range members {
		members[i] = probeGen(uint32(i + 1))
	}
	return members
}

// stubInvoker returns fixed-size tables per member without running anything:
// rowsAgent rows in the agent table, rowsModel in the model table.
func stubInvoker(rowsAgent, rowsModel int) InvokeFunc {
	return func(m *sim.Model, agentStep sim.AgentStep, modelStep sim.ModelStep, n int, opts sim.RunOptions) (*table.Table, *table.Table, error) {
		agents := table.New("step", "id", "value")
		for r := 0; r < rowsAgent; r++ {
			if err := agents.AppendRow(float64(r), float64(r+1), float64(m.Seed())); err != nil {
				return nil, nil, err
			}
		}
		models := table.New("step", "total")
		for r := 0; r < rowsModel; r++ {
			if err := models.AppendRow(float64(r), float64(m.Seed())); err != nil {
				return nil, nil, err
			}
		}
		return agents, models, nil
	}
}

func TestSequentialAndParallelProduceIdenticalTables(t *testing.T) {
	seeds := []uint32{11, 22, 33, 44, 55, 66, 77}

	run := func(parallel bool, batch int) (*table.Table, *table.Table) {
		agents, models, _, err := RunGenerator(probeGen, probeStep, nil, 6, Options{
			Seeds:     seeds,
			Parallel:  parallel,
			BatchSize: batch,
			Run:       probeOptions(),
		})
		require.NoError(t, err)
		return agents, models
	}

	seqAgents, seqModels := run(false, 0)
	for _, batch := range []int{1, 2, 3, 7, 50} {
		parAgents, parModels := run(true, batch)
		assert.True(t, seqAgents.Equal(parAgents), "agent tables differ at batch=%d", batch)
		assert.True(t, seqModels.Equal(parModels), "model tables differ at batch=%d", batch)
	}
}

func TestEnsembleColumnPattern(t *testing.T) {
	// three members, each run yields 5 agent rows and 2 model rows
	members := probeMembers(3)

	for _, parallel := range []bool{false, true} {
		agents, models, _, err := Run(members, nil, nil, 1, Options{
			Parallel: parallel,
			Invoke:   stubInvoker(5, 2),
		})
		require.NoError(t, err)

		assert.Equal(t, 15, agents.Rows())
		assert.Equal(t, 6, models.Rows())
		assert.Equal(t,
			[]float64{1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 3, 3, 3, 3, 3},
			agents.MustCol(Column), "parallel=%v", parallel)
		assert.Equal(t,
			[]float64{1, 1, 2, 2, 3, 3},
			models.MustCol(Column), "parallel=%v", parallel)
	}
}

func TestMemberIndexFollowsListPosition(t *testing.T) {
	members := probeMembers(4)

	agents, _, _, err := Run(members, nil, nil, 1, Options{
		Parallel: true,
		Workers:  4,
		Invoke:   stubInvoker(1, 1),
	})
	require.NoError(t, err)

	// the stub writes each member's seed into "value"; the tag must line up
	// with list position regardless of completion order
	values := agents.MustCol("value")
	tags := agents.MustCol(Column)
	for i := range values {
		assert.Equal(t, float64(members[int(tags[i])-1].Seed()), values[i])
	}
}

func TestRowCountIsSumOfMemberRows(t *testing.T) {
	members := probeMembers(4)

	// member i produces i+1 agent rows
	invoke := func(m *sim.Model, _ sim.AgentStep, _ sim.ModelStep, _ int, _ sim.RunOptions) (*table.Table, *table.Table, error) {
		rows := int(m.Seed())
		agents := table.New("v")
		for r := 0; r < rows; r++ {
			_ = agents.AppendRow(float64(r))
		}
		models := table.New("v")
		_ = models.AppendRow(0)
		return agents, models, nil
	}

	agents, models, _, err := Run(members, nil, nil, 1, Options{Invoke: invoke})
	require.NoError(t, err)
	assert.Equal(t, 1+2+3+4, agents.Rows())
	assert.Equal(t, 4, models.Rows())

	// constant within each member's block
	tags := agents.MustCol(Column)
	assert.Equal(t, []float64{1, 2, 2, 3, 3, 3, 4, 4, 4, 4}, tags)
}

func TestSplitEnsembleConcatenationMatchesWhole(t *testing.T) {
	whole, _, _, err := RunGenerator(probeGen, probeStep, nil, 3, Options{
		Seeds: []uint32{1, 2, 3, 4},
		Run:   probeOptions(),
	})
	require.NoError(t, err)

	first, _, _, err := RunGenerator(probeGen, probeStep, nil, 3, Options{
		Seeds: []uint32{1, 2},
		Run:   probeOptions(),
	})
	require.NoError(t, err)
	second, _, _, err := RunGenerator(probeGen, probeStep, nil, 3, Options{
		Seeds: []uint32{3, 4},
		Run:   probeOptions(),
	})
	require.NoError(t, err)

	require.NoError(t, first.Append(second))

	// observation columns concatenate in the same order; only the member
	// tags restart per half
	assert.Equal(t, whole.MustCol("value"), first.MustCol("value"))
	assert.Equal(t, whole.MustCol("step"), first.MustCol("step"))
	assert.Equal(t, whole.Rows(), first.Rows())
}

func TestGeneratorSeedOrder(t *testing.T) {
	seeds := []uint32{101, 7, 93}
	var calls []uint32

	gen := func(seed uint32) *sim.Model {
		calls = append(calls, seed)
		return probeGen(seed)
	}

	_, _, instances, err := RunGenerator(gen, probeStep, nil, 1, Options{
		Seeds: seeds,
		Run:   probeOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, seeds, calls)
	require.Len(t, instances, 3)
	for i, m := range instances {
		assert.Equal(t, seeds[i], m.Seed())
	}
}

func TestGeneratorDefaultSeeds(t *testing.T) {
	count := 0
	gen := func(seed uint32) *sim.Model {
		count++
		return probeGen(seed)
	}

	// explicit size, injected source
	_, _, instances, err := RunGenerator(gen, probeStep, nil, 1, Options{
		Ensemble: 3,
		Rand:     rand.New(rand.NewSource(1)),
		Run:      probeOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, instances, 3)

	// unset size falls back to DefaultSize
	count = 0
	_, _, instances, err = RunGenerator(gen, probeStep, nil, 1, Options{
		Rand: rand.New(rand.NewSource(1)),
		Run:  probeOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, count)
	assert.Len(t, instances, DefaultSize)

	// explicit seeds win over Ensemble
	count = 0
	_, _, instances, err = RunGenerator(gen, probeStep, nil, 1, Options{
		Ensemble: 9,
		Seeds:    []uint32{5, 6},
		Run:      probeOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, instances, 2)
}

func TestDrawSeedsDeterministicPerSource(t *testing.T) {
	a := DrawSeeds(rand.New(rand.NewSource(9)), 4)
	b := DrawSeeds(rand.New(rand.NewSource(9)), 4)
	assert.Equal(t, a, b)
	assert.Len(t, a, 4)

	// nil source still yields the requested count
	c := DrawSeeds(nil, 6)
	assert.Len(t, c, 6)
}

func TestSingleMemberMatchesBareRun(t *testing.T) {
	bareAgents, bareModels, err := sim.Run(probeGen(5), probeStep, nil, 4, probeOptions())
	require.NoError(t, err)
	Tag(bareAgents, 1)
	Tag(bareModels, 1)

	agents, models, instances, err := Run([]*sim.Model{probeGen(5)}, probeStep, nil, 4, Options{
		Run: probeOptions(),
	})
	require.NoError(t, err)

	assert.True(t, bareAgents.Equal(agents))
	assert.True(t, bareModels.Equal(models))
	assert.Len(t, instances, 1)
}

func TestReturnsSameInstances(t *testing.T) {
	members := probeMembers(3)

	_, _, instances, err := Run(members, probeStep, nil, 2, Options{Run: probeOptions()})
	require.NoError(t, err)

	require.Len(t, instances, 3)
	for i := range members {
		assert.Same(t, members[i], instances[i])
		// runs mutated the originals in place
		assert.Equal(t, 2, members[i].Steps())
	}
}

func TestEmptyAndInvalidMembers(t *testing.T) {
	_, _, _, err := Run(nil, probeStep, nil, 1, Options{})
	require.ErrorIs(t, err, ErrNoMembers)

	_, _, _, err = Run([]*sim.Model{probeGen(1), nil}, probeStep, nil, 1, Options{})
	require.ErrorIs(t, err, ErrNilMember)

	_, _, _, err = RunGenerator(nil, probeStep, nil, 1, Options{})
	require.ErrorIs(t, err, ErrNilGenerator)
}

func TestMemberFailureAbortsWholeEnsemble(t *testing.T) {
	boom := errors.New("boom")
	invoke := func(m *sim.Model, _ sim.AgentStep, _ sim.ModelStep, _ int, _ sim.RunOptions) (*table.Table, *table.Table, error) {
		if m.Seed() == 2 {
			return nil, nil, boom
		}
		return stubInvoker(1, 1)(m, nil, nil, 0, sim.RunOptions{})
	}

	for _, parallel := range []bool{false, true} {
		agents, models, instances, err := Run(probeMembers(3), nil, nil, 1, Options{
			Parallel: parallel,
			Invoke:   invoke,
		})
		require.ErrorIs(t, err, boom, "parallel=%v", parallel)
		assert.ErrorContains(t, err, "member 2")
		assert.Nil(t, agents)
		assert.Nil(t, models)
		assert.Nil(t, instances)
	}
}

func TestOnMemberDoneFiresOncePerMember(t *testing.T) {
	seen := make(map[int]int)
	_, _, _, err := Run(probeMembers(4), nil, nil, 1, Options{
		Invoke:       stubInvoker(1, 1),
		OnMemberDone: func(member int) { seen[member]++ },
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, seen)
}

func TestTagOverwrites(t *testing.T) {
	tbl := table.New("v")
	require.NoError(t, tbl.AppendRow(1))
	Tag(tbl, 3)
	Tag(tbl, 8)
	assert.Equal(t, []float64{8}, tbl.MustCol(Column))
}
