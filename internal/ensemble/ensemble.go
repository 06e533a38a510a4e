package ensemble

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ensim/internal/parallel"
	"github.com/san-kum/ensim/internal/sim"
	"github.com/san-kum/ensim/internal/table"
)

// Column is the name of the member-index column added to every result table.
const Column = "ensemble"

// DefaultSize is the ensemble size used by RunGenerator when neither Seeds
// nor Ensemble is set.
const DefaultSize = 5

// Domain errors for ensemble orchestration.
var (
	// ErrNoMembers indicates an empty member list.
	ErrNoMembers = errors.New("ensemble: no members")

	// ErrNilMember indicates a nil model in the member list.
	ErrNilMember = errors.New("ensemble: nil member")

	// ErrNilGenerator indicates RunGenerator was called without a generator.
	ErrNilGenerator = errors.New("ensemble: nil generator")
)

// InvokeFunc is the single-run invoker signature. The default is sim.Run;
// tests substitute their own.
type InvokeFunc func(m *sim.Model, agentStep sim.AgentStep, modelStep sim.ModelStep, n int, opts sim.RunOptions) (*table.Table, *table.Table, error)

// Options configures one ensemble run. Fields consumed here (Parallel,
// BatchSize, Workers, Ensemble, Seeds, Rand, OnMemberDone, Invoke) are never
// forwarded; everything in Run goes to the invoker verbatim.
type Options struct {
	// Parallel selects the batched worker-pool strategy instead of the
	// sequential one. Output content and order are identical either way.
	// Workers share the driver's address space, so member models are
	// mutated in place under both strategies; callers should still not
	// assume more than that the same instances are handed back.
	Parallel bool

	// BatchSize is the number of member runs grouped into one unit of work
	// under the parallel strategy. Values below 1 mean 1. Batch size trades
	// dispatch overhead against load balance; it never affects results.
	BatchSize int

	// Workers caps the worker pool for the parallel strategy. Values below
	// 1 mean one worker per CPU.
	Workers int

	// Ensemble is the number of members for RunGenerator when Seeds is
	// empty. Values below 1 mean DefaultSize. Ignored when Seeds is set.
	Ensemble int

	// Seeds is the explicit seed list for RunGenerator; its length
	// determines the ensemble size.
	Seeds []uint32

	// Rand is the source used to draw default seeds when Seeds is empty.
	// When nil, a source seeded from crypto entropy is created per call.
	Rand *rand.Rand

	// Run is forwarded verbatim to the single-run invoker.
	Run sim.RunOptions

	// OnMemberDone, when set, is called after each member's run completes
	// with the 1-based member index. Under the parallel strategy it is
	// called from worker goroutines and must be safe for concurrent use.
	OnMemberDone func(member int)

	// Invoke overrides the single-run invoker. Nil means sim.Run.
	Invoke InvokeFunc
}

func (o Options) invoker() InvokeFunc {
	if o.Invoke != nil {
		return o.Invoke
	}
	return sim.Run
}

// pair carries one member's two result tables between strategies.
type pair struct {
	agents *table.Table
	models *table.Table
}

// Run executes every model in members through n steps and returns the
// concatenated agent and model tables plus the member list itself. Each
// table row carries an "ensemble" column equal to the 1-based position of
// the member that produced it, in member order regardless of execution
// order. The first failing run aborts the whole ensemble with no partial
// tables.
func Run(members []*sim.Model, agentStep sim.AgentStep, modelStep sim.ModelStep, n int, opts Options) (*table.Table, *table.Table, []*sim.Model, error) {
	if len(members) == 0 {
		return nil, nil, nil, ErrNoMembers
	}
	for i, m := range members {
		if m == nil {
			return nil, nil, nil, fmt.Errorf("%w: index %d", ErrNilMember, i+1)
		}
	}

	logrus.Infof("ensemble: %d members, steps=%d parallel=%v batch=%d",
		len(members), n, opts.Parallel, opts.BatchSize)

	var (
		pairs []pair
		err   error
	)
	if opts.Parallel {
		pairs, err = runParallel(members, agentStep, modelStep, n, opts)
	} else {
		pairs, err = runSequential(members, agentStep, modelStep, n, opts)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	agentAcc, modelAcc, err := accumulate(pairs)
	if err != nil {
		return nil, nil, nil, err
	}
	return agentAcc, modelAcc, members, nil
}

// runSequential executes members one at a time in index order. A single
// model is active at any moment.
func runSequential(members []*sim.Model, agentStep sim.AgentStep, modelStep sim.ModelStep, n int, opts Options) ([]pair, error) {
	invoke := opts.invoker()
	pairs := make([]pair, len(members))
	for i, m := range members {
		agents, models, err := invoke(m, agentStep, modelStep, n, opts.Run)
		if err != nil {
			return nil, fmt.Errorf("ensemble member %d: %w", i+1, err)
		}
		pairs[i] = pair{agents: agents, models: models}
		if opts.OnMemberDone != nil {
			opts.OnMemberDone(i + 1)
		}
	}
	return pairs, nil
}

// runParallel executes members over the batched parallel map. The map
// reassembles results in submission order, so pairs[i] always belongs to
// member i+1 no matter which worker finished first.
func runParallel(members []*sim.Model, agentStep sim.AgentStep, modelStep sim.ModelStep, n int, opts Options) ([]pair, error) {
	invoke := opts.invoker()
	pairs, err := parallel.Map(len(members), opts.BatchSize, opts.Workers, func(i int) (pair, error) {
		agents, models, err := invoke(members[i], agentStep, modelStep, n, opts.Run)
		if err != nil {
			return pair{}, fmt.Errorf("ensemble member %d: %w", i+1, err)
		}
		if opts.OnMemberDone != nil {
			opts.OnMemberDone(i + 1)
		}
		return pair{agents: agents, models: models}, nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// accumulate tags each pair with its member index and concatenates in index
// order. The first member's tables initialize the accumulators.
func accumulate(pairs []pair) (*table.Table, *table.Table, error) {
	var agentAcc, modelAcc *table.Table
	for i, p := range pairs {
		Tag(p.agents, i+1)
		Tag(p.models, i+1)
		if i == 0 {
			agentAcc = p.agents
			modelAcc = p.models
			continue
		}
		if err := agentAcc.Append(p.agents); err != nil {
			return nil, nil, fmt.Errorf("ensemble member %d agent table: %w", i+1, err)
		}
		if err := modelAcc.Append(p.models); err != nil {
			return nil, nil, fmt.Errorf("ensemble member %d model table: %w", i+1, err)
		}
	}
	return agentAcc, modelAcc, nil
}

// Tag adds (or overwrites) the ensemble member column on t. It must be
// applied before rows from other members are appended; rows added later are
// not tagged retroactively.
func Tag(t *table.Table, member int) {
	t.SetConst(Column, float64(member))
}

// RunGenerator builds the member list by calling gen once per seed in seed
// order, then delegates to Run. Explicit Seeds win over Ensemble; otherwise
// Ensemble seeds (DefaultSize when unset) are drawn from opts.Rand.
func RunGenerator(gen func(seed uint32) *sim.Model, agentStep sim.AgentStep, modelStep sim.ModelStep, n int, opts Options) (*table.Table, *table.Table, []*sim.Model, error) {
	if gen == nil {
		return nil, nil, nil, ErrNilGenerator
	}

	seeds := opts.Seeds
	if len(seeds) == 0 {
		size := opts.Ensemble
		if size < 1 {
			size = DefaultSize
		}
		seeds = DrawSeeds(opts.Rand, size)
	}

	members := make([]*sim.Model, len(seeds))
	for i, s := range seeds {
		members[i] = gen(s)
	}
	return Run(members, agentStep, modelStep, n, opts)
}

// DrawSeeds returns n seeds from r, or from a fresh crypto-seeded source
// when r is nil. There is no hidden package-level generator.
func DrawSeeds(r *rand.Rand, n int) []uint32 {
	if r == nil {
		r = rand.New(rand.NewSource(entropySeed()))
	}
	seeds := make([]uint32, n)
	for i := range seeds {
		seeds[i] = r.Uint32()
	}
	return seeds
}

func entropySeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unreachable; fall back to a
		// fixed seed rather than a global source.
		return 1
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
