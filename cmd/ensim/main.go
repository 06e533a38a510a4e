package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ensim/internal/config"
	"github.com/san-kum/ensim/internal/ensemble"
	"github.com/san-kum/ensim/internal/export"
	"github.com/san-kum/ensim/internal/models"
	"github.com/san-kum/ensim/internal/stats"
	"github.com/san-kum/ensim/internal/table"
	"github.com/san-kum/ensim/internal/tui"
)

var (
	configFile   string
	steps        int
	ensembleSize int
	seedList     string
	masterSeed   int64
	parallel     bool
	batchSize    int
	workers      int
	collectEvery int
	skipInitial  bool
	output       string
	plotColumn   string
	live         bool
	logLevel     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ensim",
		Short: "agent-based ensemble simulation lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %s", logLevel)
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "logrus level")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run an ensemble",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "steps per member")
	runCmd.Flags().IntVar(&ensembleSize, "ensemble", config.DefaultEnsemble, "ensemble size")
	runCmd.Flags().StringVar(&seedList, "seeds", "", "comma-separated member seeds (overrides --ensemble)")
	runCmd.Flags().Int64Var(&masterSeed, "master-seed", time.Now().UnixNano(), "seed for drawing member seeds")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "distributed execution over a worker pool")
	runCmd.Flags().IntVar(&batchSize, "batch", config.DefaultBatchSize, "members per dispatch batch (parallel)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker count (parallel, 0 = per CPU)")
	runCmd.Flags().IntVar(&collectEvery, "collect-every", 1, "collect observations every k steps")
	runCmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "skip the step-0 observation")
	runCmd.Flags().StringVar(&output, "csv", "", "write <prefix>_agents.csv and <prefix>_models.csv")
	runCmd.Flags().StringVar(&plotColumn, "plot", "", "model-table column to plot (mean across members)")
	runCmd.Flags().BoolVar(&live, "live", false, "live progress view")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available models",
		RunE:  listModels,
	}

	seedsCmd := &cobra.Command{
		Use:   "seeds",
		Short: "preview the member seeds a run would draw",
		RunE:  previewSeeds,
	}
	seedsCmd.Flags().IntVar(&ensembleSize, "ensemble", config.DefaultEnsemble, "ensemble size")
	seedsCmd.Flags().Int64Var(&masterSeed, "master-seed", time.Now().UnixNano(), "seed for drawing member seeds")

	rootCmd.AddCommand(runCmd, modelsCmd, seedsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if len(args) == 1 {
		cfg.Model = args[0]
	}

	// CLI flags override config file values.
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("ensemble") {
		cfg.Ensemble = ensembleSize
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = parallel
	}
	if cmd.Flags().Changed("batch") {
		cfg.BatchSize = batchSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("collect-every") {
		cfg.CollectEvery = collectEvery
	}
	if cmd.Flags().Changed("skip-initial") {
		cfg.SkipInitial = skipInitial
	}
	if cmd.Flags().Changed("csv") {
		cfg.Output = output
	}
	if cmd.Flags().Changed("seeds") {
		seeds, err := parseSeeds(seedList)
		if err != nil {
			return err
		}
		cfg.Seeds = seeds
	}

	registry := models.NewRegistry()
	def, err := registry.Get(cfg.Model, cfg.Params)
	if err != nil {
		return err
	}

	runOpts := def.Collect
	runOpts.CollectEvery = cfg.CollectEvery
	runOpts.SkipInitial = cfg.SkipInitial

	opts := ensemble.Options{
		Parallel:  cfg.Parallel,
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
		Ensemble:  cfg.Ensemble,
		Seeds:     cfg.Seeds,
		Rand:      rand.New(rand.NewSource(masterSeed)),
		Run:       runOpts,
	}

	size := cfg.Ensemble
	if len(cfg.Seeds) > 0 {
		size = len(cfg.Seeds)
	}

	fmt.Printf("running %s ensemble (%d members, %d steps)...\n", cfg.Model, size, cfg.Steps)
	start := time.Now()

	var agents, modelTbl *table.Table
	if live {
		agents, modelTbl, err = runWithProgress(cfg.Model, size, def, cfg.Steps, opts)
	} else {
		agents, modelTbl, _, err = ensemble.RunGenerator(def.Generator, def.AgentStep, def.ModelStep, cfg.Steps, opts)
	}
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("agent rows: %d\n", agents.Rows())
	fmt.Printf("model rows: %d\n", modelTbl.Rows())

	if err := printSummary(modelTbl); err != nil {
		return err
	}

	if plotColumn != "" {
		if err := plotSeries(modelTbl, plotColumn); err != nil {
			return err
		}
	}

	if cfg.Output != "" {
		if err := export.SaveCSV(cfg.Output+"_agents.csv", agents); err != nil {
			return err
		}
		if err := export.SaveCSV(cfg.Output+"_models.csv", modelTbl); err != nil {
			return err
		}
		fmt.Printf("wrote %s_agents.csv, %s_models.csv\n", cfg.Output, cfg.Output)
	}

	return nil
}

// runWithProgress runs the ensemble in the background while the TUI consumes
// completion events. The channel is buffered for every member so a detached
// view never blocks the runs.
func runWithProgress(name string, size int, def models.Definition, n int, opts ensemble.Options) (*table.Table, *table.Table, error) {
	events := make(chan tui.MemberDone, size)
	opts.OnMemberDone = func(member int) {
		events <- tui.MemberDone{Member: member}
	}

	type outcome struct {
		agents *table.Table
		models *table.Table
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		agents, modelTbl, _, err := ensemble.RunGenerator(def.Generator, def.AgentStep, def.ModelStep, n, opts)
		close(events)
		done <- outcome{agents: agents, models: modelTbl, err: err}
	}()

	if err := tui.Run(name, size, events); err != nil {
		return nil, nil, err
	}
	out := <-done
	return out.agents, out.models, out.err
}

func printSummary(modelTbl *table.Table) error {
	summaries, err := stats.Summarize(modelTbl)
	if err != nil {
		return err
	}

	fmt.Println("\nmodel observations:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tMEMBER\tROWS\tMEAN\tSTD\tMIN\tMEDIAN\tMAX")
	for _, s := range summaries {
		member := strconv.Itoa(s.Member)
		if s.Member == 0 {
			member = "all"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			s.Column, member, s.Rows, s.Mean, s.Std, s.Min, s.Median, s.Max)
	}
	return w.Flush()
}

func plotSeries(modelTbl *table.Table, column string) error {
	series, err := stats.SeriesMean(modelTbl, column)
	if err != nil {
		return err
	}

	graph := asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s (ensemble mean)", column)),
	)
	fmt.Println()
	fmt.Println(graph)
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := models.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDESCRIPTION")
	for _, name := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\n", name, registry.Describe(name))
	}
	return w.Flush()
}

func previewSeeds(cmd *cobra.Command, args []string) error {
	seeds := ensemble.DrawSeeds(rand.New(rand.NewSource(masterSeed)), ensembleSize)
	for i, s := range seeds {
		fmt.Printf("%d\t%d\n", i+1, s)
	}
	return nil
}

func parseSeeds(s string) ([]uint32, error) {
	var seeds []uint32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, uint32(v))
	}
	return seeds, nil
}
