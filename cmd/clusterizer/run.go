package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/clusterizer/internal/cluster"
	"github.com/thebtf/clusterizer/internal/config"
	"github.com/thebtf/clusterizer/internal/report"
	"github.com/thebtf/clusterizer/internal/source"
)

// engineFlags are the per-invocation overrides shared by run and watch.
type engineFlags struct {
	metric            string
	cohesion          string
	collisions        string
	format            string
	query             string
	key               string
	ngram             int
	minSize           int
	baseline          float64
	singletonCohesion float64
	trace             bool
	keepBlank         bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.ngram, "ngram", "n", cluster.DefaultShingleLength, "Shingle length in characters")
	fs.StringVar(&f.metric, "metric", "dice", "Pair distance: dice or jaccard")
	fs.StringVar(&f.cohesion, "cohesion", "mean", "Partition score: mean or weighted")
	fs.StringVar(&f.collisions, "collisions", "keep-all", "Originals per canonical key: keep-all or last-wins")
	fs.Float64Var(&f.baseline, "baseline", cluster.DefaultBaselineScore, "Score a merge level must beat to replace all singletons")
	fs.Float64Var(&f.singletonCohesion, "singleton-cohesion", cluster.DefaultSingletonCohesion, "Cohesion assigned to single-member clusters")
	fs.BoolVar(&f.trace, "trace", false, "Include the per-merge trace in JSON output")
	fs.StringVarP(&f.format, "format", "f", "text", "Output format: text or json")
	fs.IntVar(&f.minSize, "min-size", 1, "Hide clusters reporting fewer records than this")
	fs.StringVar(&f.query, "query", "", "SELECT statement for sqlite:// and postgres:// sources")
	fs.StringVar(&f.key, "key", "", "List key for redis:// sources")
	fs.BoolVar(&f.keepBlank, "keep-blank", false, "Keep blank lines as records")
}

// apply copies explicitly set flags over cfg.
func (f *engineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("ngram") {
		cfg.Engine.Ngram = f.ngram
	}
	if fs.Changed("metric") {
		cfg.Engine.Metric = f.metric
	}
	if fs.Changed("cohesion") {
		cfg.Engine.Cohesion = f.cohesion
	}
	if fs.Changed("collisions") {
		cfg.Engine.Collisions = f.collisions
	}
	if fs.Changed("baseline") {
		cfg.Engine.BaselineScore = f.baseline
	}
	if fs.Changed("singleton-cohesion") {
		cfg.Engine.SingletonCohesion = f.singletonCohesion
	}
	if fs.Changed("trace") {
		cfg.Engine.Trace = f.trace
	}
	if fs.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fs.Changed("min-size") {
		cfg.Output.MinSize = f.minSize
	}
	if fs.Changed("query") {
		cfg.Source.Query = f.query
	}
	if fs.Changed("key") {
		cfg.Source.Key = f.key
	}
	if fs.Changed("keep-blank") {
		cfg.Source.SkipBlank = !f.keepBlank
	}
}

func newRunCmd(a *app) *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "run [input] [ngram]",
		Short: "Cluster records once and print the most cohesive partition",
		Long: `Cluster records once and print the most cohesive partition.

Input is a file path, "-" for stdin (the default), file://, sqlite://,
postgres:// or redis:// URI. A second positional argument sets the
shingle length unless --ngram is given.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) > 0 {
				input = args[0]
			}
			if len(args) == 2 && !cmd.Flags().Changed("ngram") {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("%w: %q", cluster.ErrInvalidShingleLength, args[1])
				}
				a.cfg.Engine.Ngram = n
			}
			flags.apply(cmd, a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.clusterOnce(cmd, input, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

// clusterOnce reads input, clusters it and writes the report to out.
func (a *app) clusterOnce(cmd *cobra.Command, input string, out io.Writer) error {
	ctx := cmd.Context()

	reader, err := source.Open(input, source.Options{
		Query:     a.cfg.Source.Query,
		Key:       a.cfg.Source.Key,
		SkipBlank: a.cfg.Source.SkipBlank,
	})
	if err != nil {
		return err
	}
	if fr, ok := reader.(*source.FileReader); ok && fr.Path == "-" {
		fr.Stdin = cmd.InOrStdin()
	}

	records, err := reader.Read(ctx)
	if err != nil {
		return err
	}
	log.Debug().Str("input", input).Int("records", len(records)).Msg("Records loaded")

	opts, err := a.cfg.EngineOptions()
	if err != nil {
		return err
	}
	rep, err := a.runner.Run(ctx, records, opts)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	return report.Write(out, rep, format, a.cfg.Output.MinSize)
}
