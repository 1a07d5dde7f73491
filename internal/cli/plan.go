package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/config"
	"github.com/roach88/qrewrite/internal/intersect"
	"github.com/roach88/qrewrite/internal/metrics"
	"github.com/roach88/qrewrite/internal/planner"
	"github.com/roach88/qrewrite/internal/store"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Config   string // CUE config file or directory
	Postings string // YAML postings file loaded before planning
	DB       string // SQLite index path
	Metrics  bool   // dump Prometheus metrics after planning
}

// PlanResult is the plan command's payload.
type PlanResult struct {
	QueryID       string         `json:"query_id"`
	Original      string         `json:"original"`
	Expanded      string         `json:"expanded"`
	Rewritten     string         `json:"rewritten"`
	IDs           []string       `json:"ids"`
	Unconstrained bool           `json:"unconstrained"`
	Outcomes      map[string]int `json:"outcomes,omitempty"`
	Rewrites      map[string]int `json:"rewrites,omitempty"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <tree.json|tree.yaml|->",
		Short: "Expand, rewrite and evaluate a tree against an index",
		Long: `Plan a tree against a SQLite term index: expand its terms, apply the
configured rewrite rules and evaluate the result to a document id set.

The index is in memory unless --db names a file. --postings loads a YAML
list of {field, value, ids} entries into it first.

Examples:
  qrewrite plan query.json --postings postings.yaml
  qrewrite plan query.yaml --db index.db --config query.cue
  qrewrite plan query.json --postings postings.yaml --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "CUE config file or directory")
	cmd.Flags().StringVar(&opts.Postings, "postings", "", "YAML postings to load before planning")
	cmd.Flags().StringVar(&opts.DB, "db", ":memory:", "SQLite index path")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after planning")

	return cmd
}

func runPlan(opts *PlanOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	tree, err := readTree(path, cmd.InOrStdin())
	if err != nil {
		return treeError(formatter, err)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open index", err)
	}
	defer st.Close()

	if opts.Postings != "" {
		postings, err := readPostings(opts.Postings)
		if err != nil {
			formatter.Error(ErrCodeDecode, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read postings", err)
		}
		if err := st.Load(ctx, postings); err != nil {
			formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load postings", err)
		}
		formatter.VerboseLog("Loaded %d posting(s) from %s", len(postings), opts.Postings)
	}

	m := metrics.New(nil)
	compiler := store.NewCompiler(cfg.AnyField)
	limits := store.Limits{MaxFields: cfg.MaxUnfieldedExpansion, MaxValues: cfg.MaxValueExpansion}
	p, err := planner.New(cfg, st.Provider(compiler, limits),
		planner.WithLogger(NewLogger(cmd.ErrOrStderr(), opts.Verbose)),
		planner.WithMetrics(m),
		planner.WithLeafSource(func(ctx context.Context, tree ast.Node) (intersect.Leaves, error) {
			return st.LeafSets(ctx, compiler, tree)
		}),
	)
	if err != nil {
		formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	plan, err := p.Plan(ctx, tree, nil)
	if err != nil {
		formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
		return WrapExitError(ExitFailure, "plan failed", err)
	}

	result := planResult(plan)
	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writePlanText(cmd.OutOrStdout(), result)
	}

	if opts.Metrics {
		return writeMetrics(formatter.GetErrWriter(), m)
	}
	return nil
}

func readPostings(path string) ([]store.Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var postings []store.Posting
	if err := yaml.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("parse postings %s: %w", path, err)
	}
	return postings, nil
}

func planResult(plan *planner.Plan) PlanResult {
	r := PlanResult{
		QueryID:       plan.QueryID,
		Original:      ast.Render(plan.Original),
		Expanded:      ast.Render(plan.Expanded),
		Rewritten:     ast.Render(plan.Rewritten),
		IDs:           plan.IDs.Strings(),
		Unconstrained: plan.Unconstrained,
		Outcomes:      make(map[string]int, len(plan.Outcomes)),
		Rewrites:      plan.Rewrites,
	}
	for o, n := range plan.Outcomes {
		r.Outcomes[string(o)] = n
	}
	return r
}

func writePlanText(w io.Writer, r PlanResult) {
	fmt.Fprintf(w, "query:     %s\n", r.QueryID)
	fmt.Fprintf(w, "original:  %s\n", r.Original)
	fmt.Fprintf(w, "expanded:  %s\n", r.Expanded)
	fmt.Fprintf(w, "rewritten: %s\n", r.Rewritten)
	if r.Unconstrained {
		fmt.Fprintln(w, "ids:       (unconstrained)")
	} else {
		fmt.Fprintf(w, "ids:       [%s]\n", strings.Join(r.IDs, ", "))
	}
	if len(r.Outcomes) > 0 {
		fmt.Fprintf(w, "outcomes:  %s\n", formatCounts(r.Outcomes))
	}
}

// formatCounts renders counts as k=v pairs in key order.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

// writeMetrics prints the registry in the Prometheus text format.
func writeMetrics(w io.Writer, m *metrics.Metrics) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
