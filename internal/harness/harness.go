package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/config"
	"github.com/roach88/qrewrite/internal/intersect"
	"github.com/roach88/qrewrite/internal/planner"
	"github.com/roach88/qrewrite/internal/store"
	"github.com/roach88/qrewrite/internal/testutil"
	"github.com/roach88/qrewrite/internal/uid"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	store    *store.Store
	compiler *store.Compiler
	cfg      *config.Query
	queryIDs *testutil.FixedQueryIDGenerator
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory index for isolation, and the
// query ID is fixed so repeated runs produce identical plans.
//
// Execution flow:
//  1. Resolve the configuration
//  2. Load postings into a fresh in-memory index
//  3. Plan the tree with the index as provider and leaf source
//  4. Check expectations
//
// Planning failures with a tree error code are scenario outcomes, not
// errors; Run returns an error only when the scenario cannot execute.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		if code, ok := errorCode(err); ok {
			result.ErrorCode = code
			checkExpectations(result, scenario.Expect)
			return result, nil
		}
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.Load(ctx, scenario.Postings); err != nil {
		return nil, fmt.Errorf("failed to load postings: %w", err)
	}

	h := &Harness{
		store:    st,
		compiler: store.NewCompiler(cfg.AnyField),
		cfg:      cfg,
		queryIDs: testutil.NewFixedQueryIDGenerator(scenario.QueryID),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	plan, err := h.plan(ctx, scenario)
	if err != nil {
		code, ok := errorCode(err)
		if !ok {
			return nil, err
		}
		result.ErrorCode = code
	}
	result.Plan = plan

	checkExpectations(result, scenario.Expect)
	return result, nil
}

func (h *Harness) plan(ctx context.Context, scenario *Scenario) (*planner.Plan, error) {
	tree, err := ast.FromWire(scenario.Tree)
	if err != nil {
		return nil, err
	}

	limits := store.Limits{MaxFields: h.cfg.MaxUnfieldedExpansion, MaxValues: h.cfg.MaxValueExpansion}
	p, err := planner.New(h.cfg, h.store.Provider(h.compiler, limits),
		planner.WithLogger(h.logger),
		planner.WithIDGenerator(h.queryIDs),
		planner.WithLeafSource(func(ctx context.Context, tree ast.Node) (intersect.Leaves, error) {
			return h.store.LeafSets(ctx, h.compiler, tree)
		}),
	)
	if err != nil {
		return nil, err
	}

	return p.Plan(ctx, tree, scenarioLeaves(scenario))
}

func scenarioConfig(scenario *Scenario) (*config.Query, error) {
	switch {
	case scenario.ConfigFile != "":
		return config.Load(scenario.ConfigFile)
	case scenario.Config != "":
		return config.Parse(scenario.Config)
	default:
		return config.Default(), nil
	}
}

// scenarioLeaves converts explicit leaf sets. Nil means probe the index.
func scenarioLeaves(scenario *Scenario) intersect.Leaves {
	if scenario.Leaves == nil {
		return nil
	}
	leaves := make(intersect.Leaves, len(scenario.Leaves))
	for key, ids := range scenario.Leaves {
		leaves[key] = uid.FromStrings(ids...)
	}
	return leaves
}

func errorCode(err error) (string, bool) {
	var treeErr *ast.Error
	if errors.As(err, &treeErr) {
		return string(treeErr.Code), true
	}
	return "", false
}
