package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/config"
	"github.com/roach88/qrewrite/internal/expand"
	"github.com/roach88/qrewrite/internal/intersect"
	"github.com/roach88/qrewrite/internal/marker"
	"github.com/roach88/qrewrite/internal/metrics"
	"github.com/roach88/qrewrite/internal/rewrite"
	"github.com/roach88/qrewrite/internal/uid"
)

// LeafSource computes the leaf id sets for a rewritten tree.
type LeafSource func(ctx context.Context, tree ast.Node) (intersect.Leaves, error)

// Plan is the result of running the pipeline over one tree.
type Plan struct {
	QueryID string
	Seq     int64

	Original  ast.Node
	Expanded  ast.Node
	Rewritten ast.Node

	// IDs is the set the rewritten tree selects. Empty when Unconstrained.
	IDs           uid.Set
	Unconstrained bool

	// Outcomes counts expanded terms by outcome.
	Outcomes map[expand.Outcome]int

	// Rewrites counts replaced nodes by rule name.
	Rewrites map[string]int
}

// Planner runs the pipeline with a fixed configuration.
type Planner struct {
	cfg      *config.Query
	provider expand.Provider
	rules    []rewrite.Rule
	registry *rewrite.Registry
	meta     rewrite.Metadata
	leaves   LeafSource
	ids      IDGenerator
	clock    *Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Planner) { p.metrics = m }
}

// WithIDGenerator sets the query ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Planner) { p.ids = g }
}

// WithRegistry resolves rule names against r instead of the built-ins.
func WithRegistry(r *rewrite.Registry) Option {
	return func(p *Planner) { p.registry = r }
}

// WithMetadata sets the field metadata rules consult. Default: the
// configuration's indexed fields.
func WithMetadata(m rewrite.Metadata) Option {
	return func(p *Planner) { p.meta = m }
}

// WithLeafSource computes leaf sets when Plan is given none.
func WithLeafSource(s LeafSource) Option {
	return func(p *Planner) { p.leaves = s }
}

// New creates a Planner. The configuration is validated and its rule
// names resolved up front, so a bad configuration fails here rather than
// on the first query.
func New(cfg *config.Query, provider expand.Provider, opts ...Option) (*Planner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("planner: provider is required")
	}

	p := &Planner{
		cfg:      cfg,
		provider: provider,
		registry: rewrite.DefaultRegistry(),
		meta:     cfg,
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	rules, err := p.registry.Resolve(cfg.Rules)
	if err != nil {
		return nil, err
	}
	p.rules = rules
	return p, nil
}

// Plan runs the pipeline over tree. leaves supplies the per-leaf id sets;
// when nil the configured LeafSource computes them from the rewritten
// tree, and without one every leaf is a clean miss.
func (p *Planner) Plan(ctx context.Context, tree ast.Node, leaves intersect.Leaves) (*Plan, error) {
	plan := &Plan{
		QueryID:  p.ids.Generate(),
		Seq:      p.clock.Next(),
		Original: tree,
		Outcomes: make(map[expand.Outcome]int),
	}
	log := p.logger.With("query_id", plan.QueryID)

	if err := p.run(ctx, plan, leaves, log); err != nil {
		p.metrics.RecordPlan("error")
		log.Error("plan failed", "error", err)
		return nil, err
	}
	p.metrics.RecordPlan("ok")

	log.Info("plan complete",
		"seq", plan.Seq,
		"terms", plan.Terms(),
		"ids", plan.IDs.Len(),
		"unconstrained", plan.Unconstrained,
	)
	return plan, nil
}

func (p *Planner) run(ctx context.Context, plan *Plan, leaves intersect.Leaves, log *slog.Logger) error {
	start := time.Now()
	if err := ast.Validate(plan.Original); err != nil {
		return err
	}
	p.metrics.RecordPhase("validate", time.Since(start))
	log.Debug("tree validated", "tree", ast.Render(plan.Original))

	opts := p.cfg.ExpandOptions()
	opts.OnTerm = func(term ast.Node, outcome expand.Outcome) {
		plan.Outcomes[outcome]++
		p.metrics.RecordTerm(string(outcome))
		log.Debug("term expanded", "term", ast.Render(term), "outcome", outcome)
	}

	start = time.Now()
	expanded, err := expand.Tree(ctx, plan.Original, p.provider, opts)
	if err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	plan.Expanded = expanded
	p.metrics.RecordPhase("expand", time.Since(start))
	log.Debug("tree expanded", "tree", ast.Render(expanded))

	start = time.Now()
	rewritten, stats, err := rewrite.ApplyWithStats(expanded, p.rules, p.cfg, p.meta)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	plan.Rewritten = rewritten
	plan.Rewrites = stats.Rewrites
	for rule, n := range stats.Rewrites {
		p.metrics.RecordRewrites(rule, n)
	}
	p.metrics.RecordPhase("rewrite", time.Since(start))
	log.Debug("tree rewritten", "tree", ast.Render(rewritten), "rules", len(p.rules))

	p.recordMarkers(rewritten)

	start = time.Now()
	if leaves == nil && p.leaves != nil {
		if leaves, err = p.leaves(ctx, rewritten); err != nil {
			return fmt.Errorf("leaf sets: %w", err)
		}
	}
	res, err := intersect.Evaluate(rewritten, leaves)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	plan.IDs = res.IDs
	plan.Unconstrained = res.Unconstrained
	p.metrics.RecordPhase("evaluate", time.Since(start))
	if !res.Unconstrained {
		p.metrics.RecordResult(res.IDs.Len())
	}
	log.Debug("tree evaluated", "ids", res.IDs.String(), "unconstrained", res.Unconstrained)
	return nil
}

// recordMarkers counts every marker in n, nested ones included.
func (p *Planner) recordMarkers(n ast.Node) {
	if inst, ok := marker.Find(n); ok {
		p.metrics.RecordMarker(inst.Kind.String())
		p.recordMarkers(inst.Source)
		return
	}
	for _, child := range ast.Children(n) {
		p.recordMarkers(child)
	}
}

// Terms returns the number of expanded terms.
func (pl *Plan) Terms() int {
	n := 0
	for _, c := range pl.Outcomes {
		n += c
	}
	return n
}
