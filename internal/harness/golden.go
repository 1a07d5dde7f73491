package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qrewrite/internal/ast"
)

// PlanSnapshot captures a scenario's plan for golden comparison.
// Trees are captured by canonical rendering.
type PlanSnapshot struct {
	ScenarioName  string
	QueryID       string
	Seq           int64
	Original      string
	Expanded      string
	Rewritten     string
	IDs           []string
	Unconstrained bool
	Outcomes      map[string]int
	Rewrites      map[string]int
	Error         string
}

// Snapshot builds the golden snapshot of a scenario result.
func Snapshot(scenario *Scenario, result *Result) PlanSnapshot {
	s := PlanSnapshot{
		ScenarioName: scenario.Name,
		QueryID:      scenario.QueryID,
		Error:        result.ErrorCode,
	}
	if plan := result.Plan; plan != nil {
		s.QueryID = plan.QueryID
		s.Seq = plan.Seq
		s.Original = ast.Render(plan.Original)
		s.Expanded = ast.Render(plan.Expanded)
		s.Rewritten = ast.Render(plan.Rewritten)
		s.IDs = plan.IDs.Strings()
		s.Unconstrained = plan.Unconstrained
		s.Outcomes = make(map[string]int, len(plan.Outcomes))
		for o, n := range plan.Outcomes {
			s.Outcomes[string(o)] = n
		}
		s.Rewrites = plan.Rewrites
	}
	return s
}

// toCanonicalMap converts a snapshot to a map[string]any for canonical JSON
// serialization, which only handles tree types and primitives.
func (s *PlanSnapshot) toCanonicalMap() map[string]any {
	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"query_id":      s.QueryID,
	}
	if s.Error != "" {
		result["error"] = s.Error
		return result
	}

	result["seq"] = s.Seq
	result["original"] = s.Original
	result["expanded"] = s.Expanded
	result["rewritten"] = s.Rewritten
	result["ids"] = s.IDs
	result["unconstrained"] = s.Unconstrained
	result["outcomes"] = countMap(s.Outcomes)
	result["rewrites"] = countMap(s.Rewrites)
	return result
}

func countMap(m map[string]int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SnapshotJSON returns the canonical JSON golden form of a result.
func SnapshotJSON(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := Snapshot(scenario, result)
	return ast.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its plan against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the plan doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
