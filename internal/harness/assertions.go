package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/expand"
)

// AssertionError is returned when an expectation fails.
// It includes the plan's trees to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trees    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trees) > 0 {
		fmt.Fprintf(&buf, "\nTrees:\n")
		for _, t := range e.Trees {
			fmt.Fprintf(&buf, "  %s\n", t)
		}
	}
	return buf.String()
}

// checkExpectations compares a result against the scenario expectations
// and records every mismatch on the result.
func checkExpectations(result *Result, expect Expectation) {
	for _, err := range evaluateExpectations(result, expect) {
		result.AddError(err.Error())
	}
}

func evaluateExpectations(result *Result, expect Expectation) []error {
	if expect.Error != "" || result.Plan == nil {
		if result.ErrorCode != expect.Error {
			return []error{&AssertionError{
				Type:     "error",
				Expected: orNone(expect.Error),
				Actual:   orNone(result.ErrorCode),
			}}
		}
		return nil
	}

	plan := result.Plan
	trees := []string{
		"original:  " + ast.Render(plan.Original),
		"expanded:  " + ast.Render(plan.Expanded),
		"rewritten: " + ast.Render(plan.Rewritten),
	}

	var errs []error
	check := func(typ, expected, actual string) {
		if expected != actual {
			errs = append(errs, &AssertionError{Type: typ, Expected: expected, Actual: actual, Trees: trees})
		}
	}

	if expect.Expanded != "" {
		check("expanded", expect.Expanded, ast.Render(plan.Expanded))
	}
	if expect.Rewritten != "" {
		check("rewritten", expect.Rewritten, ast.Render(plan.Rewritten))
	}

	check("unconstrained", fmt.Sprint(expect.Unconstrained), fmt.Sprint(plan.Unconstrained))
	if !expect.Unconstrained {
		want := slices.Clone(expect.IDs)
		slices.Sort(want)
		check("ids", "["+strings.Join(want, ", ")+"]", "["+strings.Join(plan.IDs.Strings(), ", ")+"]")
	}

	for outcome, n := range expect.Outcomes {
		check("outcomes["+outcome+"]", fmt.Sprint(n), fmt.Sprint(plan.Outcomes[expand.Outcome(outcome)]))
	}
	return errs
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
