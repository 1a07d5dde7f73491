package harness

import (
	"github.com/roach88/qrewrite/internal/planner"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Plan is the pipeline result. Nil when planning failed.
	Plan *planner.Plan `json:"-"`

	// ErrorCode is the code of the planning error, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
