package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qrewrite/internal/ast"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool       `json:"valid"`
	Errors []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <tree.json|tree.yaml|->",
		Short: "Check a tree's lineage",
		Long: `Decode a tree and report every lineage error: nil children, junctions
with fewer than two children, and marker conjunctions without exactly one
source.

Exit codes:
  0 - Tree is valid
  1 - Tree has lineage errors
  2 - Command error (missing file, undecodable input)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	tree, err := readTree(path, cmd.InOrStdin())
	if err != nil {
		return treeError(formatter, err)
	}

	errs := ast.Check(tree)
	if len(errs) == 0 {
		if opts.Format == "json" {
			return formatter.Success(ValidationResult{Valid: true})
		}
		return formatter.Success("Tree is valid")
	}

	result := ValidationResult{Errors: make([]CLIError, 0, len(errs))}
	for _, e := range errs {
		result.Errors = append(result.Errors, CLIError{Code: string(e.Code), Message: e.Message, Details: e.Node})
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, e := range errs {
			formatter.Error(string(e.Code), e.Message, e.Node)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d lineage error(s)", len(errs)))
}
