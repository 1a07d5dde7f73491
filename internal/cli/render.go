package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/marker"
)

// RenderResult is the render command's payload.
type RenderResult struct {
	Rendering   string   `json:"rendering"`
	Fingerprint string   `json:"fingerprint"`
	Markers     []string `json:"markers,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <tree.json|tree.yaml|->",
		Short: "Print the canonical rendering of a tree",
		Long: `Decode a tree from its wire form, validate it and print its canonical
rendering. The JSON form also carries the fingerprint and the marker kinds
found at the root.

Examples:
  qrewrite render query.json
  qrewrite render query.yaml --format json
  echo '{"op":"eq","field":"FOO","value":"bar"}' | qrewrite render -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRender(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	tree, err := readTree(path, cmd.InOrStdin())
	if err != nil {
		return treeError(formatter, err)
	}
	if err := ast.Validate(tree); err != nil {
		formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid tree", err)
	}

	rendering := ast.Render(tree)
	formatter.VerboseLog("fingerprint: %s", ast.Fingerprint(tree))
	if opts.Format != "json" {
		return formatter.Success(rendering)
	}

	result := RenderResult{
		Rendering:   rendering,
		Fingerprint: ast.Fingerprint(tree),
	}
	for _, k := range marker.Kinds(tree) {
		result.Markers = append(result.Markers, k.String())
	}
	return formatter.Success(result)
}

// treeError reports a readTree failure. Read failures keep their exit
// code; anything else failed to decode.
func treeError(formatter *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		formatter.Error(ErrCodeNotFound, exitErr.Error(), nil)
		return exitErr
	}
	formatter.Error(errorCode(err, ErrCodeDecode), err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to decode tree", err)
}
