package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/qrewrite/internal/ast"
)

// readTree decodes a tree from a JSON or YAML file, chosen by extension.
// A path of "-" reads JSON from in.
func readTree(path string, in io.Reader) (ast.Node, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("tree file not found: %s", path), err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to read tree", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ast.DecodeYAML(data)
	default:
		return ast.DecodeJSON(data)
	}
}
