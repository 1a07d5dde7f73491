package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/store"
)

// Scenario is a single end-to-end planning case.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// QueryID is the fixed query ID stamped on the plan.
	QueryID string `yaml:"query_id"`

	// Config is CUE source holding a top-level "query" field.
	// Empty means the default configuration.
	Config string `yaml:"config,omitempty"`

	// ConfigFile is a CUE file or package directory, relative to the
	// scenario's base path. Mutually exclusive with Config.
	ConfigFile string `yaml:"config_file,omitempty"`

	// Postings populate the index before planning.
	Postings []store.Posting `yaml:"postings"`

	// Tree is the query to plan.
	Tree *ast.Wire `yaml:"tree"`

	// Leaves, when present, replaces the index probe: keys are leaf
	// renderings and values their id lists.
	Leaves map[string][]string `yaml:"leaves,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// Expectation describes the expected plan.
type Expectation struct {
	// Expanded and Rewritten are canonical renderings. Empty skips the check.
	Expanded  string `yaml:"expanded,omitempty"`
	Rewritten string `yaml:"rewritten,omitempty"`

	// IDs is the expected id set, compared when Unconstrained is false.
	IDs []string `yaml:"ids"`

	Unconstrained bool `yaml:"unconstrained,omitempty"`

	// Outcomes checks per-outcome term counts. Absent outcomes are not checked.
	Outcomes map[string]int `yaml:"outcomes,omitempty"`

	// Error is the expected error code, e.g. UNFIELDED_OVERFLOW.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and validates a scenario from a YAML file.
// A relative config_file resolves against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario and resolves config_file
// relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}

	if s.ConfigFile != "" && !filepath.IsAbs(s.ConfigFile) {
		s.ConfigFile = filepath.Join(basePath, s.ConfigFile)
	}
	if s.ConfigFile != "" {
		if _, err := os.Stat(s.ConfigFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario %s: config file not found: %s", path, s.ConfigFile)
		}
	}
	return s, nil
}

// ParseScenario decodes a scenario from YAML, rejecting unknown keys.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Tree == nil {
		return fmt.Errorf("tree is required")
	}
	if s.Config != "" && s.ConfigFile != "" {
		return fmt.Errorf("config and config_file are mutually exclusive")
	}

	for i, p := range s.Postings {
		if p.Field == "" {
			return fmt.Errorf("postings[%d]: field is required", i)
		}
		if len(p.IDs) == 0 {
			return fmt.Errorf("postings[%d]: ids list is required and must be non-empty", i)
		}
	}

	if s.Expect.Error != "" {
		if s.Expect.Unconstrained || len(s.Expect.IDs) > 0 {
			return fmt.Errorf("expect: error cannot be combined with ids or unconstrained")
		}
	}
	if s.Expect.Unconstrained && len(s.Expect.IDs) > 0 {
		return fmt.Errorf("expect: unconstrained cannot be combined with ids")
	}
	return nil
}
