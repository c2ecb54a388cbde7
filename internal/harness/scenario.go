package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one harness run.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Columns overrides the two score column names. Defaults to math, english.
	Columns []string `yaml:"columns,omitempty"`

	// Setup steps establish initial state. Every setup step must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are executed in order and recorded in the trace.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the final record set.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is a single store operation.
type Step struct {
	// Op is one of add, get, list, update, delete, upsert.
	Op string `yaml:"op"`

	Args Args `yaml:"args,omitempty"`

	// Expect is optional; without it the step is only traced.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Args carries the raw form text for a step. Nil fields are "not provided";
// for update and upsert an empty string clears a score.
type Args struct {
	ID     string  `yaml:"id"`
	Name   *string `yaml:"name,omitempty"`
	Field1 *string `yaml:"field1,omitempty"`
	Field2 *string `yaml:"field2,omitempty"`
}

// Expect describes what a step should produce.
type Expect struct {
	// Outcome is a form.Outcome value (ok, not_found, validation_error, ...).
	Outcome string `yaml:"outcome"`

	// Record is a subset match against the record returned by get, keyed by
	// column name.
	Record map[string]string `yaml:"record,omitempty"`

	// IDs is the exact ID sequence returned by list.
	IDs []string `yaml:"ids,omitempty"`

	// Created is checked for upsert.
	Created *bool `yaml:"created,omitempty"`
}

// Assertion checks the final record set.
type Assertion struct {
	// Type is one of record_count, record_equals, record_absent, list_order.
	Type string `yaml:"type"`

	ID     string            `yaml:"id,omitempty"`
	Count  int               `yaml:"count,omitempty"`
	Expect map[string]string `yaml:"expect,omitempty"`
	IDs    []string          `yaml:"ids,omitempty"`
}

// Step operations.
const (
	OpAdd    = "add"
	OpGet    = "get"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"
	OpUpsert = "upsert"
)

// Assertion types.
const (
	AssertRecordCount  = "record_count"
	AssertRecordEquals = "record_equals"
	AssertRecordAbsent = "record_absent"
	AssertListOrder    = "list_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Columns) != 0 && len(s.Columns) != 2 {
		return fmt.Errorf("columns must name exactly two score columns, got %d", len(s.Columns))
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("steps[%d].expect: outcome is required", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpAdd, OpGet, OpList, OpUpdate, OpDelete, OpUpsert:
		// An empty id is allowed; it exercises validation.
		return nil
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertRecordEquals:
		if a.ID == "" {
			return fmt.Errorf("id is required for record_equals")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for record_equals")
		}
	case AssertRecordAbsent:
		if a.ID == "" {
			return fmt.Errorf("id is required for record_absent")
		}
	case AssertListOrder:
		if a.IDs == nil {
			return fmt.Errorf("ids is required for list_order")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
