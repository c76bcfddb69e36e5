package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
)

// Kind identifies what a step does
type Kind string

const (
	KindRun      Kind = "run"
	KindSleep    Kind = "sleep"
	KindGroup    Kind = "group"
	KindSequence Kind = "sequence"
)

// Plan is a named tree of steps loaded from a YAML file. The top-level steps run as a group.
type Plan struct {
	// Name is the plan's display name, defaults to the file name
	Name string `yaml:"name"`
	// Description is free text shown by the graph command (optional)
	Description string `yaml:"description,omitempty"`
	// Steps run concurrently, ordered only by their 'after' lists
	Steps []*Step `yaml:"steps"`
}

// Step is one node of a plan. Exactly one of Run, Sleep, Group or Sequence is set.
type Step struct {
	Name     string    `yaml:"name"`
	Run      string    `yaml:"run,omitempty"`
	Sleep    *Duration `yaml:"sleep,omitempty"`
	Group    []*Step   `yaml:"group,omitempty"`
	Sequence []*Step   `yaml:"sequence,omitempty"`
	// After names siblings that must finish first (groups only)
	After []string `yaml:"after,omitempty"`
	// AllowFailure keeps a failing run step from failing the plan
	AllowFailure bool `yaml:"allow_failure,omitempty"`
}

// Kinds returns every kind set on the step. A valid step has exactly one.
func (s *Step) Kinds() []Kind {
	var kinds []Kind
	if s.Run != "" {
		kinds = append(kinds, KindRun)
	}
	if s.Sleep != nil {
		kinds = append(kinds, KindSleep)
	}
	if s.Group != nil {
		kinds = append(kinds, KindGroup)
	}
	if s.Sequence != nil {
		kinds = append(kinds, KindSequence)
	}
	return kinds
}

// Kind returns the step's kind, or "" when it does not have exactly one
func (s *Step) Kind() Kind {
	kinds := s.Kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Children returns the nested steps of a group or sequence
func (s *Step) Children() []*Step {
	switch s.Kind() {
	case KindGroup:
		return s.Group
	case KindSequence:
		return s.Sequence
	default:
		return nil
	}
}

// Duration is a time.Duration written in Go syntax ("1.5s", "200ms") in YAML
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// String returns the duration in Go syntax
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Parse decodes a plan from YAML. Unknown keys are rejected. source names the input in errors.
func Parse(data []byte, source string) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("plan is empty")
		}
		return nil, taskerrors.NewPlanParseError(source, err)
	}

	if p.Name == "" {
		p.Name = planNameFromSource(source)
	}
	return &p, nil
}

// Load reads, parses and validates the plan at path
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, taskerrors.NewPlanNotFoundError(path, err)
		}
		return nil, taskerrors.NewPlanParseError(path, err)
	}

	p, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func planNameFromSource(source string) string {
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "plan"
	}
	return name
}

// Count returns the number of steps in the plan, composites included
func (p *Plan) Count() int {
	var count func(steps []*Step) int
	count = func(steps []*Step) int {
		n := len(steps)
		for _, s := range steps {
			n += count(s.Children())
		}
		return n
	}
	return count(p.Steps)
}
