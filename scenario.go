package playbook

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a named, ordered, immutable list of steps.
type Scenario struct {
	name        string
	description string
	steps       []Step
}

// NewScenario returns a scenario running steps in the given order.
func NewScenario(name string, steps ...Step) *Scenario {
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return &Scenario{name: name, steps: cp}
}

// WithDescription returns a copy of the scenario carrying desc.
func (sc *Scenario) WithDescription(desc string) *Scenario {
	cp := *sc
	cp.description = desc
	return &cp
}

func (sc *Scenario) Name() string        { return sc.name }
func (sc *Scenario) Description() string { return sc.description }
func (sc *Scenario) Len() int            { return len(sc.steps) }

// Step returns the step at index i.
func (sc *Scenario) Step(i int) Step {
	return sc.steps[i]
}

// Steps returns a copy of the steps.
func (sc *Scenario) Steps() []Step {
	cp := make([]Step, len(sc.steps))
	copy(cp, sc.steps)
	return cp
}

// Validate checks the scenario without running it. The returned error is a
// *StepError for the first invalid step.
func (sc *Scenario) Validate() error {
	if sc == nil {
		return errors.New("playbook: nil scenario")
	}
	if sc.name == "" {
		return errors.New("playbook: scenario has no name")
	}
	for i, s := range sc.steps {
		if err := s.validate(); err != nil {
			return &StepError{Scenario: sc.name, Index: i, Name: s.name, Err: err}
		}
	}
	return nil
}

// Outline returns the serializable description of the scenario.
func (sc *Scenario) Outline() Outline {
	out := Outline{Name: sc.name, Description: sc.description, Steps: make([]StepOutline, len(sc.steps))}
	for i, s := range sc.steps {
		out.Steps[i] = s.Outline()
	}
	return out
}

func (sc *Scenario) String() string {
	return fmt.Sprintf("scenario %q (%d steps)", sc.name, len(sc.steps))
}

// Outline is the declarative form of a scenario, as stored in script files.
// Binding it to page objects turns it back into a Scenario.
type Outline struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []StepOutline `yaml:"steps" json:"steps"`
}

// StepOutline is the declarative form of a Step.
type StepOutline struct {
	Kind    StepKind          `yaml:"kind" json:"kind"`
	Name    string            `yaml:"name" json:"name"`
	Args    map[string]string `yaml:"args,omitempty" json:"args,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Poll    time.Duration     `yaml:"poll,omitempty" json:"poll,omitempty"`
}

// MarshalYAML writes arg values double-quoted. Block scalars would drop a
// leading newline from typed text.
func (s StepOutline) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value any) error {
		v := new(yaml.Node)
		if err := v.Encode(value); err != nil {
			return fmt.Errorf("step %s: %s: %w", s.Name, key, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, v)
		return nil
	}

	if s.Kind != 0 {
		if err := add("kind", s.Kind); err != nil {
			return nil, err
		}
	}
	if err := add("name", s.Name); err != nil {
		return nil, err
	}
	if len(s.Args) > 0 {
		args := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range slices.Sorted(maps.Keys(s.Args)) {
			args.Content = append(args.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: k},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Args[k], Style: yaml.DoubleQuotedStyle},
			)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "args"}, args)
	}
	if s.Timeout != 0 {
		if err := add("timeout", s.Timeout.String()); err != nil {
			return nil, err
		}
	}
	if s.Poll != 0 {
		if err := add("poll", s.Poll.String()); err != nil {
			return nil, err
		}
	}
	return n, nil
}
