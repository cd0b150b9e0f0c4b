package transform

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PlanSummary describes a plan and, once fitted, what each step learned.
type PlanSummary struct {
	Fitted       bool          `yaml:"fitted"`
	Numeric      *GroupSummary `yaml:"numeric,omitempty"`
	Categorical  *GroupSummary `yaml:"categorical,omitempty"`
	FeatureNames []string      `yaml:"feature_names,omitempty"`
}

// GroupSummary lists the columns of a group and its steps in application order.
type GroupSummary struct {
	Columns []string      `yaml:"columns"`
	Steps   []StepSummary `yaml:"steps"`
}

// StepSummary holds a step name and its parameters.
type StepSummary struct {
	Name   string `yaml:"name"`
	Params any    `yaml:"params,omitempty"`
}

// Describe returns a summary of the plan.
func (p *Plan) Describe() PlanSummary {
	summary := PlanSummary{
		Fitted:       p.fitted,
		FeatureNames: p.FeatureNames(),
	}

	if len(p.numeric) > 0 {
		group := &GroupSummary{
			Columns: p.numeric,
			Steps:   []StepSummary{{Name: "simpleimputer", Params: p.numImputer}},
		}

		for _, step := range p.num.steps {
			group.Steps = append(group.Steps, StepSummary{Name: step.name, Params: step.Transformer})
		}

		summary.Numeric = group
	}

	if len(p.categorical) > 0 {
		summary.Categorical = &GroupSummary{
			Columns: p.categorical,
			Steps: []StepSummary{
				{Name: "simpleimputer", Params: p.catImputer},
				{Name: p.cat.name, Params: p.cat.CategoricalTransformer},
			},
		}
	}

	return summary
}

// YAML encodes the summary.
func (s PlanSummary) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode plan summary")
	}

	return out, nil
}
