package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type is the kind of generation a stage performs.
// It determines which model tier is appropriate.
type Type string

const (
	// Reasoning over the dataset.
	Analyze Type = "analyze"
	Insight Type = "insight"

	// Planning and section writing.
	Plan            Type = "plan"
	WriteResearched Type = "write-researched"
	WriteDerived    Type = "write-derived"

	// Short, mechanical output.
	Summarize Type = "summarize"
)

// DefaultModelMap maps task types to default Claude models.
var DefaultModelMap = map[Type]model.ModelName{
	Analyze:         model.ModelOpus,
	Insight:         model.ModelOpus,
	Plan:            model.ModelSonnet,
	WriteResearched: model.ModelSonnet,
	WriteDerived:    model.ModelSonnet,
	Summarize:       model.ModelHaiku,
}

// ForStage maps a workflow stage name to its task type. Unknown stages
// map to WriteResearched, which runs on the default tier.
func ForStage(stage string) Type {
	switch t := Type(stage); t {
	case Analyze, Insight, Plan, WriteResearched, WriteDerived, Summarize:
		return t
	default:
		return WriteResearched
	}
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Analyze, Insight:
		return model.TierThinking
	case Summarize:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector keyed by task Type.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			switch t := task.(type) {
			case Type:
				return TierForTask(t)
			case string:
				return TierForTask(ForStage(t))
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the Claude model for a task type.
// Uses the default model map unless overridden.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
