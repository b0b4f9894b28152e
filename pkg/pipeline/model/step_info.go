package model

type stepType string

const (
	RootStepType     stepType = "root"
	NormalStepType   stepType = "step"
	FilterStepType   stepType = "filter"
	DebounceStepType stepType = "debounce"
	MergerStepType   stepType = "merger"
	SinkStepType     stepType = "sink"
)

// StepInfo describes a step of the pipeline.
type StepInfo struct {
	Type       stepType
	Name       string
	Concurrent int
}

var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is the output of a step. Its Output channel is closed once the step is done.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}
