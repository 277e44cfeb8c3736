package runner

// EventType identifies a point in the life of a test run.
type EventType string

const (
	EventTestStart    EventType = "test_start"
	EventNavigate     EventType = "navigate"
	EventStepsLoaded  EventType = "steps_loaded"
	EventStepStart    EventType = "step_start"
	EventStepComplete EventType = "step_complete"
	EventTestComplete EventType = "test_complete"
)

// ProgressEvent is delivered synchronously while a test runs.
type ProgressEvent struct {
	Type    EventType
	RunID   string
	URL     string
	Message string

	// Total is the number of resolved steps, set from EventStepsLoaded on.
	Total int

	// Step is set for step events; Result only for EventStepComplete.
	Step   *ResolvedStep
	Result *StepResult

	// Results holds everything recorded, set for EventTestComplete.
	Results []StepResult
}

type ProgressCallback func(event ProgressEvent)

func NoopProgressCallback(ProgressEvent) {}
