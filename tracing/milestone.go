package tracing

// MilestoneKind classifies what a task was waiting for when a milestone was
// recorded.
type MilestoneKind string

// The milestone kinds.
const (
	MilestoneKindQueue            MilestoneKind = "queue"
	MilestoneKindHardwareResource MilestoneKind = "hardware_resource"
	MilestoneKindNetworkTransfer  MilestoneKind = "network_transfer"
	MilestoneKindDependency       MilestoneKind = "dependency"
	MilestoneKindOther            MilestoneKind = "other"
)

// Milestone represents a point in time where the progress of a task is worth
// remembering, typically because the task was blocked there.
type Milestone struct {
	ID       string        `json:"id" membus_data:"index"`
	TaskID   string        `json:"task_id" membus_data:"index"`
	Kind     MilestoneKind `json:"kind" membus_data:"index"`
	What     string        `json:"what"`
	Location string        `json:"location" membus_data:"index"`
	Time     float64       `json:"time" membus_data:"index"`
}
