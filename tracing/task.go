// Package tracing collects tasks from simulation components. A task is a
// period of time in which a component works on something, such as a memory
// responder serving one burst. Tracers attach to components as hooks and
// aggregate or store the tasks they observe.
package tracing

import "github.com/sarchlab/membus/sim"

// A TaskStep represents a point of interest in the processing of a task,
// such as one beat of a burst being committed.
type TaskStep struct {
	Time sim.VTimeInSec `json:"time"`
	What string         `json:"what"`
}

// A Task is a unit of work that a component performs over a time span.
type Task struct {
	ID         string         `json:"id"`
	ParentID   string         `json:"parent_id"`
	Kind       string         `json:"kind"`
	What       string         `json:"what"`
	Location   string         `json:"location"`
	StartTime  sim.VTimeInSec `json:"start_time"`
	EndTime    sim.VTimeInSec `json:"end_time"`
	Steps      []TaskStep     `json:"steps"`
	Milestones []Milestone    `json:"milestones"`
	Detail     interface{}    `json:"-"`
	ParentTask *Task          `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this
// function returns true, the task is considered useful.
type TaskFilter func(t Task) bool
