package tracing

import (
	"fmt"
	"sync"

	"github.com/sarchlab/membus/datarecording"
	"github.com/sarchlab/membus/sim"
	"github.com/tebeka/atexit"
)

type taskTableEntry struct {
	ID        string  `json:"id" membus_data:"index"`
	ParentID  string  `json:"parent_id" membus_data:"index"`
	Kind      string  `json:"kind" membus_data:"index"`
	What      string  `json:"what" membus_data:"index"`
	Location  string  `json:"location" membus_data:"index"`
	StartTime float64 `json:"start_time" membus_data:"index"`
	EndTime   float64 `json:"end_time" membus_data:"index"`
}

// traceIndexEntry lists one tracing session and the table that holds its
// tasks.
type traceIndexEntry struct {
	TableName    string  `json:"table_name" membus_data:"unique"`
	SessionStart float64 `json:"session_start" membus_data:"index"`
	SessionEnd   float64 `json:"session_end" membus_data:"index"`
}

// DBTracer is a tracer that stores tasks into a database. DBTracers can
// connect with different backends so that the tasks can be stored in
// different types of databases (e.g., SQLite files or ClickHouse servers).
//
// Tasks are only stored while a tracing session is active. Each call to
// EnableTracing opens a new session with its own task table, and the "trace"
// table indexes the sessions.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTimeInSec

	tracingTasks map[string]Task
	isTracing    bool

	sessionCount     int
	currentTableName string
	sessionStartTime sim.VTimeInSec
	sessionEndTime   sim.VTimeInSec
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable("trace", traceIndexEntry{})
	dataRecorder.CreateTable("trace_milestones", Milestone{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// IsTracing returns whether a tracing session is active.
func (t *DBTracer) IsTracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isTracing
}

// SetTimeRange limits the tracer to tasks that overlap the given time range.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInSec) {
	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startingTaskMustBeValid(task)

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

func (t *DBTracer) startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Location == "" {
		panic("task location must be set")
	}
}

// StepTask does nothing. Steps are kept by the aggregating tracers.
func (t *DBTracer) StepTask(_ Task) {
	// Do nothing.
}

// AddMilestone attaches a milestone to its task. Only the first milestone of
// a task at any point in time is kept, so repeated blocking reports from the
// same cycle collapse into one entry.
func (t *DBTracer) AddMilestone(milestone Milestone) {
	t.mu.Lock()
	defer t.mu.Unlock()

	milestone.Time = float64(t.timeTeller.CurrentTime())

	task := t.tracingTasks[milestone.TaskID]
	for _, existing := range task.Milestones {
		if existing.Time == milestone.Time {
			return
		}
	}

	task.Milestones = append(task.Milestones, milestone)
	t.tracingTasks[milestone.TaskID] = task
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task.EndTime = t.timeTeller.CurrentTime()

	if t.startTime > 0 && task.EndTime < t.startTime {
		delete(t.tracingTasks, task.ID)
		return
	}

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	originalTask.EndTime = task.EndTime

	if t.isTracing && t.currentTableName != "" {
		t.writeTaskToDB(originalTask)
	}

	delete(t.tracingTasks, task.ID)
}

// EnableTracing starts a new tracing session.
func (t *DBTracer) EnableTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]Task)

	t.isTracing = true
	t.sessionCount++
	t.sessionStartTime = t.timeTeller.CurrentTime()
	t.sessionEndTime = 0
	t.currentTableName = fmt.Sprintf("trace%d", t.sessionCount)
	t.backend.CreateTable(t.currentTableName, taskTableEntry{})
}

// StopTracingAtCurrentTime closes the tracing session. Tasks that are still
// in flight are written with the session end as their end time.
func (t *DBTracer) StopTracingAtCurrentTime() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isTracing {
		return
	}

	t.sessionEndTime = t.timeTeller.CurrentTime()

	traceIndex := traceIndexEntry{
		TableName:    t.currentTableName,
		SessionStart: float64(t.sessionStartTime),
		SessionEnd:   float64(t.sessionEndTime),
	}
	t.backend.InsertData("trace", traceIndex)

	t.writeOngoingTasks()

	t.isTracing = false
	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}

// Terminate terminates the tracer.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = nil
	t.backend.Flush()
}

func (t *DBTracer) writeTaskToDB(task Task) {
	t.backend.InsertData(t.currentTableName, taskTableEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Location,
		StartTime: float64(task.StartTime),
		EndTime:   float64(task.EndTime),
	})

	for _, milestone := range task.Milestones {
		t.backend.InsertData("trace_milestones", milestone)
	}
}

func (t *DBTracer) writeOngoingTasks() {
	if t.currentTableName == "" {
		return
	}

	for _, task := range t.tracingTasks {
		if task.StartTime <= t.sessionEndTime {
			task.EndTime = t.sessionEndTime
			t.writeTaskToDB(task)
		}
	}
}
