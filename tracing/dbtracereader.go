package tracing

import (
	"database/sql"
	"fmt"
	"strings"

	// Trace databases are SQLite files.
	_ "github.com/mattn/go-sqlite3"
)

// TraceSession is one tracing session recorded by a DBTracer, together with
// the table that holds its tasks.
type TraceSession struct {
	TableName string
	StartTime float64
	EndTime   float64
}

// TaskQuery describes the tasks to be queried. Empty fields do not
// constrain the query.
type TaskQuery struct {
	// Use ID to select a single task by its ID.
	ID string

	// Use ParentID to select all the tasks that are children of a task.
	ParentID string

	// Use Kind to select all the tasks of a kind.
	Kind string

	// Use Location to select all the tasks that were executed at a location.
	Location string

	// EnableTimeRange enables time range selection.
	EnableTimeRange bool

	// StartTime and EndTime select tasks that overlap with the given time
	// range.
	StartTime, EndTime float64

	// EnableParentTask also loads the parent task of each selected task.
	EnableParentTask bool
}

// DBTraceReader reads the tasks that a DBTracer wrote into a SQLite file.
type DBTraceReader struct {
	*sql.DB
}

// NewDBTraceReader opens a trace database.
func NewDBTraceReader(filename string) *DBTraceReader {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	return &DBTraceReader{
		DB: db,
	}
}

// ListSessions returns all the tracing sessions in the database, in the
// order they were recorded.
func (r *DBTraceReader) ListSessions() []TraceSession {
	rows, err := r.Query(
		"SELECT TableName, SessionStart, SessionEnd FROM trace " +
			"ORDER BY SessionStart")
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	var sessions []TraceSession
	for rows.Next() {
		s := TraceSession{}

		err := rows.Scan(&s.TableName, &s.StartTime, &s.EndTime)
		if err != nil {
			panic(err)
		}

		sessions = append(sessions, s)
	}

	return sessions
}

// ListComponents returns all the locations that appear in a session.
func (r *DBTraceReader) ListComponents(session TraceSession) []string {
	rows, err := r.Query(fmt.Sprintf(
		"SELECT DISTINCT Location FROM %s", session.TableName))
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	var components []string
	for rows.Next() {
		var component string

		err := rows.Scan(&component)
		if err != nil {
			panic(err)
		}

		components = append(components, component)
	}

	return components
}

// ListTasks returns the tasks of a session that match the query.
func (r *DBTraceReader) ListTasks(
	session TraceSession,
	query TaskQuery,
) []Task {
	sqlStr, args := r.prepareTaskQueryStr(session, query)

	rows, err := r.Query(sqlStr, args...)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t := Task{}

		if query.EnableParentTask {
			pt := Task{}
			err := rows.Scan(
				&t.ID, &t.ParentID, &t.Kind, &t.What, &t.Location,
				&t.StartTime, &t.EndTime,
				&pt.ID, &pt.ParentID, &pt.Kind, &pt.What, &pt.Location,
				&pt.StartTime, &pt.EndTime,
			)
			if err != nil {
				panic(err)
			}

			if pt.ID != "" {
				t.ParentTask = &pt
			}
		} else {
			err := rows.Scan(
				&t.ID, &t.ParentID, &t.Kind, &t.What, &t.Location,
				&t.StartTime, &t.EndTime,
			)
			if err != nil {
				panic(err)
			}
		}

		tasks = append(tasks, t)
	}

	return tasks
}

// ListMilestones returns the milestones recorded for one task.
func (r *DBTraceReader) ListMilestones(taskID string) []Milestone {
	rows, err := r.Query(
		"SELECT ID, TaskID, Kind, What, Location, Time "+
			"FROM trace_milestones WHERE TaskID = ? ORDER BY Time",
		taskID)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	var milestones []Milestone
	for rows.Next() {
		m := Milestone{}

		err := rows.Scan(
			&m.ID, &m.TaskID, &m.Kind, &m.What, &m.Location, &m.Time)
		if err != nil {
			panic(err)
		}

		milestones = append(milestones, m)
	}

	return milestones
}

func (r *DBTraceReader) prepareTaskQueryStr(
	session TraceSession,
	query TaskQuery,
) (string, []any) {
	sqlStr := `
		SELECT
			t.ID,
			t.ParentID,
			t.Kind,
			t.What,
			t.Location,
			t.StartTime,
			t.EndTime
	`

	if query.EnableParentTask {
		sqlStr += `,
			COALESCE(pt.ID, ''),
			COALESCE(pt.ParentID, ''),
			COALESCE(pt.Kind, ''),
			COALESCE(pt.What, ''),
			COALESCE(pt.Location, ''),
			COALESCE(pt.StartTime, 0),
			COALESCE(pt.EndTime, 0)
		`
	}

	sqlStr += fmt.Sprintf(`
		FROM %s t
	`, session.TableName)

	if query.EnableParentTask {
		sqlStr += fmt.Sprintf(`
			LEFT JOIN %s pt
			ON t.ParentID = pt.ID
		`, session.TableName)
	}

	return r.addQueryConditionsToQueryStr(sqlStr, query)
}

func (r *DBTraceReader) addQueryConditionsToQueryStr(
	sqlStr string,
	query TaskQuery,
) (string, []any) {
	conditions := []string{"1=1"}
	args := []any{}

	if query.ID != "" {
		conditions = append(conditions, "t.ID = ?")
		args = append(args, query.ID)
	}

	if query.ParentID != "" {
		conditions = append(conditions, "t.ParentID = ?")
		args = append(args, query.ParentID)
	}

	if query.Kind != "" {
		conditions = append(conditions, "t.Kind = ?")
		args = append(args, query.Kind)
	}

	if query.Location != "" {
		conditions = append(conditions, "t.Location = ?")
		args = append(args, query.Location)
	}

	if query.EnableTimeRange {
		conditions = append(conditions, "t.EndTime > ?", "t.StartTime < ?")
		args = append(args, query.StartTime, query.EndTime)
	}

	sqlStr += "WHERE " + strings.Join(conditions, " AND ")

	return sqlStr, args
}
