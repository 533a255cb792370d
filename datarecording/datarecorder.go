// Package datarecording writes simulation results into databases and reads
// them back. Components describe their records as flat structs and the
// package maps them to tables, buffering inserts so that high-volume traces
// do not slow the simulation down.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	// Recorders default to SQLite files.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a new table that stores entries shaped like the
	// sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one entry to be written into an existing table.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all created tables.
	ListTables() []string

	// Flush writes all buffered entries into the database.
	Flush()

	// Close flushes the remaining entries and releases the backend.
	Close() error
}

// NewDataRecorder creates a DataRecorder backed by a SQLite file at the given
// path, without the ".sqlite3" suffix. An empty path generates a unique name.
func NewDataRecorder(path string) DataRecorder {
	return newSQLiteWriter(path, 100000)
}

func newSQLiteWriter(path string, batchSize int) *sqliteWriter {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: batchSize,
		tables:    make(map[string]*table),
	}

	w.Init()

	atexit.Register(func() { w.Flush() })

	w.execRecorder = newExecRecorderWithWriter(w)
	w.execRecorder.Start()

	return w
}

// NewDataRecorderWithDB creates a DataRecorder that writes into an already
// opened database.
func NewDataRecorderWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	schema  tableSchema
	entries []any
}

// tableSchema lists the struct fields that map to table columns. Fields
// tagged `membus_data:"ignore"` are excluded.
type tableSchema struct {
	structType   reflect.Type
	columnNames  []string
	fieldIndices []int
	indexColumns []string
	uniqueCols   []string
}

// sqliteWriter is the writer that writes data into a SQLite database.
type sqliteWriter struct {
	*sql.DB

	dbName       string
	tables       map[string]*table
	batchSize    int
	entryCount   int
	execRecorder *execRecorder
}

// Init establishes a connection to the database.
func (t *sqliteWriter) Init() {
	if t.dbName == "" {
		t.dbName = "membus_data_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	schema := schemaOf(sampleEntry)

	fields := strings.Join(schema.columnNames, ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	t.mustExecute(createTableSQL)

	for _, col := range schema.indexColumns {
		t.mustExecute(fmt.Sprintf(
			"CREATE INDEX idx_%s_%s ON %s (%s);",
			tableName, col, tableName, col))
	}

	for _, col := range schema.uniqueCols {
		t.mustExecute(fmt.Sprintf(
			"CREATE UNIQUE INDEX idx_%s_%s ON %s (%s);",
			tableName, col, tableName, col))
	}

	t.tables[tableName] = &table{schema: schema}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	table, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	return tables
}

func (t *sqliteWriter) Flush() {
	if t.entryCount == 0 {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt := t.prepareStatement(tableName, table.schema)

		for _, entry := range table.entries {
			_, err := stmt.Exec(table.schema.columnValues(entry)...)
			if err != nil {
				panic(err)
			}
		}

		table.entries = nil

		stmt.Close()
	}

	t.entryCount = 0
}

func (t *sqliteWriter) Close() error {
	if t.execRecorder != nil {
		t.execRecorder.End()
	}

	t.Flush()

	return t.DB.Close()
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (t *sqliteWriter) prepareStatement(
	tableName string,
	schema tableSchema,
) *sql.Stmt {
	placeholders := make([]string, len(schema.columnNames))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" (" + strings.Join(schema.columnNames, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := t.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	return stmt
}

// schemaOf derives the column layout of a table from a sample entry. Only
// scalar fields are allowed. Fields can carry a `membus_data` tag with the
// values "ignore", "index", or "unique".
func schemaOf(sampleEntry any) tableSchema {
	structType := reflect.TypeOf(sampleEntry)
	if structType.Kind() != reflect.Struct {
		panic(fmt.Errorf("sample entry must be a struct, got %T", sampleEntry))
	}

	schema := tableSchema{structType: structType}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag := field.Tag.Get("membus_data")

		if tag == "ignore" {
			continue
		}

		if !isAllowedKind(field.Type.Kind()) {
			panic(fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type))
		}

		schema.columnNames = append(schema.columnNames, field.Name)
		schema.fieldIndices = append(schema.fieldIndices, i)

		switch tag {
		case "index":
			schema.indexColumns = append(schema.indexColumns, field.Name)
		case "unique":
			schema.uniqueCols = append(schema.uniqueCols, field.Name)
		}
	}

	return schema
}

func (s tableSchema) columnValues(entry any) []any {
	v := reflect.ValueOf(entry)
	if v.Type() != s.structType {
		panic(fmt.Sprintf("entry type %T does not match table type %s",
			entry, s.structType))
	}

	values := make([]any, 0, len(s.fieldIndices))
	for _, i := range s.fieldIndices {
		values = append(values, v.Field(i).Interface())
	}

	return values
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}
