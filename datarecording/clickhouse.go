package datarecording

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// RecorderConfig selects and configures a recording backend.
type RecorderConfig struct {
	// Type is either "sqlite" or "clickhouse". An empty type defaults to
	// SQLite.
	Type string

	// Path is the SQLite file path, without the ".sqlite3" suffix.
	Path string

	// ConnStr is a ClickHouse connection string of the form
	// "clickhouse://host:port/database?username=u&password=p". When set, it
	// overrides the individual connection fields.
	ConnStr string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// BatchSize is the number of buffered entries that triggers a flush.
	// Zero keeps the default.
	BatchSize int
}

// NewDataRecorderWithConfig creates a DataRecorder for the backend that the
// config describes.
func NewDataRecorderWithConfig(config RecorderConfig) DataRecorder {
	batchSize := config.BatchSize
	if batchSize == 0 {
		batchSize = 100000
	}

	switch config.Type {
	case "", "sqlite":
		return newSQLiteWriter(config.Path, batchSize)
	case "clickhouse":
		if config.ConnStr != "" {
			config = parseClickHouseConnStr(config.ConnStr, config)
		}

		return NewClickHouseRecorder(
			config.Host, config.Port,
			config.Database, config.Username, config.Password,
			batchSize)
	default:
		panic(fmt.Sprintf("unknown recorder type %s", config.Type))
	}
}

func parseClickHouseConnStr(
	connStr string,
	config RecorderConfig,
) RecorderConfig {
	u, err := url.Parse(connStr)
	if err != nil {
		panic(fmt.Errorf("invalid ClickHouse connection string: %w", err))
	}

	config.Host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			panic(fmt.Errorf("invalid ClickHouse port: %w", err))
		}
		config.Port = port
	}

	config.Database = strings.TrimPrefix(u.Path, "/")
	config.Username = u.Query().Get("username")
	config.Password = u.Query().Get("password")

	return config
}

// clickHouseTable buffers entries for one table together with the column
// layout computed when the table was created.
type clickHouseTable struct {
	schema      tableSchema
	columnTypes []string
	entries     []any
}

// ClickHouseRecorder streams recorded data into a ClickHouse server. It
// batches entries like the SQLite writer and sends each batch through the
// native protocol.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*clickHouseTable
	entryCount int

	execRecorder *execRecorder
}

// NewClickHouseRecorder creates a DataRecorder that writes into the given
// ClickHouse database.
func NewClickHouseRecorder(
	host string,
	port int,
	database string,
	username string,
	password string,
	batchSize int,
) DataRecorder {
	if batchSize == 0 {
		batchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	recorder := &ClickHouseRecorder{
		conn:      conn,
		batchSize: batchSize,
		tables:    make(map[string]*clickHouseTable),
	}

	atexit.Register(func() { recorder.Flush() })

	recorder.execRecorder = newExecRecorderWithWriter(recorder)
	recorder.execRecorder.Start()

	return recorder
}

// CreateTable creates a MergeTree table shaped like the sample entry.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema := schemaOf(sampleEntry)

	columnTypes := make([]string, len(schema.columnNames))
	columnDefs := make([]string, len(schema.columnNames))
	for i, fieldIndex := range schema.fieldIndices {
		kind := schema.structType.Field(fieldIndex).Type.Kind()
		columnTypes[i] = clickHouseTypeForKind(kind)
		columnDefs[i] = schema.columnNames[i] + " " + columnTypes[i]
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		) ENGINE = MergeTree()
		ORDER BY %s
	`, tableName, strings.Join(columnDefs, ",\n\t\t\t"), orderByClause(schema))

	err := r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &clickHouseTable{
		schema:      schema,
		columnTypes: columnTypes,
	}
}

// orderByClause sorts the table by its indexed columns. A table without
// indexed columns stays unsorted.
func orderByClause(schema tableSchema) string {
	keys := append([]string{}, schema.uniqueCols...)
	keys = append(keys, schema.indexColumns...)

	if len(keys) == 0 {
		return "tuple()"
	}

	return "(" + strings.Join(keys, ", ") + ")"
}

func clickHouseTypeForKind(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64:
		return "Int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return "UInt64"
	case reflect.Float32, reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("unsupported column kind %s", kind))
	}
}

// InsertData buffers one entry to be written into an existing table.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	table, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)
	r.entryCount++

	if r.entryCount >= r.batchSize {
		r.mu.Unlock()
		r.Flush()
		return
	}

	r.mu.Unlock()
}

// ListTables returns all table names.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for name := range r.tables {
		tables = append(tables, name)
	}

	return tables
}

// Flush sends all batched entries to the server.
func (r *ClickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for tableName, table := range r.tables {
		if len(table.entries) == 0 {
			continue
		}

		r.flushTable(ctx, tableName, table)
	}

	r.entryCount = 0
}

func (r *ClickHouseRecorder) flushTable(
	ctx context.Context,
	tableName string,
	table *clickHouseTable,
) {
	batch, err := r.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s", tableName))
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w",
			tableName, err))
	}

	for _, entry := range table.entries {
		err = batch.Append(clickHouseValues(table.schema, entry)...)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	table.entries = table.entries[:0]
}

// clickHouseValues widens entry fields to the exact Go types that the column
// types declared in CreateTable expect.
func clickHouseValues(schema tableSchema, entry any) []any {
	v := reflect.ValueOf(entry)
	if v.Type() != schema.structType {
		panic(fmt.Sprintf("entry type %T does not match table type %s",
			entry, schema.structType))
	}

	values := make([]any, 0, len(schema.fieldIndices))
	for _, i := range schema.fieldIndices {
		field := v.Field(i)

		switch field.Kind() {
		case reflect.Bool:
			values = append(values, field.Bool())
		case reflect.Int, reflect.Int8, reflect.Int16,
			reflect.Int32, reflect.Int64:
			values = append(values, field.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16,
			reflect.Uint32, reflect.Uint64:
			values = append(values, field.Uint())
		case reflect.Float32, reflect.Float64:
			values = append(values, field.Float())
		default:
			values = append(values, field.String())
		}
	}

	return values
}

// Close flushes the remaining entries and closes the connection.
func (r *ClickHouseRecorder) Close() error {
	if r.execRecorder != nil {
		r.execRecorder.End()
	}

	r.Flush()

	err := r.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to close ClickHouse connection: %w", err)
	}

	return nil
}
