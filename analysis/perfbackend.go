package analysis

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/membus/datarecording"
)

// PerfAnalyzerBackend is the interface that provides the service that can
// record performance data entries.
type PerfAnalyzerBackend interface {
	AddDataEntry(entry PerfAnalyzerEntry)
	Flush()
}

// CSVBackend is a PerfAnalyzerBackend that writes data entries to a CSV
// file.
type CSVBackend struct {
	dbFile    *os.File
	csvWriter *csv.Writer
}

// NewCSVPerfAnalyzerBackend creates a new CSVBackend writing to the file
// with the given name plus a ".csv" extension.
func NewCSVPerfAnalyzerBackend(dbFilename string) *CSVBackend {
	p := &CSVBackend{}

	var err error
	p.dbFile, err = os.Create(dbFilename + ".csv")
	if err != nil {
		panic(err)
	}

	p.csvWriter = csv.NewWriter(p.dbFile)

	header := []string{
		"Start", "End", "Where", "WhereRemote",
		"What", "EntryType", "Value", "Unit",
	}
	if err := p.csvWriter.Write(header); err != nil {
		panic(err)
	}

	atexit.Register(func() { p.Flush() })

	return p
}

// AddDataEntry adds a data entry to the CSV file.
func (p *CSVBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	err := p.csvWriter.Write([]string{
		fmt.Sprintf("%.10f", entry.Start),
		fmt.Sprintf("%.10f", entry.End),
		entry.Where,
		string(entry.WhereRemote),
		entry.What,
		entry.EntryType,
		fmt.Sprintf("%.10f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Flush flushes the CSV writer.
func (p *CSVBackend) Flush() {
	p.csvWriter.Flush()
}

// RecorderBackend is a PerfAnalyzerBackend that writes data entries into a
// "perf" table of a data recorder.
type RecorderBackend struct {
	recorder datarecording.DataRecorder
}

// NewRecorderBackend creates a backend writing through the given recorder.
func NewRecorderBackend(dr datarecording.DataRecorder) *RecorderBackend {
	p := &RecorderBackend{recorder: dr}

	dr.CreateTable("perf", PerfAnalyzerEntry{})

	return p
}

// NewDBPerfAnalyzerBackend creates a backend with its own SQLite database
// file named after the given name plus a ".sqlite3" extension.
func NewDBPerfAnalyzerBackend(dbFilename string) *RecorderBackend {
	return NewRecorderBackend(datarecording.NewDataRecorder(dbFilename))
}

// AddDataEntry adds a data entry to the database.
func (p *RecorderBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	p.recorder.InsertData("perf", entry)
}

// Flush writes the buffered entries into the database.
func (p *RecorderBackend) Flush() {
	p.recorder.Flush()
}
