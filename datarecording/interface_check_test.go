package datarecording

// Both backends must implement the DataRecorder interface.

var _ DataRecorder = (*ClickHouseRecorder)(nil)
var _ DataRecorder = (*sqliteWriter)(nil)
