package tabular

// RawTable is a sheet or CSV file as trimmed strings, header row separated
type RawTable struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, padded to len(Headers)
	Source  string     // File path the rows came from
}

// ColumnIndex returns the position of a header
func (t *RawTable) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of one column's cells
func (t *RawTable) Column(name string) ([]string, bool) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}
