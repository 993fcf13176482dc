package tabular

// ReaderConfig holds configuration for tabular data sources
type ReaderConfig struct {
	FilePath string `json:"file_path"`
	Sheet    string `json:"sheet"` // xlsx only; empty means the first sheet
}

// DefaultReaderConfig returns sensible defaults for reading a file
func DefaultReaderConfig(path string) ReaderConfig {
	return ReaderConfig{FilePath: path}
}
