// Package datasource identifies graph sources on disk and reads the SQLite
// flavour. JSON decoding lives in pkg/loader, which dispatches here.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a force-graph style JSON document
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a SQLite database with nodes and edges tables
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeUnknown is anything else
	SourceTypeUnknown SourceType = "unknown"
)

// DataSource describes a graph file.
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	return fmt.Sprintf("%s (%s, mod=%s, %d bytes)",
		s.Path, s.Type, s.ModTime.Format(time.RFC3339), s.Size)
}

// TypeForPath classifies a path by extension.
func TypeForPath(path string) SourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".graph":
		return SourceTypeJSON
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite
	default:
		return SourceTypeUnknown
	}
}

// Detect stats path and classifies it.
func Detect(path string) (DataSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot stat graph source: %w", err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("graph source %s is a directory", abs)
	}
	return DataSource{
		Type:    TypeForPath(abs),
		Path:    abs,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
