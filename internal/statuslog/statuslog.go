// Package statuslog appends one timestamped availability flag per check to a
// flat text file. Lines are never rewritten; the file grows until an external
// tool trims it.
package statuslog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Writer struct {
	path string
	f    *os.File
}

func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{path: path, f: f}, nil
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Append(at time.Time, available bool) error {
	_, err := fmt.Fprintf(w.f, "%s %t\n", at.Format("2006-01-02 15:04:05"), available)
	return err
}

func (w *Writer) Close() error {
	return w.f.Close()
}
