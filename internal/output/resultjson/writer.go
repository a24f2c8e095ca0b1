package resultjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cryptoscan/internal/logger"
	"cryptoscan/pkg/models"
)

// Writer outputs scan results to a JSON lines file.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewWriter creates a JSONL writer for scan results.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	logger.Infof("Result JSON writer initialized: %s", path)
	return &Writer{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// WriteResult writes one scan result.
func (w *Writer) WriteResult(result *models.ScanResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
