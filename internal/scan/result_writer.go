package scan

import "cryptoscan/pkg/models"

// ResultWriter writes finished scan results.
type ResultWriter interface {
	WriteResult(result *models.ScanResult) error
	Close() error
}
