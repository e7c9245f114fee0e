package crawler

import (
	"fmt"
	"time"
)

// ExportFormat is the file format requested from GET /results/export.
type ExportFormat string

// Export formats accepted by the backend.
const (
	ExportJSON  ExportFormat = "json"
	ExportCSV   ExportFormat = "csv"
	ExportExcel ExportFormat = "excel"
)

// ParseExportFormat validates s.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case ExportJSON, ExportCSV, ExportExcel:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Extension is the file extension used when saving the export.
func (f ExportFormat) Extension() string {
	if f == ExportExcel {
		return "xlsx"
	}
	return string(f)
}

// ExportFilename returns results_<unixms>.<ext> for the given instant.
func ExportFilename(f ExportFormat, at time.Time) string {
	return fmt.Sprintf("results_%d.%s", at.UnixMilli(), f.Extension())
}
