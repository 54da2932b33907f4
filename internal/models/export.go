package models

import "time"

// ExportFormat enumerates supported scoreboard export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportResult points at a generated file through a signed download URL.
type ExportResult struct {
	ID          string       `json:"id"`
	Format      ExportFormat `json:"format"`
	Rows        int          `json:"rows"`
	DownloadURL string       `json:"download_url"`
	ExpiresAt   time.Time    `json:"expires_at"`
}
