package models

import "time"

// ReportType selects the dataset behind an export.
type ReportType string

const (
	ReportTypePendingSignups   ReportType = "pending_signups"
	ReportTypeEnrollmentRoster ReportType = "enrollment_roster"
)

// ReportFormat selects the rendered file format.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus tracks an export job through the queue.
type ReportStatus string

const (
	ReportStatusQueued    ReportStatus = "queued"
	ReportStatusRunning   ReportStatus = "running"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// ReportJob is an asynchronous export request. Jobs live in memory; a restart
// drops queued work and the requester simply resubmits.
type ReportJob struct {
	ID          string       `json:"id"`
	Type        ReportType   `json:"type"`
	Format      ReportFormat `json:"format"`
	CourseID    string       `json:"course_id,omitempty"`
	RequestedBy string       `json:"requested_by"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	ResultURL   string       `json:"result_url,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}
