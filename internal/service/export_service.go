package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/export"
	"github.com/noah-isme/course-enroll-api/pkg/jobs"
	"github.com/noah-isme/course-enroll-api/pkg/storage"
)

type pendingSignupLister interface {
	ListUnconfirmed(ctx context.Context) ([]models.SignupRequestDetail, error)
}

type rosterReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ListEnrolledUsers(ctx context.Context, courseID string) ([]models.User, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Workers   int
}

// ExportService renders admin reports asynchronously. Jobs are tracked in
// memory and processed by a worker pool; completed files are fetched with a
// signed token so the download endpoint needs no session.
type ExportService struct {
	signups pendingSignupLister
	roster  rosterReader
	storage exportFileStorage
	csv     tableRenderer
	pdf     tableRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportServiceConfig

	queue *jobs.Queue

	mu  sync.RWMutex
	reg map[string]*models.ReportJob
}

// NewExportService constructs an ExportService and its worker queue. Call
// Start before submitting jobs and Stop on shutdown.
func NewExportService(signups pendingSignupLister, roster rosterReader, fileStore exportFileStorage, signer *storage.SignedURLSigner, cfg ExportServiceConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	s := &ExportService{
		signups: signups,
		roster:  roster,
		storage: fileStore,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		reg:     make(map[string]*models.ReportJob),
	}
	s.queue = jobs.NewQueue("report-export", s.process, jobs.Config{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Submit queues a new export job and returns its tracking record.
func (s *ExportService) Submit(ctx context.Context, reportType models.ReportType, format models.ReportFormat, courseID, requestedBy string) (*models.ReportJob, error) {
	switch reportType {
	case models.ReportTypePendingSignups:
	case models.ReportTypeEnrollmentRoster:
		if courseID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required for roster reports")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", reportType))
	}
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	job := &models.ReportJob{
		ID:          uuid.NewString(),
		Type:        reportType,
		Format:      format,
		CourseID:    courseID,
		RequestedBy: requestedBy,
		Status:      models.ReportStatusQueued,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.reg[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Task{ID: job.ID, Kind: string(reportType)}); err != nil {
		s.setFailed(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	return s.snapshot(job.ID), nil
}

// Get returns the current state of an export job.
func (s *ExportService) Get(jobID string) (*models.ReportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Download validates a signed token and opens the underlying file.
func (s *ExportService) Download(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, nil
}

// Cleanup removes expired export files.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) process(ctx context.Context, task jobs.Task) error {
	job := s.snapshot(task.ID)
	if job == nil {
		return fmt.Errorf("unknown export job %s", task.ID)
	}
	s.setStatus(job.ID, models.ReportStatusRunning)

	table, err := s.buildTable(ctx, job)
	if err != nil {
		s.setFailed(job.ID, err)
		return err
	}

	var payload []byte
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(table)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table)
	}
	if err != nil {
		s.setFailed(job.ID, err)
		return err
	}

	filename := fmt.Sprintf("%s-%s.%s", job.Type, job.ID, job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.setFailed(job.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.setFailed(job.ID, err)
		return err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	resultURL := fmt.Sprintf("%s/reports/download/%s", prefix, token)

	s.mu.Lock()
	if rec, ok := s.reg[job.ID]; ok {
		now := time.Now().UTC()
		rec.Status = models.ReportStatusCompleted
		rec.CompletedAt = &now
		rec.ResultURL = resultURL
		rec.ExpiresAt = &expiresAt
	}
	s.mu.Unlock()

	s.logger.Info("export completed",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("format", string(job.Format)),
	)
	return nil
}

func (s *ExportService) buildTable(ctx context.Context, job *models.ReportJob) (export.Table, error) {
	switch job.Type {
	case models.ReportTypePendingSignups:
		return s.buildPendingSignupsTable(ctx)
	case models.ReportTypeEnrollmentRoster:
		return s.buildRosterTable(ctx, job.CourseID)
	default:
		return export.Table{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildPendingSignupsTable(ctx context.Context) (export.Table, error) {
	pending, err := s.signups.ListUnconfirmed(ctx)
	if err != nil {
		return export.Table{}, err
	}

	table := export.Table{
		Title:   "Pending Signup Requests",
		Columns: []string{"Tracking Code", "Full Name", "Email", "Course", "Citizenship", "Requested At"},
	}
	for _, request := range pending {
		table.Rows = append(table.Rows, []string{
			request.TrackingCode,
			request.UserFullName,
			request.UserEmail,
			request.CourseName,
			request.Citizenship,
			request.MadeAt.Format(time.RFC3339),
		})
	}
	return table, nil
}

func (s *ExportService) buildRosterTable(ctx context.Context, courseID string) (export.Table, error) {
	course, err := s.roster.FindByID(ctx, courseID)
	if err != nil {
		return export.Table{}, err
	}
	users, err := s.roster.ListEnrolledUsers(ctx, courseID)
	if err != nil {
		return export.Table{}, err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Enrollment Roster: %s", course.Name),
		Columns: []string{"Full Name", "Email", "Role", "Enrolled Since"},
	}
	for _, user := range users {
		table.Rows = append(table.Rows, []string{
			user.FullName,
			user.Email,
			string(user.Role),
			user.CreatedAt.Format("2006-01-02"),
		})
	}
	return table, nil
}

func (s *ExportService) snapshot(jobID string) *models.ReportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.reg[jobID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func (s *ExportService) setStatus(jobID string, status models.ReportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.reg[jobID]; ok {
		job.Status = status
	}
}

func (s *ExportService) setFailed(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.reg[jobID]; ok {
		now := time.Now().UTC()
		job.Status = models.ReportStatusFailed
		job.CompletedAt = &now
		job.Error = err.Error()
	}
}
