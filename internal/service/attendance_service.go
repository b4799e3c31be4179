package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/retzius/attendance-api/internal/models"
	"github.com/retzius/attendance-api/internal/repository"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
	"github.com/retzius/attendance-api/pkg/export"
)

type attendanceRepository interface {
	ExistsForSubjectDate(ctx context.Context, subjectID string, date time.Time) (bool, error)
	InsertBatch(ctx context.Context, subjectID string, date time.Time, rows []models.Attendance) ([]models.Attendance, error)
	History(ctx context.Context, subjectID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type pairResolver interface {
	FindByPair(ctx context.Context, studentID, subjectID string) (*models.Enrollment, error)
}

type attendanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateAttendance(ctx context.Context, subjectID string) error
}

type attendanceMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	RecordAttendanceBatch()
}

// AttendanceService records and queries per-subject attendance. A subject
// accepts one batch per calendar date; the date gate lives inside the
// repository transaction so concurrent submissions cannot both land.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments pairResolver
	subjects    subjectGuard
	cache       attendanceCache
	cacheTTL    time.Duration
	metrics     attendanceMetrics
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService. cache and metrics may
// be nil; the service then reads straight from the database unobserved.
func NewAttendanceService(repo attendanceRepository, enrollments pairResolver, subjects subjectGuard, cache attendanceCache, cacheTTL time.Duration, metrics attendanceMetrics, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        repo,
		enrollments: enrollments,
		subjects:    subjects,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validator.New(),
		logger:      logger,
	}
}

// RecordBatch stores one day's marks for a subject. Entries naming students
// who are not enrolled in the subject are skipped rather than failing the
// batch; of the rows that remain, either all commit or none do.
func (s *AttendanceService) RecordBatch(ctx context.Context, subjectID string, req *models.RecordAttendanceRequest, claims *models.JWTClaims) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	if _, err := s.subjects.FindOwned(ctx, subjectID, claims.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	var date time.Time
	if req.Date == "" {
		now := time.Now().UTC()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD form")
		}
	}

	// Cheap pre-check; the in-transaction gate inside InsertBatch stays
	// authoritative for concurrent batches.
	taken, err := s.repo.ExistsForSubjectDate(ctx, subjectID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance date")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this date")
	}

	rows := make([]models.Attendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		enrollment, err := s.enrollments.FindByPair(ctx, entry.StudentID, subjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Debug("skipping mark for unenrolled student",
					zap.String("subject_id", subjectID),
					zap.String("student_id", entry.StudentID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment")
		}
		rows = append(rows, models.Attendance{
			EnrollmentID: enrollment.ID,
			Date:         date,
			Present:      entry.Present,
		})
	}

	saved, err := s.repo.InsertBatch(ctx, subjectID, date, rows)
	if err != nil {
		if errors.Is(err, repository.ErrBatchExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.invalidate(ctx, subjectID)
	if s.metrics != nil {
		s.metrics.RecordAttendanceBatch()
	}
	return saved, nil
}

// Query returns the attendance history of a subject, bounded by optional
// inclusive dates and served from the cache when possible.
func (s *AttendanceService) Query(ctx context.Context, subjectID string, filter models.AttendanceFilter, claims *models.JWTClaims) ([]models.AttendanceRecord, error) {
	if _, err := s.subjects.FindOwned(ctx, subjectID, claims.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date precedes from date")
	}

	key := repository.AttendanceHistoryKey(subjectID, filter.From, filter.To)
	if s.cache != nil {
		var cached []models.AttendanceRecord
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("attendance cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	records, err := s.repo.History(ctx, subjectID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query attendance")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, records, s.cacheTTL); err != nil {
			s.logger.Warn("attendance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return records, nil
}

// Export renders the attendance history as a downloadable register.
// Supported formats are "csv" and "pdf".
func (s *AttendanceService) Export(ctx context.Context, subjectID, format string, filter models.AttendanceFilter, claims *models.JWTClaims) ([]byte, string, error) {
	records, err := s.Query(ctx, subjectID, filter, claims)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Headers: []string{"Date", "Last Name", "First Name", "Present"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, rec := range records {
		present := "no"
		if rec.Present {
			present = "yes"
		}
		data.Rows = append(data.Rows, []string{
			rec.Date.Format("2006-01-02"),
			rec.LastName,
			rec.FirstName,
			present,
		})
	}

	switch format {
	case "csv":
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(data, "Attendance Register")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *AttendanceService) invalidate(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAttendance(ctx, subjectID); err != nil {
		s.logger.Warn("failed to invalidate attendance cache", zap.String("subject_id", subjectID), zap.Error(err))
	}
}
