package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"schedex/internal/config"
	"schedex/internal/domain"
	"schedex/internal/pipeline"
	"schedex/internal/port"
	"schedex/internal/source/excel"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	reportURLExpiry = 72 * time.Hour
)

// allowedExtensions are the workbook formats the run API accepts.
var allowedExtensions = map[string]bool{
	"xlsx": true,
	"xlsm": true,
}

// RunInput is the DTO for a workbook submitted for extraction.
type RunInput struct {
	FileName string
	Body     io.Reader
	Size     int64
}

// Runner executes one pipeline run over a table source.
type Runner interface {
	Run(ctx context.Context, src port.TableSource) *pipeline.Result
}

// RunService defines the run management contract.
type RunService interface {
	Submit(ctx context.Context, input RunInput) (*domain.ProcessingReport, error)
	GetByID(ctx context.Context, runID string) (*domain.ProcessingReport, error)
	List(ctx context.Context, offset, limit int) ([]domain.RunSummary, int, error)
}

type runService struct {
	runner   Runner
	reports  port.ReportRepository
	storage  port.ObjectStorage
	notifier port.RunNotifier
	cfg      *config.S3Config
}

// NewRunService creates a new RunService. storage and notifier may be nil.
func NewRunService(
	runner Runner,
	reports port.ReportRepository,
	storage port.ObjectStorage,
	notifier port.RunNotifier,
	cfg *config.S3Config,
) RunService {
	return &runService{
		runner:   runner,
		reports:  reports,
		storage:  storage,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (s *runService) Submit(ctx context.Context, input RunInput) (*domain.ProcessingReport, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.FileName), "."))
	if !allowedExtensions[ext] {
		return nil, domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if input.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(input.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	archiveKey := ""
	if s.storage != nil {
		archiveKey = fmt.Sprintf("workbooks/%s/%s", uuid.New(), filepath.Base(input.FileName))
		log.Printf("runService.Submit: archiving workbook %s (%d bytes) to %s", input.FileName, len(data), archiveKey)
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Key:         archiveKey,
			Body:        bytes.NewReader(data),
			ContentType: xlsxContentType,
			Size:        int64(len(data)),
		})
		if err != nil {
			log.Printf("runService.Submit: workbook upload failed for %s: %v", input.FileName, err)
			return nil, domain.ErrUploadFailed
		}
	}

	res := s.runner.Run(ctx, excel.FromBytes(filepath.Base(input.FileName), data))
	report := res.Report
	if res.Err != nil {
		log.Printf("runService.Submit: run %s failed: %v", report.RunID, res.Err)
	}

	if err := s.reports.Save(ctx, report, archiveKey); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	reportURL := s.archiveReport(ctx, report)

	if report.RequiresReview && s.notifier != nil {
		if err := s.notifier.NotifyReviewRequired(ctx, report, reportURL); err != nil {
			log.Printf("runService.Submit: review notification failed for run %s: %v", report.RunID, err)
		}
	}

	log.Printf("runService.Submit: run %s finished with status %s, confidence %.2f, %d components",
		report.RunID, report.Status, report.OverallConfidence, report.TotalComponents)
	return report, nil
}

// archiveReport stores the report JSON next to the workbook and returns a
// presigned link to it. Archive failures are logged and leave the link empty.
func (s *runService) archiveReport(ctx context.Context, report *domain.ProcessingReport) string {
	if s.storage == nil {
		return ""
	}
	body, err := json.Marshal(report)
	if err != nil {
		log.Printf("runService.archiveReport: marshaling run %s: %v", report.RunID, err)
		return ""
	}
	key := reportKey(report.RunID)
	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	}); err != nil {
		log.Printf("runService.archiveReport: upload failed for run %s: %v", report.RunID, err)
		return ""
	}
	url, err := s.storage.GetPresignedURL(ctx, key, reportURLExpiry)
	if err != nil {
		log.Printf("runService.archiveReport: presigning %s: %v", key, err)
		return ""
	}
	return url
}

// GetByID reads the stored report. A run missing from the repository is
// looked up in the report archive, which outlives the in-memory store.
func (s *runService) GetByID(ctx context.Context, runID string) (*domain.ProcessingReport, error) {
	report, err := s.reports.GetByID(ctx, runID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) || s.storage == nil {
		return report, err
	}
	if _, perr := uuid.Parse(runID); perr != nil {
		return nil, err
	}
	body, derr := s.storage.Download(ctx, reportKey(runID))
	if derr != nil {
		log.Printf("runService.GetByID: archive lookup for run %s failed: %v", runID, derr)
		return nil, err
	}
	archived := &domain.ProcessingReport{}
	if jerr := json.Unmarshal(body, archived); jerr != nil {
		return nil, fmt.Errorf("decoding archived report %s: %w", runID, jerr)
	}
	return archived, nil
}

func reportKey(runID string) string {
	return fmt.Sprintf("reports/%s.json", runID)
}

func (s *runService) List(ctx context.Context, offset, limit int) ([]domain.RunSummary, int, error) {
	return s.reports.List(ctx, offset, limit)
}
