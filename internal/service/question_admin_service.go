package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-quiz/internal/dto"
	"github.com/noah-isme/gema-quiz/internal/models"
	"github.com/noah-isme/gema-quiz/internal/observability"
	"github.com/noah-isme/gema-quiz/internal/repository"
)

var (
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("no file part")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the file is not a spreadsheet.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates the archive structure failed validation.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrInvalidWorkbook indicates the file could not be read as a question workbook.
	ErrInvalidWorkbook = errors.New("file is not a readable question workbook")
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QuestionAdminService replaces and describes the question workbook.
type QuestionAdminService interface {
	Overview(ctx context.Context) ([]models.QuestionSetSummary, error)
	Upload(ctx context.Context, file *multipart.FileHeader) (dto.UploadReport, error)
	Template(w io.Writer) error
}

type questionAdminService struct {
	source  repository.QuestionSource
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewQuestionAdminService constructs the admin service for the question workbook.
func NewQuestionAdminService(source repository.QuestionSource, maxSizeMB int, logger zerolog.Logger) QuestionAdminService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &questionAdminService{
		source:  source,
		logger:  logger.With().Str("component", "question_admin_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/gema-quiz/internal/service/questions"),
	}
}

// Overview summarises the sets in the current workbook. A missing workbook yields an empty overview.
func (s *questionAdminService) Overview(ctx context.Context) ([]models.QuestionSetSummary, error) {
	summaries, err := s.source.Summaries(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionSourceUnavailable) {
			s.logger.Warn().Err(err).Msg("question workbook unavailable")
			return []models.QuestionSetSummary{}, nil
		}
		return nil, err
	}
	return summaries, nil
}

func (s *questionAdminService) Upload(ctx context.Context, file *multipart.FileHeader) (dto.UploadReport, error) {
	ctx, span := s.tracer.Start(ctx, "questions.upload")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))
	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	fail := func(result string, err error) (dto.UploadReport, error) {
		observability.QuestionUploads().WithLabelValues(result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		s.logger.Warn().Err(err).Str("result", result).Msg("question upload rejected")
		return dto.UploadReport{}, err
	}

	if file == nil || strings.TrimSpace(file.Filename) == "" {
		return fail("missing", ErrUploadMissing)
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		return fail("read", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return fail("read", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
	if !isSpreadsheetType(detected) {
		return fail("type", ErrUploadTypeNotAllowed)
	}

	if err := s.scan(buf.Bytes()); err != nil {
		return fail("scan", err)
	}

	sets, err := s.source.Replace(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidWorkbook) {
			return fail("invalid", fmt.Errorf("%w: %v", ErrInvalidWorkbook, err))
		}
		return fail("storage", err)
	}

	checksum := sha256.Sum256(buf.Bytes())
	report := dto.UploadReport{
		FileName:  sanitizeFileName(file.Filename),
		SizeBytes: int64(buf.Len()),
		MimeType:  xlsxMime,
		Checksum:  hex.EncodeToString(checksum[:]),
		Sets:      sets,
	}

	observability.QuestionUploads().WithLabelValues("replaced").Inc()
	span.SetAttributes(
		attribute.Int("upload.sets", len(sets)),
		attribute.Int("upload.skipped_rows", report.SkippedRows()),
	)
	span.SetStatus(codes.Ok, "replaced")

	s.logger.Info().
		Str("file", report.FileName).
		Int64("size", report.SizeBytes).
		Int("sets", len(sets)).
		Int("skipped_rows", report.SkippedRows()).
		Msg("question workbook replaced")

	return report, nil
}

func (s *questionAdminService) Template(w io.Writer) error {
	return s.source.WriteTemplate(w)
}

// scan rejects archives whose declared uncompressed size is far beyond the upload limit.
func (s *questionAdminService) scan(payload []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

// isSpreadsheetType accepts xlsx and plain zip containers; excelize decides the rest.
func isSpreadsheetType(m *mimetype.MIME) bool {
	for current := m; current != nil; current = current.Parent() {
		if current.Is(xlsxMime) || current.Is("application/zip") {
			return true
		}
	}
	return false
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "questions"
	}
	return base + ".xlsx"
}
