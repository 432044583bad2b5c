package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gema-quiz/internal/models"
)

var (
	// ErrQuestionSourceUnavailable indicates the question workbook is missing or unreadable.
	ErrQuestionSourceUnavailable = errors.New("question source unavailable")
	// ErrQuestionSetNotFound indicates the requested sheet does not exist or is not a quiz sheet.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrInvalidWorkbook indicates an uploaded file could not be opened as a workbook.
	ErrInvalidWorkbook = errors.New("file is not a readable workbook")
)

const templateSheet = "TEST1"

// QuestionSource reads quizzes from the on-disk workbook. Every call re-reads the file.
type QuestionSource interface {
	ListSets(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (models.QuestionSet, error)
	Summaries(ctx context.Context) ([]models.QuestionSetSummary, error)
	Replace(ctx context.Context, payload io.Reader) ([]models.QuestionSetSummary, error)
	WriteTemplate(w io.Writer) error
}

type workbookSource struct {
	path string
}

// NewWorkbookSource constructs a question source backed by the workbook at path.
func NewWorkbookSource(path string) QuestionSource {
	return &workbookSource{path: path}
}

func (s *workbookSource) open(ctx context.Context) (*excelize.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionSourceUnavailable, err)
	}
	return f, nil
}

func (s *workbookSource) ListSets(ctx context.Context) ([]string, error) {
	f, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return questionSetNames(f), nil
}

func (s *workbookSource) Load(ctx context.Context, name string) (models.QuestionSet, error) {
	f, err := s.open(ctx)
	if err != nil {
		return models.QuestionSet{}, err
	}
	defer f.Close()

	return parseQuestionSet(f, name)
}

func (s *workbookSource) Summaries(ctx context.Context) ([]models.QuestionSetSummary, error) {
	f, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return summarize(f)
}

// Replace validates that payload opens as a workbook, then swaps it in for the current file.
func (s *workbookSource) Replace(ctx context.Context, payload io.Reader) ([]models.QuestionSetSummary, error) {
	data, err := io.ReadAll(payload)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	summaries, err := summarize(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".questions-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("write temp workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("replace workbook: %w", err)
	}

	return summaries, nil
}

// WriteTemplate writes an example workbook with the expected sheet and column layout.
func (s *workbookSource) WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}
	cells := []struct {
		cell  string
		value string
	}{
		{"A1", "Question"},
		{"B1", "Answer"},
		{"A2", "2+2?"},
		{"B2", "4"},
		{"A3", "Capital of France?"},
		{"B3", "Paris"},
	}
	for _, c := range cells {
		if err := f.SetCellValue(templateSheet, c.cell, c.value); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func questionSetNames(f *excelize.File) []string {
	names := make([]string, 0)
	for _, sheet := range f.GetSheetList() {
		if models.IsQuestionSetName(sheet) {
			names = append(names, sheet)
		}
	}
	return names
}

func summarize(f *excelize.File) ([]models.QuestionSetSummary, error) {
	names := questionSetNames(f)
	summaries := make([]models.QuestionSetSummary, 0, len(names))
	for _, name := range names {
		set, err := parseQuestionSet(f, name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, set.Summary())
	}
	return summaries, nil
}

func parseQuestionSet(f *excelize.File, name string) (models.QuestionSet, error) {
	if !models.IsQuestionSetName(name) || !hasSheet(f, name) {
		return models.QuestionSet{}, ErrQuestionSetNotFound
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return models.QuestionSet{}, fmt.Errorf("%w: %v", ErrQuestionSourceUnavailable, err)
	}

	set := models.QuestionSet{Name: name, Questions: make([]models.Question, 0, len(rows))}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		// header row
		if i == 0 {
			continue
		}
		prompt := strings.TrimSpace(cellAt(row, 0))
		answer := strings.TrimSpace(cellAt(row, 1))
		if prompt == "" || answer == "" {
			if len(row) > 0 {
				set.Skipped++
			}
			continue
		}
		if _, dup := seen[prompt]; dup {
			set.Duplicates++
			continue
		}
		seen[prompt] = struct{}{}
		set.Questions = append(set.Questions, models.Question{Prompt: prompt, Answer: answer})
	}

	return set, nil
}

func hasSheet(f *excelize.File, name string) bool {
	for _, sheet := range f.GetSheetList() {
		if sheet == name {
			return true
		}
	}
	return false
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
