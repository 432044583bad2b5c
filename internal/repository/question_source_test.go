package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gema-quiz/internal/models"
)

// writeWorkbook saves a workbook whose sheets hold the given rows (header row included).
func writeWorkbook(t *testing.T, path string, sheets map[string][][]string, order ...string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				if value == "" {
					continue
				}
				require.NoError(t, f.SetCellValue(name, cell, value))
			}
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func sampleWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"TEST1": {
			{"Question", "Answer"},
			{"2+2?", "4"},
			{"Capital of France?", "Paris"},
		},
		"Notes": {
			{"ignored", "sheet"},
		},
		"TEST2": {
			{"Question", "Answer"},
			{"Colour of the sky?", "Blue"},
			{"Missing answer", ""},
			{"", "Missing prompt"},
			{"Colour of the sky?", "Grey"},
			{"Largest planet?", "Jupiter"},
		},
	}, "TEST1", "Notes", "TEST2")
	return path
}

func TestWorkbookSourceListSets(t *testing.T) {
	src := NewWorkbookSource(sampleWorkbook(t))

	names, err := src.ListSets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"TEST1", "TEST2"}, names)
}

func TestWorkbookSourceLoad(t *testing.T) {
	src := NewWorkbookSource(sampleWorkbook(t))

	set, err := src.Load(context.Background(), "TEST1")
	require.NoError(t, err)
	require.Equal(t, []models.Question{
		{Prompt: "2+2?", Answer: "4"},
		{Prompt: "Capital of France?", Answer: "Paris"},
	}, set.Questions)
	require.Zero(t, set.Skipped)
}

func TestWorkbookSourceSkipsMalformedAndDuplicateRows(t *testing.T) {
	src := NewWorkbookSource(sampleWorkbook(t))

	set, err := src.Load(context.Background(), "TEST2")
	require.NoError(t, err)
	require.Equal(t, []models.Question{
		{Prompt: "Colour of the sky?", Answer: "Blue"},
		{Prompt: "Largest planet?", Answer: "Jupiter"},
	}, set.Questions)
	require.Equal(t, 2, set.Skipped)
	require.Equal(t, 1, set.Duplicates)
}

func TestWorkbookSourceUnknownSet(t *testing.T) {
	src := NewWorkbookSource(sampleWorkbook(t))

	_, err := src.Load(context.Background(), "TEST9")
	require.ErrorIs(t, err, ErrQuestionSetNotFound)

	_, err = src.Load(context.Background(), "Notes")
	require.ErrorIs(t, err, ErrQuestionSetNotFound)
}

func TestWorkbookSourceMissingFile(t *testing.T) {
	src := NewWorkbookSource(filepath.Join(t.TempDir(), "absent.xlsx"))

	_, err := src.ListSets(context.Background())
	require.ErrorIs(t, err, ErrQuestionSourceUnavailable)

	_, err = src.Load(context.Background(), "TEST1")
	require.ErrorIs(t, err, ErrQuestionSourceUnavailable)
}

func TestWorkbookSourceReplace(t *testing.T) {
	path := sampleWorkbook(t)
	src := NewWorkbookSource(path)

	replacement := filepath.Join(t.TempDir(), "upload.xlsx")
	writeWorkbook(t, replacement, map[string][][]string{
		"TEST_NEW": {
			{"Question", "Answer"},
			{"1+1?", "2"},
			{"half row", ""},
		},
	}, "TEST_NEW")
	payload, err := os.ReadFile(replacement)
	require.NoError(t, err)

	summaries, err := src.Replace(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, []models.QuestionSetSummary{{Name: "TEST_NEW", Questions: 1, Skipped: 1}}, summaries)

	names, err := src.ListSets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"TEST_NEW"}, names)
}

func TestWorkbookSourceReplaceRejectsGarbage(t *testing.T) {
	path := sampleWorkbook(t)
	src := NewWorkbookSource(path)

	_, err := src.Replace(context.Background(), bytes.NewReader([]byte("not a workbook")))
	require.ErrorIs(t, err, ErrInvalidWorkbook)

	names, err := src.ListSets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"TEST1", "TEST2"}, names)
}

func TestWorkbookSourceTemplate(t *testing.T) {
	src := NewWorkbookSource(filepath.Join(t.TempDir(), "unused.xlsx"))

	var buf bytes.Buffer
	require.NoError(t, src.WriteTemplate(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"TEST1"}, f.GetSheetList())
	rows, err := f.GetRows("TEST1")
	require.NoError(t, err)
	require.Equal(t, []string{"Question", "Answer"}, rows[0])
}
