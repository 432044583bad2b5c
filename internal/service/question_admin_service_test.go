package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-quiz/internal/repository"
)

func newWorkbookUpload(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_questions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	_, header, err := req.FormFile("file")
	require.NoError(t, err)
	return header
}

func TestQuestionAdminServiceUploadReplacesWorkbook(t *testing.T) {
	target := filepath.Join(t.TempDir(), "questions.xlsx")
	source := repository.NewWorkbookSource(target)
	svc := NewQuestionAdminService(source, 5, testLogger())

	replacement, err := os.ReadFile(writeQuestionWorkbook(t,
		sheetFixture{name: "TEST7", rows: [][]string{
			{"Question", "Answer"},
			{"Largest planet?", "Jupiter"},
			{"", "orphan answer"},
		}},
	))
	require.NoError(t, err)

	report, err := svc.Upload(context.Background(), newWorkbookUpload(t, "My Questions.xlsx", replacement))
	require.NoError(t, err)
	require.Equal(t, "my-questions.xlsx", report.FileName)
	require.Len(t, report.Sets, 1)
	require.Equal(t, "TEST7", report.Sets[0].Name)
	require.Equal(t, 1, report.Sets[0].Questions)
	require.Equal(t, 1, report.SkippedRows())
	require.Len(t, report.Checksum, 64)

	names, err := source.ListSets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"TEST7"}, names)
}

func TestQuestionAdminServiceRejectsNonSpreadsheet(t *testing.T) {
	svc := NewQuestionAdminService(repository.NewWorkbookSource(filepath.Join(t.TempDir(), "q.xlsx")), 5, testLogger())

	_, err := svc.Upload(context.Background(), newWorkbookUpload(t, "notes.txt", []byte("plain text")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestQuestionAdminServiceRejectsOversized(t *testing.T) {
	svc := NewQuestionAdminService(repository.NewWorkbookSource(filepath.Join(t.TempDir(), "q.xlsx")), 1, testLogger())

	_, err := svc.Upload(context.Background(), newWorkbookUpload(t, "big.xlsx", bytes.Repeat([]byte("a"), 2*1024*1024)))
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestQuestionAdminServiceRejectsMissingFile(t *testing.T) {
	svc := NewQuestionAdminService(repository.NewWorkbookSource(filepath.Join(t.TempDir(), "q.xlsx")), 5, testLogger())

	_, err := svc.Upload(context.Background(), nil)
	require.ErrorIs(t, err, ErrUploadMissing)
}

func TestQuestionAdminServiceKeepsWorkbookOnInvalidUpload(t *testing.T) {
	path := capitalsWorkbook(t)
	source := repository.NewWorkbookSource(path)
	svc := NewQuestionAdminService(source, 5, testLogger())

	// a zip archive that is not a workbook
	var archive bytes.Buffer
	require.NoError(t, svc.Template(&archive))
	broken := archive.Bytes()[:len(archive.Bytes())/2]

	_, err := svc.Upload(context.Background(), newWorkbookUpload(t, "broken.xlsx", broken))
	require.Error(t, err)

	names, err := source.ListSets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"TEST1"}, names)
}

func TestQuestionAdminServiceOverviewWithoutWorkbook(t *testing.T) {
	svc := NewQuestionAdminService(repository.NewWorkbookSource(filepath.Join(t.TempDir(), "missing.xlsx")), 5, testLogger())

	summaries, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestQuestionAdminServiceTemplateParses(t *testing.T) {
	target := filepath.Join(t.TempDir(), "questions.xlsx")
	svc := NewQuestionAdminService(repository.NewWorkbookSource(target), 5, testLogger())

	var buf bytes.Buffer
	require.NoError(t, svc.Template(&buf))
	require.NoError(t, os.WriteFile(target, buf.Bytes(), 0o600))

	summaries, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "TEST1", summaries[0].Name)
	require.Equal(t, 2, summaries[0].Questions)
}
