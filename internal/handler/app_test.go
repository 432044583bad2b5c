package handler_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz/internal/config"
	"github.com/noah-isme/gema-quiz/internal/handler"
	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/models"
	"github.com/noah-isme/gema-quiz/internal/repository"
	"github.com/noah-isme/gema-quiz/internal/router"
	"github.com/noah-isme/gema-quiz/internal/service"
	"github.com/noah-isme/gema-quiz/internal/views"
)

type testEnv struct {
	app        *fiber.App
	tokens     service.TokenService
	mailer     *service.LogMailer
	identities repository.IdentityRepository
	workbook   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	engine, err := views.NewEngine()
	require.NoError(t, err)

	workbook := filepath.Join(t.TempDir(), "questions.xlsx")
	writeCapitalsWorkbook(t, workbook)
	source := repository.NewWorkbookSource(workbook)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	identities := repository.NewIdentityRepository(db, "users")
	require.NoError(t, identities.Migrate(context.Background()))

	codec, err := service.NewQueryResultCodec()
	require.NoError(t, err)
	tokens := service.NewTokenService("test-secret", time.Hour, time.Hour)
	mailer := service.NewLogMailer(logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	quizService := service.NewQuizService(source, logger)
	authService := service.NewAuthService(identities, tokens, mailer, validate, "http://quiz.test", logger)
	adminService := service.NewQuestionAdminService(source, 5, logger)

	cfg := config.Config{AppName: "Quiz Gate", AppEnv: "test"}
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Views:        engine,
		ErrorHandler: handler.ErrorHandler(logger),
	})
	middleware.Register(app, middleware.Config{Logger: &logger, Sessions: tokens})
	router.Register(app, cfg, router.Dependencies{
		QuizHandler:  handler.NewQuizHandler(quizService, codec, logger),
		AuthHandler:  handler.NewAuthHandler(authService, tokens, logger),
		AdminHandler: handler.NewAdminHandler(adminService, logger),
		HealthProbes: map[string]handler.HealthProbe{
			"questions": func(ctx context.Context) error {
				_, err := source.ListSets(ctx)
				return err
			},
		},
	})

	return &testEnv{app: app, tokens: tokens, mailer: mailer, identities: identities, workbook: workbook}
}

func writeCapitalsWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "TEST1"))
	rows := [][]string{
		{"Question", "Answer"},
		{"2+2?", "4"},
		{"Capital of France?", "Paris"},
	}
	for r, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("TEST1", cell, value))
		}
	}
	_, err := f.NewSheet("Scratch")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
}

// createIdentity stores an identity and returns a session cookie for it.
func (e *testEnv) createIdentity(t *testing.T, studentID, role string) *http.Cookie {
	t.Helper()

	identity := models.Identity{StudentID: studentID, Email: studentID + "@example.com", Role: role}
	require.NoError(t, identity.SetPassword("secret1"))
	require.NoError(t, e.identities.Create(context.Background(), &identity))

	token, _, err := e.tokens.IssueSession(identity)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (e *testEnv) postForm(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookies...)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
