package handler

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz/internal/dto"
	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/service"
)

// QuizHandler serves the test list, the quiz form and the grading redirects.
type QuizHandler struct {
	quizzes service.QuizService
	results service.ResultTransport
	logger  zerolog.Logger
}

// NewQuizHandler constructs a quiz handler.
func NewQuizHandler(quizzes service.QuizService, results service.ResultTransport, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes: quizzes,
		results: results,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register wires quiz routes. Every route requires a logged-in caller.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("/", middleware.WithAuth(h.selectTest, middleware.Authenticated))
	router.Get("/test/:name", middleware.WithAuth(h.showTest, middleware.Authenticated))
	router.Post("/test/:name", middleware.WithAuth(h.submitTest, middleware.Authenticated))
	router.Get("/error_page", middleware.WithAuth(h.errorPage, middleware.Authenticated))
	router.Get("/congratulations", middleware.WithAuth(h.congratulations, middleware.Authenticated))
}

func (h *QuizHandler) selectTest(c *fiber.Ctx) error {
	names, err := h.quizzes.ListSets(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}
	links := make([]dto.TestLink, 0, len(names))
	for _, name := range names {
		links = append(links, dto.TestLink{Name: name, Href: testPath(name)})
	}
	return render(c, fiber.StatusOK, "select_test", "Tests", fiber.Map{"Tests": links})
}

// showTest renders a blank quiz, or re-renders a prior attempt with verdicts when retry is present.
func (h *QuizHandler) showTest(c *fiber.Ctx) error {
	name := pathParam(c, "name")
	payload := c.Query("user_answers")
	retry := c.Request().URI().QueryArgs().Has("retry")

	data := fiber.Map{}
	answers, notice := h.decodeAnswers(c, payload)
	if notice != "" {
		data["Flash"] = notice
	}

	if retry && notice == "" {
		outcome, err := h.quizzes.Review(c.UserContext(), name, answers)
		if err != nil {
			return h.handleError(c, err)
		}
		page := dto.NewRetryPage(outcome)
		page.Action = testPath(name)
		data["Page"] = page
		return render(c, fiber.StatusOK, "quiz", name, data)
	}

	set, err := h.quizzes.Load(c.UserContext(), name)
	if err != nil {
		return h.handleError(c, err)
	}
	page := dto.NewQuizPage(set, answers)
	page.Action = testPath(name)
	data["Page"] = page
	return render(c, fiber.StatusOK, "quiz", name, data)
}

func (h *QuizHandler) submitTest(c *fiber.Ctx) error {
	name := pathParam(c, "name")

	answers := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		answers[string(key)] = string(value)
	})

	outcome, err := h.quizzes.Grade(c.UserContext(), name, answers)
	if err != nil {
		return h.handleError(c, err)
	}
	if outcome.Passed() {
		return c.Redirect("/congratulations", fiber.StatusFound)
	}

	encoded, err := h.results.Encode(c.UserContext(), answers)
	if err != nil {
		return h.handleError(c, err)
	}

	query := url.Values{}
	query.Set("incorrect_count", strconv.Itoa(outcome.IncorrectCount))
	query.Set("test_name", outcome.SetName)
	query.Set("user_answers", encoded)
	return c.Redirect("/error_page?"+query.Encode(), fiber.StatusFound)
}

func (h *QuizHandler) errorPage(c *fiber.Ctx) error {
	testName := c.Query("test_name")
	retry := url.Values{}
	retry.Set("retry", "1")
	retry.Set("user_answers", c.Query("user_answers"))

	return render(c, fiber.StatusOK, "error_page", "Review", fiber.Map{
		"IncorrectCount": c.QueryInt("incorrect_count", 0),
		"TestName":       testName,
		"RetryURL":       testPath(testName) + "?" + retry.Encode(),
	})
}

func (h *QuizHandler) congratulations(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "congratulations", "Congratulations", nil)
}

// testPath escapes a set name into one path segment. Sheet names may contain '#', '?' or '/'.
func testPath(name string) string {
	return "/test/" + url.PathEscape(name)
}

// decodeAnswers restores carried answers. An undecodable payload yields an empty attempt and a notice.
func (h *QuizHandler) decodeAnswers(c *fiber.Ctx, payload string) (map[string]string, string) {
	if payload == "" {
		return map[string]string{}, ""
	}
	answers, err := h.results.Decode(c.UserContext(), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("discarding carried answers")
		if errors.Is(err, service.ErrResultExpired) {
			return map[string]string{}, "Your previous answers have expired."
		}
		return map[string]string{}, "Your previous answers could not be restored."
	}
	return answers, ""
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return renderError(c, fiber.StatusNotFound, "That test does not exist.")
	case errors.Is(err, service.ErrQuizUnavailable):
		return renderError(c, fiber.StatusServiceUnavailable, "The questions file could not be read. Please try again later.")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("quiz request failed")
		return renderError(c, fiber.StatusInternalServerError, "An unexpected error occurred.")
	}
}
