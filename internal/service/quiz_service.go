package service

import (
	"context"
	"errors"
	"strings"

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
	// ErrQuizUnavailable indicates the question workbook could not be read.
	ErrQuizUnavailable = errors.New("quiz questions are unavailable")
	// ErrQuizNotFound indicates the requested question set does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
)

// QuizService lists, loads and grades question sets.
type QuizService interface {
	ListSets(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (models.QuestionSet, error)
	Grade(ctx context.Context, name string, answers map[string]string) (dto.GradeOutcome, error)
	Review(ctx context.Context, name string, answers map[string]string) (dto.GradeOutcome, error)
}

type quizService struct {
	source repository.QuestionSource
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewQuizService constructs a QuizService reading from source.
func NewQuizService(source repository.QuestionSource, logger zerolog.Logger) QuizService {
	return &quizService{
		source: source,
		logger: logger.With().Str("component", "quiz_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-quiz/internal/service/quiz"),
	}
}

func (s *quizService) ListSets(ctx context.Context) ([]string, error) {
	names, err := s.source.ListSets(ctx)
	if err != nil {
		return nil, s.sourceError(err, "")
	}
	return names, nil
}

func (s *quizService) Load(ctx context.Context, name string) (models.QuestionSet, error) {
	set, err := s.source.Load(ctx, strings.TrimSpace(name))
	if err != nil {
		return models.QuestionSet{}, s.sourceError(err, name)
	}
	return set, nil
}

// Grade evaluates a fresh submission and records it as a grading event.
func (s *quizService) Grade(ctx context.Context, name string, answers map[string]string) (dto.GradeOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "quiz.grade")
	defer span.End()
	span.SetAttributes(
		attribute.String("quiz.set", name),
		attribute.Int("quiz.answers", len(answers)),
	)

	set, err := s.Load(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return dto.GradeOutcome{}, err
	}

	results, incorrect := GradeQuestionSet(set, answers)
	outcome := dto.GradeOutcome{SetName: set.Name, Results: results, IncorrectCount: incorrect}

	label := "failed"
	if outcome.Passed() {
		label = "passed"
	}
	observability.QuizGradings().WithLabelValues(set.Name, label).Inc()
	span.SetAttributes(attribute.Int("quiz.incorrect", incorrect))
	span.SetStatus(codes.Ok, label)

	s.logger.Info().
		Str("set", set.Name).
		Int("questions", len(set.Questions)).
		Int("incorrect", incorrect).
		Msg("quiz graded")

	return outcome, nil
}

// Review re-evaluates a previously submitted attempt for display. It is not a grading event.
func (s *quizService) Review(ctx context.Context, name string, answers map[string]string) (dto.GradeOutcome, error) {
	set, err := s.Load(ctx, name)
	if err != nil {
		return dto.GradeOutcome{}, err
	}

	results, incorrect := GradeQuestionSet(set, answers)
	return dto.GradeOutcome{SetName: set.Name, Results: results, IncorrectCount: incorrect}, nil
}

func (s *quizService) sourceError(err error, name string) error {
	switch {
	case errors.Is(err, repository.ErrQuestionSetNotFound):
		return ErrQuizNotFound
	case errors.Is(err, repository.ErrQuestionSourceUnavailable):
		s.logger.Error().Err(err).Str("set", name).Msg("question source unavailable")
		return ErrQuizUnavailable
	default:
		return err
	}
}
