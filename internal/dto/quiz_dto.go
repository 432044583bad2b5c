package dto

import "github.com/noah-isme/gema-quiz/internal/models"

// GradeOutcome is the result of evaluating one attempt against a question set.
type GradeOutcome struct {
	SetName        string                    `json:"set_name"`
	Results        []models.SubmissionResult `json:"results"`
	IncorrectCount int                       `json:"incorrect_count"`
}

// Passed reports whether every question was answered correctly.
func (o GradeOutcome) Passed() bool {
	return o.IncorrectCount == 0
}

// QuestionView is one row of the quiz page.
type QuestionView struct {
	Prompt    string
	Submitted string
	Expected  string
	Correct   bool
}

// TestLink is one entry of the test list.
type TestLink struct {
	Name string
	Href string
}

// QuizPage is the data rendered by the quiz view. Action is the escaped form target.
type QuizPage struct {
	SetName   string
	Action    string
	Questions []QuestionView
	RetryMode bool
}

// NewQuizPage builds a fresh quiz page with optional pre-filled answers.
func NewQuizPage(set models.QuestionSet, prefill map[string]string) QuizPage {
	questions := make([]QuestionView, 0, len(set.Questions))
	for _, q := range set.Questions {
		questions = append(questions, QuestionView{Prompt: q.Prompt, Submitted: prefill[q.Prompt]})
	}
	return QuizPage{SetName: set.Name, Questions: questions}
}

// NewRetryPage builds a quiz page that re-displays a previous attempt with its verdicts.
func NewRetryPage(outcome GradeOutcome) QuizPage {
	questions := make([]QuestionView, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		questions = append(questions, QuestionView{
			Prompt:    r.Prompt,
			Submitted: r.Submitted,
			Expected:  r.Expected,
			Correct:   r.Correct,
		})
	}
	return QuizPage{SetName: outcome.SetName, Questions: questions, RetryMode: true}
}
