package models

import "strings"

// QuestionSetPrefix marks workbook sheets that hold a quiz.
const QuestionSetPrefix = "TEST"

// Question is a single prompt with its expected answer.
type Question struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// QuestionSet is an ordered quiz read from one workbook sheet.
type QuestionSet struct {
	Name       string     `json:"name"`
	Questions  []Question `json:"questions"`
	Skipped    int        `json:"skipped"`
	Duplicates int        `json:"duplicates"`
}

// SubmissionResult is the verdict for one question of a graded attempt.
type SubmissionResult struct {
	Prompt    string `json:"prompt"`
	Submitted string `json:"submitted"`
	Expected  string `json:"expected"`
	Correct   bool   `json:"correct"`
}

// IsQuestionSetName reports whether a sheet name follows the quiz naming convention.
func IsQuestionSetName(name string) bool {
	return strings.HasPrefix(name, QuestionSetPrefix)
}

// NormalizeAnswer trims whitespace and lowercases an answer for matching.
func NormalizeAnswer(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// QuestionSetSummary describes how a sheet parsed, for administrators.
type QuestionSetSummary struct {
	Name       string `json:"name"`
	Questions  int    `json:"questions"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
}

// Summary reports the parse counts of the set.
func (s QuestionSet) Summary() QuestionSetSummary {
	return QuestionSetSummary{
		Name:       s.Name,
		Questions:  len(s.Questions),
		Skipped:    s.Skipped,
		Duplicates: s.Duplicates,
	}
}
