package service

import "github.com/noah-isme/gema-quiz/internal/models"

// GradeQuestionSet compares submitted answers with the expected answers of set, in set order.
// Answers are looked up by exact prompt text; a missing answer counts as the empty string.
// It returns one result per question and the number of incorrect answers.
func GradeQuestionSet(set models.QuestionSet, submitted map[string]string) ([]models.SubmissionResult, int) {
	results := make([]models.SubmissionResult, 0, len(set.Questions))
	incorrect := 0

	for _, question := range set.Questions {
		answer := submitted[question.Prompt]
		correct := models.NormalizeAnswer(answer) == models.NormalizeAnswer(question.Answer)
		if !correct {
			incorrect++
		}

		results = append(results, models.SubmissionResult{
			Prompt:    question.Prompt,
			Submitted: trimmed(answer),
			Expected:  trimmed(question.Answer),
			Correct:   correct,
		})
	}

	return results, incorrect
}
