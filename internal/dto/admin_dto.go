package dto

import "github.com/noah-isme/gema-quiz/internal/models"

// UploadReport describes a question workbook that replaced the previous one.
type UploadReport struct {
	FileName  string                      `json:"file_name"`
	SizeBytes int64                       `json:"size_bytes"`
	MimeType  string                      `json:"mime_type"`
	Checksum  string                      `json:"checksum"`
	Sets      []models.QuestionSetSummary `json:"sets"`
}

// SkippedRows totals the malformed and duplicate rows across all sets.
func (r UploadReport) SkippedRows() int {
	total := 0
	for _, set := range r.Sets {
		total += set.Skipped + set.Duplicates
	}
	return total
}
