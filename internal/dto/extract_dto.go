package dto

// ExtractResponse carries the text pulled out of an uploaded answer sheet.
type ExtractResponse struct {
	Text       string `json:"text"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// StudentStatsResponse summarizes a student's grading history.
type StudentStatsResponse struct {
	StudentID         uint    `json:"student_id"`
	Submissions       int     `json:"submissions"`
	AverageTotalMarks float64 `json:"average_total_marks"`
	AveragePercentage float64 `json:"average_percentage"`
	BestPercentage    float64 `json:"best_percentage"`
}
