package models

// FeedbackEntry is one user correction. It copies the analysed message and
// verdict by value so later analyses cannot alter it.
type FeedbackEntry struct {
	ID             string `json:"id" db:"id"`
	Timestamp      string `json:"timestamp" db:"timestamp"`
	Message        string `json:"message" db:"message"`
	PredictedLabel Label  `json:"predictedLabel" db:"predicted_label"`
	UserLabel      Label  `json:"userLabel" db:"user_label"`
	Language       string `json:"language" db:"language"`
	Score          int    `json:"score" db:"score"`
}

// FeedbackRequest carries the user's corrective label
type FeedbackRequest struct {
	Label Label `json:"label" binding:"required"`
}
