package util

// Feedback types shown next to a submission result.
const (
	FeedbackSuccess = "success"
	FeedbackWarning = "warning"
	FeedbackInfo    = "info"
)
