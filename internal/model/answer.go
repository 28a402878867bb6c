package model

import (
	"time"

	"gorm.io/datatypes"
)

// Answer is one attempt of a user at a question. Content is written once;
// only the instructor and AI feedback columns change afterwards.
//
// swagger:model Answer
type Answer struct {
	BaseModel
	UserID            uint       `gorm:"not null;uniqueIndex:idx_answer_attempt,priority:1" json:"userId"`
	QuestionID        uint       `gorm:"not null;uniqueIndex:idx_answer_attempt,priority:2;index" json:"questionId"`
	AttemptNumber     int        `gorm:"not null;uniqueIndex:idx_answer_attempt,priority:3" json:"attemptNumber"`
	Question          *Question  `gorm:"constraint:OnDelete:RESTRICT" json:"question,omitempty"`
	SelectedOptions   []Option   `gorm:"many2many:answer_selected_options;" json:"selectedOptions,omitempty"`
	AnswerText        *string    `gorm:"type:text" json:"answerText,omitempty"`
	AnsweredOn        time.Time  `gorm:"not null" json:"answeredOn"`
	Points            float64    `gorm:"not null;default:0" json:"points"`
	MissingCount      int        `gorm:"not null;default:0" json:"missingCount"`
	AdminFeedback     *string    `gorm:"type:text" json:"adminFeedback,omitempty"`
	AdminFeedbackOn   *time.Time `json:"adminFeedbackOn,omitempty"`
	AdminFeedbackByID *uint      `json:"adminFeedbackById,omitempty"`
	AIFeedback        *string    `gorm:"column:ai_feedback;type:text" json:"aiFeedback,omitempty"`
	AIFeedbackOn      *time.Time `gorm:"column:ai_feedback_on" json:"aiFeedbackOn,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}

// IsFullyCorrect reports whether the attempt earned the full point.
func (a *Answer) IsFullyCorrect() bool {
	return a.Points >= 1
}

// AIFeedbackLog is the append-only record of one AI evaluation request.
//
// swagger:model AIFeedbackLog
type AIFeedbackLog struct {
	BaseModel
	AnswerID    uint           `gorm:"index;not null" json:"answerId"`
	Model       string         `gorm:"size:100" json:"model"`
	Prompt      string         `gorm:"type:text;not null" json:"prompt"`
	Response    string         `gorm:"type:text;not null" json:"response"`
	RawResponse datatypes.JSON `json:"rawResponse,omitempty"`
}

func (AIFeedbackLog) TableName() string {
	return "ai_feedback_logs"
}
