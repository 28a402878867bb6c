package model

import (
	"database/sql/driver"
	"fmt"
)

// QuestionType is stored as the two-letter code used since the first schema.
type QuestionType string

const (
	ShortText    QuestionType = "ST"
	LongText     QuestionType = "LT"
	SingleChoice QuestionType = "MC"
	MultiChoice  QuestionType = "MM"
)

func (t QuestionType) String() string { return string(t) }

func (t QuestionType) Valid() bool {
	switch t {
	case ShortText, LongText, SingleChoice, MultiChoice:
		return true
	default:
		return false
	}
}

// IsText reports whether answers to the question are free text.
func (t QuestionType) IsText() bool {
	return t == ShortText || t == LongText
}

// IsChoice reports whether answers to the question select options.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultiChoice
}

// TextTypes and ChoiceTypes are handy for IN (...) filters.
var (
	TextTypes   = []QuestionType{ShortText, LongText}
	ChoiceTypes = []QuestionType{SingleChoice, MultiChoice}
)

func (t *QuestionType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*t = QuestionType(v)
	case []byte:
		*t = QuestionType(string(v))
	default:
		return fmt.Errorf("unsupported type for QuestionType: %T", value)
	}
	if !t.Valid() {
		return fmt.Errorf("invalid QuestionType: %q", *t)
	}
	return nil
}

func (t QuestionType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid QuestionType: %q", t)
	}
	return string(t), nil
}

// DefaultMaxAttempts applies when a question is created without an explicit limit.
const DefaultMaxAttempts = 2

// swagger:model Question
type Question struct {
	BaseModel
	QuizID            uint         `gorm:"not null;uniqueIndex:idx_question_quiz_order,priority:1" json:"quizId"`
	Text              string       `gorm:"type:text;not null" json:"text"`
	Type              QuestionType `gorm:"size:2;not null;default:'ST'" json:"type"`
	Order             int          `gorm:"not null;default:0;uniqueIndex:idx_question_quiz_order,priority:2" json:"order"`
	MaxAttempts       int          `gorm:"not null;default:2" json:"maxAttempts"`
	ExampleAnswer     string       `gorm:"type:text" json:"exampleAnswer,omitempty"`
	AIFeedbackEnabled bool         `gorm:"default:false" json:"aiFeedbackEnabled"`
	Options           []Option     `gorm:"constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOptionIDs returns the ids of the loaded options flagged correct.
func (q *Question) CorrectOptionIDs() []uint {
	ids := make([]uint, 0, len(q.Options))
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// OptionByID looks an option up among the loaded options.
func (q *Question) OptionByID(id uint) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// swagger:model Option
type Option struct {
	BaseModel
	QuestionID   uint    `gorm:"not null;uniqueIndex:idx_option_question_text,priority:1" json:"questionId"`
	Text         string  `gorm:"size:200;not null;uniqueIndex:idx_option_question_text,priority:2" json:"text"`
	IsCorrect    bool    `gorm:"default:false" json:"isCorrect"`
	Feedback     *string `gorm:"type:text" json:"feedback,omitempty"`
	DisplayOrder int     `gorm:"not null;default:0" json:"displayOrder"`
}

func (Option) TableName() string {
	return "options"
}

// NewOption builds an option whose display order is fixed for its lifetime.
func NewOption(text string, isCorrect bool, feedback *string, displayOrder int) Option {
	return Option{
		Text:         text,
		IsCorrect:    isCorrect,
		Feedback:     feedback,
		DisplayOrder: displayOrder,
	}
}
