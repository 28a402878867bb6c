package model

import "time"

// swagger:model Course
type Course struct {
	BaseModel
	Title          string `gorm:"size:200;not null" json:"title"`
	Description    string `gorm:"type:text" json:"description"`
	AIPromptFormat string `gorm:"type:text" json:"aiPromptFormat"`
	AIAPIKey       string `gorm:"size:255" json:"-"`
	AIModel        string `gorm:"size:100" json:"aiModel"`
	Quizzes        []Quiz `gorm:"constraint:OnDelete:CASCADE" json:"quizzes,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID  uint       `gorm:"index;not null" json:"courseId"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Questions []Question `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
