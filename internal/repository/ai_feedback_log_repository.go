package repository

import (
	"quiz_backend/internal/model"

	"gorm.io/gorm"
)

type AIFeedbackLogRepository struct {
	DB *gorm.DB
}

func NewAIFeedbackLogRepository(db *gorm.DB) *AIFeedbackLogRepository {
	return &AIFeedbackLogRepository{DB: db}
}

func (r *AIFeedbackLogRepository) Create(log *model.AIFeedbackLog) error {
	return r.DB.Create(log).Error
}

func (r *AIFeedbackLogRepository) ListByAnswer(answerID uint) ([]model.AIFeedbackLog, error) {
	var logs []model.AIFeedbackLog
	err := r.DB.Where("answer_id = ?", answerID).Order("id asc").Find(&logs).Error
	return logs, err
}
