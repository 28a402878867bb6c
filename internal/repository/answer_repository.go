package repository

import (
	"errors"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

// CreateAttempt numbers and inserts the answer in one transaction. The current
// highest attempt row is read with a row lock where the dialect supports it; the
// unique (user, question, attempt) index turns a lost race into
// gorm.ErrDuplicatedKey for the caller to retry.
func (r *AnswerRepository) CreateAttempt(answer *model.Answer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var latest []int
		if err := tx.Model(&model.Answer{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND question_id = ?", answer.UserID, answer.QuestionID).
			Order("attempt_number desc").
			Limit(1).
			Pluck("attempt_number", &latest).Error; err != nil {
			return err
		}
		answer.AttemptNumber = 1
		if len(latest) > 0 {
			answer.AttemptNumber = latest[0] + 1
		}
		// selected options already exist; only the join rows are written
		return tx.Omit("SelectedOptions.*").Create(answer).Error
	})
}

func (r *AnswerRepository) FindByID(id uint) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.Preload("Question").
		Preload("SelectedOptions", optionsByDisplayOrder).
		First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("answer", id)
		}
		return nil, err
	}
	return &a, nil
}

// LatestAttemptNumber returns the highest attempt number, 0 when there is none.
func (r *AnswerRepository) LatestAttemptNumber(userID, questionID uint) (int, error) {
	var latest int
	err := r.DB.Model(&model.Answer{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&latest).Error
	return latest, err
}

// ListAttempts returns the user's attempts at a question in attempt order.
func (r *AnswerRepository) ListAttempts(userID, questionID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.Preload("SelectedOptions", optionsByDisplayOrder).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Order("attempt_number asc").
		Find(&answers).Error
	return answers, err
}

func (r *AnswerRepository) quizAnswers(quizID, userID uint) *gorm.DB {
	return r.DB.Model(&model.Answer{}).
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("questions.quiz_id = ? AND answers.user_id = ?", quizID, userID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "questions", Name: "order"}}).
		Order("answers.attempt_number asc")
}

// ListByQuizAndUser returns every answer of the user in the quiz ordered by
// question order, then attempt.
func (r *AnswerRepository) ListByQuizAndUser(quizID, userID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.quizAnswers(quizID, userID).
		Preload("Question").
		Preload("SelectedOptions", optionsByDisplayOrder).
		Find(&answers).Error
	return answers, err
}

// ListTextByQuizAndUser narrows ListByQuizAndUser to free-text questions.
func (r *AnswerRepository) ListTextByQuizAndUser(quizID, userID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.quizAnswers(quizID, userID).
		Where("questions.type IN ?", model.TextTypes).
		Preload("Question").
		Find(&answers).Error
	return answers, err
}

// ListPendingAIFeedback returns the user's text answers in the quiz that have no
// AI feedback yet and whose question has AI feedback enabled.
func (r *AnswerRepository) ListPendingAIFeedback(quizID, userID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.quizAnswers(quizID, userID).
		Where("questions.type IN ?", model.TextTypes).
		Where("questions.ai_feedback_enabled = ?", true).
		Where("answers.ai_feedback IS NULL").
		Preload("Question").
		Find(&answers).Error
	return answers, err
}

// UpdateInstructorFeedback writes only the instructor feedback columns.
func (r *AnswerRepository) UpdateInstructorFeedback(answerID uint, text *string, by *uint, on *time.Time) error {
	res := r.DB.Model(&model.Answer{}).
		Where("id = ?", answerID).
		Select("admin_feedback", "admin_feedback_on", "admin_feedback_by_id", "updated_at").
		Updates(map[string]interface{}{
			"admin_feedback":       text,
			"admin_feedback_on":    on,
			"admin_feedback_by_id": by,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.NewNotFoundError("answer", answerID)
	}
	return nil
}

// AttachAIFeedback stores AI feedback on an answer that has none yet, together
// with its log entry, in one transaction. It reports false and writes nothing
// when the answer already has AI feedback.
func (r *AnswerRepository) AttachAIFeedback(entry *model.AIFeedbackLog, on time.Time) (bool, error) {
	attached := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Answer{}).
			Where("id = ? AND ai_feedback IS NULL", entry.AnswerID).
			Updates(map[string]interface{}{
				"ai_feedback":    entry.Response,
				"ai_feedback_on": on,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Answer{}).Where("id = ?", entry.AnswerID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return util.NewNotFoundError("answer", entry.AnswerID)
			}
			return nil
		}
		attached = true
		return NewAIFeedbackLogRepository(tx).Create(entry)
	})
	if err != nil {
		return false, err
	}
	return attached, nil
}

// QuestionAttemptStat aggregates one user's attempts at one question.
type QuestionAttemptStat struct {
	QuestionID    uint
	QuizID        uint
	Type          model.QuestionType
	MaxAttempts   int
	Attempts      int
	LatestAttempt int
	BestPoints    float64
}

func (r *AnswerRepository) attemptStats(userID uint) *gorm.DB {
	return r.DB.Model(&model.Answer{}).
		Select("questions.id AS question_id, questions.quiz_id AS quiz_id, questions.type AS type, "+
			"questions.max_attempts AS max_attempts, COUNT(answers.id) AS attempts, "+
			"MAX(answers.attempt_number) AS latest_attempt, MAX(answers.points) AS best_points").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.user_id = ?", userID).
		Group("questions.id, questions.quiz_id, questions.type, questions.max_attempts")
}

// AttemptStatsByQuiz returns per-question aggregates for the questions of the
// quiz the user has answered at least once.
func (r *AnswerRepository) AttemptStatsByQuiz(quizID, userID uint) ([]QuestionAttemptStat, error) {
	var rows []QuestionAttemptStat
	err := r.attemptStats(userID).Where("questions.quiz_id = ?", quizID).Scan(&rows).Error
	return rows, err
}

// AttemptStatsByCourse is AttemptStatsByQuiz over every quiz of a course.
func (r *AnswerRepository) AttemptStatsByCourse(courseID, userID uint) ([]QuestionAttemptStat, error) {
	var rows []QuestionAttemptStat
	err := r.attemptStats(userID).
		Joins("JOIN quizzes ON quizzes.id = questions.quiz_id").
		Where("quizzes.course_id = ?", courseID).
		Scan(&rows).Error
	return rows, err
}

// AttemptStat returns the aggregate for a single question, zero-valued when the
// user never answered it.
func (r *AnswerRepository) AttemptStat(questionID, userID uint) (QuestionAttemptStat, error) {
	var rows []QuestionAttemptStat
	if err := r.attemptStats(userID).Where("questions.id = ?", questionID).Scan(&rows).Error; err != nil {
		return QuestionAttemptStat{}, err
	}
	if len(rows) == 0 {
		return QuestionAttemptStat{QuestionID: questionID}, nil
	}
	return rows[0], nil
}

// FeedbackSummaryRow is one (user, quiz) line of the instructor review list.
type FeedbackSummaryRow struct {
	UserID          uint   `json:"userId"`
	Username        string `json:"username"`
	QuizID          uint   `json:"quizId"`
	QuizTitle       string `json:"quizTitle"`
	Total           int    `json:"total"`
	FeedbackMissing int    `json:"feedbackMissing"`
}

func (r *AnswerRepository) feedbackSummary() *gorm.DB {
	return r.DB.Model(&model.Answer{}).
		Select("answers.user_id AS user_id, COALESCE(users.username, '') AS username, "+
			"quizzes.id AS quiz_id, quizzes.title AS quiz_title, "+
			"COUNT(DISTINCT questions.id) AS total, "+
			"SUM(CASE WHEN answers.admin_feedback IS NULL THEN 1 ELSE 0 END) AS feedback_missing").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN quizzes ON quizzes.id = questions.quiz_id").
		Joins("LEFT JOIN users ON users.id = answers.user_id").
		Where("questions.type IN ?", model.TextTypes).
		Group("answers.user_id, users.username, quizzes.id, quizzes.title").
		Order("quizzes.id asc, answers.user_id asc")
}

func (r *AnswerRepository) FeedbackSummaryByQuiz(quizID uint) ([]FeedbackSummaryRow, error) {
	var rows []FeedbackSummaryRow
	err := r.feedbackSummary().Where("quizzes.id = ?", quizID).Scan(&rows).Error
	return rows, err
}

func (r *AnswerRepository) FeedbackSummaryByCourse(courseID uint) ([]FeedbackSummaryRow, error) {
	var rows []FeedbackSummaryRow
	err := r.feedbackSummary().Where("quizzes.course_id = ?", courseID).Scan(&rows).Error
	return rows, err
}
