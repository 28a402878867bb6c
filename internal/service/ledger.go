package service

import (
	"context"
	"errors"
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/events"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRecordRetries bounds how often a lost attempt-number race is retried.
const maxRecordRetries = 3

// AnswerContent is what a learner submitted, already scored for choice questions.
type AnswerContent struct {
	Text            *string
	SelectedOptions []model.Option
	Points          float64
	MissingCount    int
}

// AttemptLedger owns the answer history: every submission is a new numbered
// attempt, and the only later writes are feedback.
type AttemptLedger struct {
	answers   *repository.AnswerRepository
	locker    Locker
	publisher events.Publisher
	now       func() time.Time
}

func NewAttemptLedger(answers *repository.AnswerRepository, locker Locker, publisher events.Publisher) *AttemptLedger {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AttemptLedger{
		answers:   answers,
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
	}
}

func validateContent(question *model.Question, content AnswerContent) error {
	switch question.Type {
	case model.ShortText, model.LongText:
		if content.Text == nil || strings.TrimSpace(*content.Text) == "" {
			return util.NewValidationError("answerText", "an answer text is required")
		}
		if len(content.SelectedOptions) > 0 {
			return util.NewValidationError("optionIds", "text questions take no options")
		}
	case model.SingleChoice:
		if len(content.SelectedOptions) != 1 {
			return util.NewValidationError("optionId", "exactly one option must be selected")
		}
	case model.MultiChoice:
		if len(content.SelectedOptions) == 0 {
			return util.NewValidationError("optionIds", "at least one option must be selected")
		}
	default:
		return util.NewValidationError("type", "unknown question type "+question.Type.String())
	}
	for _, o := range content.SelectedOptions {
		if o.QuestionID != question.ID {
			return util.NewNotFoundError("option", o.ID)
		}
	}
	if content.Points < 0 || content.Points > 1 {
		return util.NewValidationError("points", "must be within [0, 1]")
	}
	return nil
}

// RecordAnswer appends a new attempt for the user. The attempt number is the
// current maximum plus one, assigned under a per (user, question) lock inside a
// transaction, with the unique index as the final guard.
func (l *AttemptLedger) RecordAnswer(ctx context.Context, question *model.Question, userID uint, content AnswerContent) (*model.Answer, error) {
	if err := validateContent(question, content); err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, attemptLockKey(userID, question.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if question.Type.IsChoice() {
		answered, err := l.answers.LatestAttemptNumber(userID, question.ID)
		if err != nil {
			return nil, err
		}
		if answered >= question.MaxAttempts+1 {
			return nil, util.ErrNoAttemptsLeft
		}
	}

	var answer *model.Answer
	for try := 1; ; try++ {
		answer = &model.Answer{
			UserID:          userID,
			QuestionID:      question.ID,
			SelectedOptions: content.SelectedOptions,
			AnswerText:      content.Text,
			AnsweredOn:      l.now(),
			Points:          content.Points,
			MissingCount:    content.MissingCount,
		}
		err = l.answers.CreateAttempt(answer)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		if try == maxRecordRetries {
			logger.Log.Warn("Attempt number conflict",
				zap.Uint("user_id", userID),
				zap.Uint("question_id", question.ID))
			return nil, util.ErrAttemptConflict
		}
	}

	monitoring.AnswersRecorded.WithLabelValues(question.Type.String()).Inc()
	if question.Type.IsChoice() {
		monitoring.AnswerPoints.Observe(answer.Points)
	}
	logger.Log.Info("Answer recorded",
		zap.Uint("answer_id", answer.ID),
		zap.Uint("user_id", userID),
		zap.Uint("question_id", question.ID),
		zap.Int("attempt", answer.AttemptNumber),
		zap.Float64("points", answer.Points))

	if err := l.publisher.Publish(events.AnswerRecorded, map[string]interface{}{
		"answerId":      answer.ID,
		"userId":        userID,
		"questionId":    question.ID,
		"quizId":        question.QuizID,
		"attemptNumber": answer.AttemptNumber,
		"points":        answer.Points,
	}); err != nil {
		logger.Log.Warn("Failed to publish event", zap.String("type", events.AnswerRecorded), zap.Error(err))
	}
	return answer, nil
}

// LatestAttemptNumber returns the highest attempt number, or 1 when the user has
// not answered yet.
func (l *AttemptLedger) LatestAttemptNumber(userID, questionID uint) (int, error) {
	latest, err := l.answers.LatestAttemptNumber(userID, questionID)
	if err != nil {
		return 0, err
	}
	if latest == 0 {
		return 1, nil
	}
	return latest, nil
}

func (l *AttemptLedger) IsLastAttempt(answer *model.Answer) (bool, error) {
	latest, err := l.LatestAttemptNumber(answer.UserID, answer.QuestionID)
	if err != nil {
		return false, err
	}
	return answer.AttemptNumber == latest, nil
}

// isCompleted applies the completion rule to one question's aggregate: text
// questions are done once answered, choice questions once fully correct or
// once max_attempts+1 attempts were used.
func isCompleted(stat repository.QuestionAttemptStat) bool {
	if stat.Attempts == 0 {
		return false
	}
	switch stat.Type {
	case model.ShortText, model.LongText:
		return true
	case model.SingleChoice, model.MultiChoice:
		return stat.BestPoints >= 1 || stat.LatestAttempt >= stat.MaxAttempts+1
	default:
		return false
	}
}

func completedSet(stats []repository.QuestionAttemptStat) map[uint]bool {
	done := make(map[uint]bool, len(stats))
	for _, s := range stats {
		if isCompleted(s) {
			done[s.QuestionID] = true
		}
	}
	return done
}

// CompletedQuestionIDs returns the completion frontier of the user in the quiz.
func (l *AttemptLedger) CompletedQuestionIDs(quizID, userID uint) (map[uint]bool, error) {
	stats, err := l.answers.AttemptStatsByQuiz(quizID, userID)
	if err != nil {
		return nil, err
	}
	return completedSet(stats), nil
}

// RemainingAttempts is 0 once the question is completed, otherwise what is left
// of the max_attempts+1 allowance.
func (l *AttemptLedger) RemainingAttempts(question *model.Question, userID uint) (int, error) {
	stat, err := l.answers.AttemptStat(question.ID, userID)
	if err != nil {
		return 0, err
	}
	stat.Type = question.Type
	stat.MaxAttempts = question.MaxAttempts
	if isCompleted(stat) {
		return 0, nil
	}
	return max(0, question.MaxAttempts+1-stat.Attempts), nil
}

// AttachInstructorFeedback sets or, for blank text, clears the instructor feedback.
func (l *AttemptLedger) AttachInstructorFeedback(answerID, instructorID uint, text string) error {
	if strings.TrimSpace(text) == "" {
		return l.answers.UpdateInstructorFeedback(answerID, nil, nil, nil)
	}
	now := l.now()
	return l.answers.UpdateInstructorFeedback(answerID, &text, &instructorID, &now)
}

func (l *AttemptLedger) AttachAIFeedback(entry *model.AIFeedbackLog) (bool, error) {
	return l.answers.AttachAIFeedback(entry, l.now())
}
