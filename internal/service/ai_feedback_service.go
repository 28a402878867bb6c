package service

import (
	"context"
	"encoding/json"
	"fmt"
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/events"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/storage"
	"quiz_backend/pkg/tracing"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// BuildPrompt fills the [question_text], [answer_text] and [example_answer]
// placeholders of a course prompt template.
func BuildPrompt(template string, question *model.Question, answerText string) string {
	return strings.NewReplacer(
		"[question_text]", question.Text,
		"[answer_text]", answerText,
		"[example_answer]", question.ExampleAnswer,
	).Replace(template)
}

// BatchResult reports an AI evaluation run. Processed answers keep their
// feedback even when the run stopped early.
type BatchResult struct {
	RunID     string `json:"runId"`
	Pending   int    `json:"pending"`
	Processed []uint `json:"processed"`
}

type AIFeedbackService struct {
	answers   *repository.AnswerRepository
	quizzes   *repository.QuizRepository
	courses   *repository.CourseRepository
	ledger    *AttemptLedger
	completer Completer
	archive   storage.Provider
	publisher events.Publisher

	mu             sync.RWMutex
	promptTemplate string
}

func NewAIFeedbackService(answers *repository.AnswerRepository, quizzes *repository.QuizRepository,
	courses *repository.CourseRepository, ledger *AttemptLedger,
	completer Completer, archive storage.Provider, publisher events.Publisher, promptTemplate string) *AIFeedbackService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AIFeedbackService{
		answers:        answers,
		quizzes:        quizzes,
		courses:        courses,
		ledger:         ledger,
		completer:      completer,
		archive:        archive,
		publisher:      publisher,
		promptTemplate: promptTemplate,
	}
}

// SetPromptTemplate replaces the fallback template for courses without one.
func (s *AIFeedbackService) SetPromptTemplate(template string) {
	s.mu.Lock()
	s.promptTemplate = template
	s.mu.Unlock()
}

func (s *AIFeedbackService) defaultTemplate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.promptTemplate
}

func (s *AIFeedbackService) courseForQuiz(quizID uint) (*model.Course, error) {
	quiz, err := s.quizzes.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	return s.courses.FindByID(quiz.CourseID)
}

// EvaluatePending requests AI feedback for every text answer of the user in the
// quiz that has none yet and whose question enables it. Answers are handled one
// at a time in question order; the first failure stops the run.
func (s *AIFeedbackService) EvaluatePending(ctx context.Context, quizID, userID uint) (*BatchResult, error) {
	course, err := s.courseForQuiz(quizID)
	if err != nil {
		return nil, err
	}
	pending, err := s.answers.ListPendingAIFeedback(quizID, userID)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{RunID: uuid.NewString(), Pending: len(pending), Processed: []uint{}}

	ctx, span := tracing.Tracer.Start(ctx, "ai.evaluate_pending")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("quiz_id", int(quizID)),
		attribute.Int("pending", len(pending)),
	)

	for i := range pending {
		attached, err := s.evaluate(ctx, result.RunID, course, &pending[i])
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			logger.Log.Warn("AI feedback run aborted",
				zap.String("run_id", result.RunID),
				zap.Uint("quiz_id", quizID),
				zap.Uint("user_id", userID),
				zap.Int("processed", len(result.Processed)),
				zap.Error(err))
			return result, err
		}
		if attached {
			result.Processed = append(result.Processed, pending[i].ID)
		}
	}

	logger.Log.Info("AI feedback run finished",
		zap.String("run_id", result.RunID),
		zap.Uint("quiz_id", quizID),
		zap.Uint("user_id", userID),
		zap.Int("processed", len(result.Processed)))
	return result, nil
}

// EvaluateAnswer requests AI feedback for a single eligible answer.
func (s *AIFeedbackService) EvaluateAnswer(ctx context.Context, answerID uint) (*model.Answer, error) {
	answer, err := s.answers.FindByID(answerID)
	if err != nil {
		return nil, err
	}
	switch {
	case answer.Question == nil || !answer.Question.Type.IsText():
		return nil, util.NewValidationError("answer", "AI feedback applies to text answers only")
	case !answer.Question.AIFeedbackEnabled:
		return nil, util.NewValidationError("answer", "AI feedback is disabled for this question")
	case answer.AIFeedback != nil:
		return nil, util.NewValidationError("answer", "answer already has AI feedback")
	}

	course, err := s.courseForQuiz(answer.Question.QuizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.evaluate(ctx, uuid.NewString(), course, answer); err != nil {
		return nil, err
	}
	return s.answers.FindByID(answerID)
}

// evaluate reports false when another run attached feedback to the answer first.
func (s *AIFeedbackService) evaluate(ctx context.Context, runID string, course *model.Course, answer *model.Answer) (bool, error) {
	template := firstNonEmpty(course.AIPromptFormat, s.defaultTemplate())
	answerText := ""
	if answer.AnswerText != nil {
		answerText = *answer.AnswerText
	}
	prompt := BuildPrompt(template, answer.Question, answerText)

	completion, err := s.completer.Complete(ctx, CompletionRequest{
		APIKey: course.AIAPIKey,
		Model:  course.AIModel,
		Prompt: prompt,
	})
	if err != nil {
		monitoring.AIFeedbackRequests.WithLabelValues("failure").Inc()
		return false, &util.FeedbackUnavailableError{AnswerID: answer.ID, Err: err}
	}
	monitoring.AIFeedbackRequests.WithLabelValues("success").Inc()

	entry := &model.AIFeedbackLog{
		AnswerID: answer.ID,
		Model:    completion.Model,
		Prompt:   prompt,
		Response: completion.Text,
	}
	if json.Valid(completion.Raw) {
		entry.RawResponse = datatypes.JSON(completion.Raw)
	}
	attached, err := s.ledger.AttachAIFeedback(entry)
	if err != nil {
		return false, &util.FeedbackUnavailableError{AnswerID: answer.ID, Err: err}
	}
	if !attached {
		logger.Log.Info("Answer already has AI feedback",
			zap.String("run_id", runID),
			zap.Uint("answer_id", answer.ID))
		return false, nil
	}

	s.archiveLog(ctx, runID, entry)
	if err := s.publisher.Publish(events.FeedbackAI, map[string]interface{}{
		"answerId": answer.ID,
		"userId":   answer.UserID,
		"model":    completion.Model,
		"runId":    runID,
	}); err != nil {
		logger.Log.Warn("Failed to publish event", zap.String("type", events.FeedbackAI), zap.Error(err))
	}
	return true, nil
}

// archiveLog copies the log entry to object storage. Failures are only logged.
func (s *AIFeedbackService) archiveLog(ctx context.Context, runID string, entry *model.AIFeedbackLog) {
	if s.archive == nil {
		return
	}
	body, err := json.Marshal(entry)
	if err != nil {
		logger.Log.Warn("Failed to encode AI feedback log", zap.Error(err))
		return
	}
	name := fmt.Sprintf("ai-feedback/%s/answer-%d.json", runID, entry.AnswerID)
	if _, err := storage.PutBytes(ctx, s.archive, name, body, "application/json"); err != nil {
		logger.Log.Warn("Failed to archive AI feedback log", zap.String("object", name), zap.Error(err))
	}
}
