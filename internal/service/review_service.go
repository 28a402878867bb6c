package service

import (
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/events"
	"quiz_backend/pkg/logger"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ReviewedAnswer is one attempt as shown in a quiz review.
type ReviewedAnswer struct {
	Answer        model.Answer     `json:"answer"`
	Feedback      ResolvedFeedback `json:"feedback"`
	IsLastAttempt bool             `json:"isLastAttempt"`
}

// ReviewService serves learner reviews and the instructor feedback workflow.
type ReviewService struct {
	answers   *repository.AnswerRepository
	quizzes   *repository.QuizRepository
	courses   *repository.CourseRepository
	ledger    *AttemptLedger
	resolver  *FeedbackResolver
	publisher events.Publisher
}

func NewReviewService(answers *repository.AnswerRepository, quizzes *repository.QuizRepository,
	courses *repository.CourseRepository, ledger *AttemptLedger, resolver *FeedbackResolver,
	publisher events.Publisher) *ReviewService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ReviewService{
		answers:   answers,
		quizzes:   quizzes,
		courses:   courses,
		ledger:    ledger,
		resolver:  resolver,
		publisher: publisher,
	}
}

// QuizReview lists the user's attempts in question order, then attempt order.
func (s *ReviewService) QuizReview(quizID, userID uint) ([]ReviewedAnswer, error) {
	if _, err := s.quizzes.FindByID(quizID); err != nil {
		return nil, err
	}
	answers, err := s.answers.ListByQuizAndUser(quizID, userID)
	if err != nil {
		return nil, err
	}

	latest := make(map[uint]int)
	for _, a := range answers {
		latest[a.QuestionID] = max(latest[a.QuestionID], a.AttemptNumber)
	}

	review := make([]ReviewedAnswer, 0, len(answers))
	for _, a := range answers {
		var qt model.QuestionType
		if a.Question != nil {
			qt = a.Question.Type
		}
		review = append(review, ReviewedAnswer{
			Answer:        a,
			Feedback:      s.resolver.Resolve(qt, &a),
			IsLastAttempt: a.AttemptNumber == latest[a.QuestionID],
		})
	}
	return review, nil
}

// TextAnswersForReview lists the user's free-text answers in the quiz.
func (s *ReviewService) TextAnswersForReview(quizID, userID uint) ([]model.Answer, error) {
	if _, err := s.quizzes.FindByID(quizID); err != nil {
		return nil, err
	}
	return s.answers.ListTextByQuizAndUser(quizID, userID)
}

func (s *ReviewService) QuizFeedbackSummary(quizID uint) ([]repository.FeedbackSummaryRow, error) {
	if _, err := s.quizzes.FindByID(quizID); err != nil {
		return nil, err
	}
	return s.answers.FeedbackSummaryByQuiz(quizID)
}

func (s *ReviewService) CourseFeedbackSummary(courseID uint) ([]repository.FeedbackSummaryRow, error) {
	if _, err := s.courses.FindByID(courseID); err != nil {
		return nil, err
	}
	return s.answers.FeedbackSummaryByCourse(courseID)
}

// SetInstructorFeedback attaches feedback to one answer; blank text clears it.
func (s *ReviewService) SetInstructorFeedback(answerID, instructorID uint, text string) error {
	if err := s.ledger.AttachInstructorFeedback(answerID, instructorID, text); err != nil {
		return err
	}
	if err := s.publisher.Publish(events.FeedbackManual, map[string]interface{}{
		"answerId":     answerID,
		"instructorId": instructorID,
		"cleared":      strings.TrimSpace(text) == "",
	}); err != nil {
		logger.Log.Warn("Failed to publish event", zap.String("type", events.FeedbackManual), zap.Error(err))
	}
	return nil
}

// SetInstructorFeedbackBatch applies feedback to several text answers of one
// user in one quiz. Every answer id is checked before anything is written.
func (s *ReviewService) SetInstructorFeedbackBatch(quizID, userID, instructorID uint, feedback map[uint]string) error {
	answers, err := s.TextAnswersForReview(quizID, userID)
	if err != nil {
		return err
	}
	known := make(map[uint]bool, len(answers))
	for _, a := range answers {
		known[a.ID] = true
	}

	ids := make([]uint, 0, len(feedback))
	for id := range feedback {
		if !known[id] {
			return util.NewNotFoundError("answer", id)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := s.SetInstructorFeedback(id, instructorID, feedback[id]); err != nil {
			return err
		}
	}
	return nil
}
