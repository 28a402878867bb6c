package service

import (
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"time"
)

// ProgressionEngine walks a quiz's ordered questions for one learner.
type ProgressionEngine struct {
	questions *repository.QuestionRepository
	quizzes   *repository.QuizRepository
	answers   *repository.AnswerRepository
	ledger    *AttemptLedger
}

func NewProgressionEngine(questions *repository.QuestionRepository, quizzes *repository.QuizRepository,
	answers *repository.AnswerRepository, ledger *AttemptLedger) *ProgressionEngine {
	return &ProgressionEngine{
		questions: questions,
		quizzes:   quizzes,
		answers:   answers,
		ledger:    ledger,
	}
}

// NextQuestion is the lowest-ordered question after this one that the user has
// never answered, or nil.
func (p *ProgressionEngine) NextQuestion(question *model.Question, userID uint) (*model.Question, error) {
	return p.questions.FirstUnansweredAfter(question.QuizID, question.Order, userID)
}

// PreviousQuestion is the highest-ordered unanswered question before this one, or nil.
func (p *ProgressionEngine) PreviousQuestion(question *model.Question, userID uint) (*model.Question, error) {
	return p.questions.LastUnansweredBefore(question.QuizID, question.Order, userID)
}

func (p *ProgressionEngine) IsLastQuestion(question *model.Question, userID uint) (bool, error) {
	next, err := p.NextQuestion(question, userID)
	if err != nil {
		return false, err
	}
	return next == nil, nil
}

// QuizCompleted is true when every question of a non-empty quiz is completed.
func (p *ProgressionEngine) QuizCompleted(quizID, userID uint) (bool, error) {
	qs, err := p.questions.ListByQuiz(quizID)
	if err != nil {
		return false, err
	}
	done, err := p.ledger.CompletedQuestionIDs(quizID, userID)
	if err != nil {
		return false, err
	}
	return allCompleted(qs, done), nil
}

func allCompleted(qs []model.Question, done map[uint]bool) bool {
	if len(qs) == 0 {
		return false
	}
	for _, q := range qs {
		if !done[q.ID] {
			return false
		}
	}
	return true
}

func firstIncomplete(qs []model.Question, done map[uint]bool) *uint {
	for _, q := range qs {
		if !done[q.ID] {
			id := q.ID
			return &id
		}
	}
	return nil
}

// NextIncompleteQuestionID returns the first question by order outside the
// completion frontier; nil for an empty or finished quiz.
func (p *ProgressionEngine) NextIncompleteQuestionID(quizID, userID uint) (*uint, error) {
	if _, err := p.quizzes.FindByID(quizID); err != nil {
		return nil, err
	}
	qs, err := p.questions.ListByQuiz(quizID)
	if err != nil {
		return nil, err
	}
	done, err := p.ledger.CompletedQuestionIDs(quizID, userID)
	if err != nil {
		return nil, err
	}
	return firstIncomplete(qs, done), nil
}

type QuizProgress struct {
	QuizID                   uint       `json:"quizId"`
	Title                    string     `json:"title"`
	Deadline                 *time.Time `json:"deadline,omitempty"`
	QuestionCount            int        `json:"questionCount"`
	CompletedCount           int        `json:"completedCount"`
	Completed                bool       `json:"completed"`
	NextIncompleteQuestionID *uint      `json:"nextIncompleteQuestionId,omitempty"`
}

// CourseProgress summarises every quiz of the course for the user from one
// question listing and one attempt aggregate.
func (p *ProgressionEngine) CourseProgress(courseID, userID uint) ([]QuizProgress, error) {
	quizzes, err := p.quizzes.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	qs, err := p.questions.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	stats, err := p.answers.AttemptStatsByCourse(courseID, userID)
	if err != nil {
		return nil, err
	}
	done := completedSet(stats)

	byQuiz := make(map[uint][]model.Question, len(quizzes))
	for _, q := range qs {
		byQuiz[q.QuizID] = append(byQuiz[q.QuizID], q)
	}

	progress := make([]QuizProgress, 0, len(quizzes))
	for _, quiz := range quizzes {
		quizQuestions := byQuiz[quiz.ID]
		completed := 0
		for _, q := range quizQuestions {
			if done[q.ID] {
				completed++
			}
		}
		progress = append(progress, QuizProgress{
			QuizID:                   quiz.ID,
			Title:                    quiz.Title,
			Deadline:                 quiz.Deadline,
			QuestionCount:            len(quizQuestions),
			CompletedCount:           completed,
			Completed:                allCompleted(quizQuestions, done),
			NextIncompleteQuestionID: firstIncomplete(quizQuestions, done),
		})
	}
	return progress, nil
}
