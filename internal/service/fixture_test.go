package service

import (
	"context"
	"quiz_backend/internal/config"
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/pkg/database"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seqOrders hands out 10, 20, 30... so display orders are predictable.
type seqOrders struct{ n int }

func (s *seqOrders) Next() int {
	s.n += 10
	return s.n
}

type fixture struct {
	db          *gorm.DB
	users       *repository.UserRepository
	courses     *repository.CourseRepository
	quizzes     *repository.QuizRepository
	questions   *repository.QuestionRepository
	answers     *repository.AnswerRepository
	logs        *repository.AIFeedbackLogRepository
	ledger      *AttemptLedger
	scoring     *ScoringEngine
	progression *ProgressionEngine
	resolver    *FeedbackResolver
	catalog     *CatalogService
	quiz        *QuizService
	review      *ReviewService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		courses:   repository.NewCourseRepository(db),
		quizzes:   repository.NewQuizRepository(db),
		questions: repository.NewQuestionRepository(db),
		answers:   repository.NewAnswerRepository(db),
		logs:      repository.NewAIFeedbackLogRepository(db),
	}
	f.ledger = NewAttemptLedger(f.answers, NewLocalLocker(), nil)
	f.scoring = NewScoringEngine(f.ledger)
	f.progression = NewProgressionEngine(f.questions, f.quizzes, f.answers, f.ledger)
	f.resolver = NewFeedbackResolver("en")
	f.catalog = NewCatalogService(f.courses, f.quizzes, f.questions, &seqOrders{}, 2)
	f.quiz = NewQuizService(f.questions, f.ledger, f.scoring, f.progression, f.resolver)
	f.review = NewReviewService(f.answers, f.quizzes, f.courses, f.ledger, f.resolver, nil)
	return f
}

func (f *fixture) course(t *testing.T, in CourseInput) *model.Course {
	t.Helper()
	if in.Title == "" {
		in.Title = "Go basics"
	}
	c, err := f.catalog.CreateCourse(in)
	require.NoError(t, err)
	return c
}

func (f *fixture) quizIn(t *testing.T, courseID uint) *model.Quiz {
	t.Helper()
	q, err := f.catalog.CreateQuiz(courseID, QuizInput{Title: "Week 1"})
	require.NoError(t, err)
	return q
}

// newQuiz creates a course with one empty quiz.
func (f *fixture) newQuiz(t *testing.T) *model.Quiz {
	t.Helper()
	return f.quizIn(t, f.course(t, CourseInput{}).ID)
}

func (f *fixture) textQuestion(t *testing.T, quizID uint, text string) *model.Question {
	t.Helper()
	q, err := f.catalog.CreateQuestion(quizID, QuestionInput{Text: text, Type: model.ShortText})
	require.NoError(t, err)
	return q
}

// choiceQuestion creates a choice question; options named in correct are flagged correct.
func (f *fixture) choiceQuestion(t *testing.T, quizID uint, typ model.QuestionType, texts []string, correct ...string) *model.Question {
	t.Helper()
	isCorrect := make(map[string]bool, len(correct))
	for _, c := range correct {
		isCorrect[c] = true
	}
	opts := make([]OptionInput, 0, len(texts))
	for _, text := range texts {
		opts = append(opts, OptionInput{Text: text, IsCorrect: isCorrect[text]})
	}
	q, err := f.catalog.CreateQuestion(quizID, QuestionInput{Text: "Pick", Type: typ, Options: opts})
	require.NoError(t, err)
	reloaded, err := f.questions.FindByID(q.ID)
	require.NoError(t, err)
	return reloaded
}

func optionID(t *testing.T, q *model.Question, text string) uint {
	t.Helper()
	for _, o := range q.Options {
		if o.Text == text {
			return o.ID
		}
	}
	t.Fatalf("question %d has no option %q", q.ID, text)
	return 0
}

func (f *fixture) answerText(t *testing.T, q *model.Question, userID uint, text string) *model.Answer {
	t.Helper()
	a, err := f.ledger.RecordAnswer(context.Background(), q, userID, AnswerContent{Text: &text})
	require.NoError(t, err)
	return a
}

func strPtr(s string) *string { return &s }
