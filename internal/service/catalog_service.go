package service

import (
	"errors"
	"math/rand"
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// OptionOrderSource yields the display order stored on a new option.
type OptionOrderSource interface {
	Next() int
}

// RandomOrderSource draws uniformly from [Min, Max].
type RandomOrderSource struct {
	Min, Max int
}

func (s RandomOrderSource) Next() int {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + rand.Intn(s.Max-s.Min+1)
}

type CourseInput struct {
	Title          string `json:"title" validate:"required,max=200"`
	Description    string `json:"description"`
	AIPromptFormat string `json:"aiPromptFormat"`
	AIAPIKey       string `json:"aiApiKey"`
	AIModel        string `json:"aiModel" validate:"max=100"`
}

type QuizInput struct {
	Title    string     `json:"title" validate:"required,max=200"`
	Deadline *time.Time `json:"deadline"`
}

type OptionInput struct {
	Text      string  `json:"text" validate:"required,max=200"`
	IsCorrect bool    `json:"isCorrect"`
	Feedback  *string `json:"feedback"`
}

type QuestionInput struct {
	Text              string             `json:"text" validate:"required"`
	Type              model.QuestionType `json:"type" validate:"required,oneof=ST LT MC MM"`
	MaxAttempts       *int               `json:"maxAttempts" validate:"omitempty,min=1,max=100"`
	ExampleAnswer     string             `json:"exampleAnswer"`
	AIFeedbackEnabled bool               `json:"aiFeedbackEnabled"`
	Options           []OptionInput      `json:"options" validate:"dive"`
}

// CatalogService manages courses, quizzes and questions for instructors.
type CatalogService struct {
	courses            *repository.CourseRepository
	quizzes            *repository.QuizRepository
	questions          *repository.QuestionRepository
	orders             OptionOrderSource
	validate           *validator.Validate
	defaultMaxAttempts int
}

func NewCatalogService(courses *repository.CourseRepository, quizzes *repository.QuizRepository,
	questions *repository.QuestionRepository, orders OptionOrderSource, defaultMaxAttempts int) *CatalogService {
	if defaultMaxAttempts < 1 {
		defaultMaxAttempts = model.DefaultMaxAttempts
	}
	return &CatalogService{
		courses:            courses,
		quizzes:            quizzes,
		questions:          questions,
		orders:             orders,
		validate:           validator.New(),
		defaultMaxAttempts: defaultMaxAttempts,
	}
}

// check runs the struct validation and reports the first failing field.
func (s *CatalogService) check(in interface{}) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return util.NewValidationError(fe.Namespace(), "failed on '"+fe.Tag()+"'")
	}
	return util.NewValidationError("", err.Error())
}

func (s *CatalogService) ListCourses() ([]model.Course, error) {
	return s.courses.List()
}

func (s *CatalogService) GetCourse(id uint) (*model.Course, error) {
	return s.courses.FindByID(id)
}

func (s *CatalogService) CreateCourse(in CourseInput) (*model.Course, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	course := &model.Course{}
	applyCourseInput(course, in)
	if err := s.courses.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CatalogService) UpdateCourse(id uint, in CourseInput) (*model.Course, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(id)
	if err != nil {
		return nil, err
	}
	key := course.AIAPIKey
	applyCourseInput(course, in)
	// the key is never sent back to clients, so an omitted key keeps the stored one
	if strings.TrimSpace(in.AIAPIKey) == "" {
		course.AIAPIKey = key
	}
	if err := s.courses.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func applyCourseInput(c *model.Course, in CourseInput) {
	c.Title = strings.TrimSpace(in.Title)
	c.Description = in.Description
	c.AIPromptFormat = in.AIPromptFormat
	c.AIAPIKey = in.AIAPIKey
	c.AIModel = in.AIModel
}

func (s *CatalogService) DeleteCourse(id uint) error {
	return s.courses.Delete(id)
}

func (s *CatalogService) ListQuizzes(courseID uint) ([]model.Quiz, error) {
	if _, err := s.courses.FindByID(courseID); err != nil {
		return nil, err
	}
	return s.quizzes.ListByCourse(courseID)
}

func (s *CatalogService) GetQuiz(id uint) (*model.Quiz, error) {
	return s.quizzes.FindByID(id)
}

func (s *CatalogService) CreateQuiz(courseID uint, in QuizInput) (*model.Quiz, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(courseID); err != nil {
		return nil, err
	}
	quiz := &model.Quiz{CourseID: courseID, Title: strings.TrimSpace(in.Title), Deadline: in.Deadline}
	if err := s.quizzes.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *CatalogService) UpdateQuiz(id uint, in QuizInput) (*model.Quiz, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.FindByID(id)
	if err != nil {
		return nil, err
	}
	quiz.Title = strings.TrimSpace(in.Title)
	quiz.Deadline = in.Deadline
	if err := s.quizzes.Update(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *CatalogService) DeleteQuiz(id uint) error {
	return s.quizzes.Delete(id)
}

func (s *CatalogService) ListQuestions(quizID uint) ([]model.Question, error) {
	if _, err := s.quizzes.FindByID(quizID); err != nil {
		return nil, err
	}
	return s.questions.ListByQuiz(quizID)
}

func (s *CatalogService) checkQuestion(in QuestionInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	switch in.Type {
	case model.ShortText, model.LongText:
		if len(in.Options) > 0 {
			return util.NewValidationError("options", "text questions take no options")
		}
	case model.SingleChoice, model.MultiChoice:
		if len(in.Options) == 0 {
			return util.NewValidationError("options", "choice questions need at least one option")
		}
	}
	seen := make(map[string]bool, len(in.Options))
	for _, o := range in.Options {
		text := strings.TrimSpace(o.Text)
		if seen[text] {
			return util.NewValidationError("options", "duplicate option text "+text)
		}
		seen[text] = true
	}
	return nil
}

// newOptions assigns each option its display order once, at construction.
func (s *CatalogService) newOptions(in []OptionInput) []model.Option {
	opts := make([]model.Option, 0, len(in))
	for _, o := range in {
		opts = append(opts, model.NewOption(strings.TrimSpace(o.Text), o.IsCorrect, o.Feedback, s.orders.Next()))
	}
	return opts
}

func (s *CatalogService) maxAttempts(in QuestionInput) int {
	if in.MaxAttempts != nil {
		return *in.MaxAttempts
	}
	return s.defaultMaxAttempts
}

// CreateQuestion appends the question to the end of the quiz.
func (s *CatalogService) CreateQuestion(quizID uint, in QuestionInput) (*model.Question, error) {
	if err := s.checkQuestion(in); err != nil {
		return nil, err
	}
	if _, err := s.quizzes.FindByID(quizID); err != nil {
		return nil, err
	}
	question := &model.Question{
		QuizID:            quizID,
		Text:              in.Text,
		Type:              in.Type,
		MaxAttempts:       s.maxAttempts(in),
		ExampleAnswer:     in.ExampleAnswer,
		AIFeedbackEnabled: in.AIFeedbackEnabled,
		Options:           s.newOptions(in.Options),
	}
	if err := s.questions.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *CatalogService) GetQuestion(id uint) (*model.Question, error) {
	return s.questions.FindByID(id)
}

// UpdateQuestion edits the question and reconciles its options by text. The
// type cannot change once created since answers depend on it.
func (s *CatalogService) UpdateQuestion(id uint, in QuestionInput) (*model.Question, error) {
	if err := s.checkQuestion(in); err != nil {
		return nil, err
	}
	question, err := s.questions.FindByID(id)
	if err != nil {
		return nil, err
	}
	if question.Type != in.Type {
		return nil, util.NewValidationError("type", "question type cannot be changed")
	}

	question.Text = in.Text
	question.MaxAttempts = s.maxAttempts(in)
	question.ExampleAnswer = in.ExampleAnswer
	question.AIFeedbackEnabled = in.AIFeedbackEnabled

	if err := s.questions.Update(question, s.newOptions(in.Options)); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *CatalogService) DeleteQuestion(id uint) error {
	return s.questions.Delete(id)
}
