package service

import (
	"context"
	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"strings"
)

// OptionRef is an option id as sent by a client, either a JSON number or a
// string. It is parsed strictly when the submission is handled.
type OptionRef string

func (r *OptionRef) UnmarshalJSON(b []byte) error {
	*r = OptionRef(strings.Trim(string(b), `"`))
	return nil
}

type SubmissionInput struct {
	AnswerText *string     `json:"answerText"`
	OptionID   *OptionRef  `json:"optionId"`
	OptionIDs  []OptionRef `json:"optionIds"`
}

type SubmissionResult struct {
	Answer             *model.Answer    `json:"answer"`
	IsCorrect          *bool            `json:"isCorrect,omitempty"`
	Points             float64          `json:"points"`
	MissingCount       int              `json:"missingCount"`
	Feedback           ResolvedFeedback `json:"feedback"`
	FeedbackType       string           `json:"feedbackType"`
	CanContinue        bool             `json:"canContinue"`
	NextQuestionID     *uint            `json:"nextQuestionId,omitempty"`
	PreviousQuestionID *uint            `json:"previousQuestionId,omitempty"`
	RemainingAttempts  int              `json:"remainingAttempts"`
	QuizCompleted      bool             `json:"quizCompleted"`
}

// OptionView hides correctness from learners.
type OptionView struct {
	ID           uint   `json:"id"`
	Text         string `json:"text"`
	DisplayOrder int    `json:"displayOrder"`
}

type QuestionView struct {
	ID                 uint               `json:"id"`
	QuizID             uint               `json:"quizId"`
	Text               string             `json:"text"`
	Type               model.QuestionType `json:"type"`
	Order              int                `json:"order"`
	MaxAttempts        int                `json:"maxAttempts"`
	Options            []OptionView       `json:"options"`
	NextQuestionID     *uint              `json:"nextQuestionId,omitempty"`
	PreviousQuestionID *uint              `json:"previousQuestionId,omitempty"`
	IsLastQuestion     bool               `json:"isLastQuestion"`
	RemainingAttempts  int                `json:"remainingAttempts"`
}

// QuizService drives a learner through a quiz: it shows questions and turns
// submissions into scored attempts.
type QuizService struct {
	questions   *repository.QuestionRepository
	ledger      *AttemptLedger
	scoring     *ScoringEngine
	progression *ProgressionEngine
	resolver    *FeedbackResolver
}

func NewQuizService(questions *repository.QuestionRepository, ledger *AttemptLedger, scoring *ScoringEngine,
	progression *ProgressionEngine, resolver *FeedbackResolver) *QuizService {
	return &QuizService{
		questions:   questions,
		ledger:      ledger,
		scoring:     scoring,
		progression: progression,
		resolver:    resolver,
	}
}

func questionID(q *model.Question) *uint {
	if q == nil {
		return nil
	}
	id := q.ID
	return &id
}

func (s *QuizService) neighbours(question *model.Question, userID uint) (next, prev *uint, err error) {
	n, err := s.progression.NextQuestion(question, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.progression.PreviousQuestion(question, userID)
	if err != nil {
		return nil, nil, err
	}
	return questionID(n), questionID(p), nil
}

// GetQuestion returns the question as a learner sees it, options in their
// stored display order.
func (s *QuizService) GetQuestion(questionID, userID uint) (*QuestionView, error) {
	question, err := s.questions.FindByID(questionID)
	if err != nil {
		return nil, err
	}
	next, prev, err := s.neighbours(question, userID)
	if err != nil {
		return nil, err
	}
	remaining, err := s.ledger.RemainingAttempts(question, userID)
	if err != nil {
		return nil, err
	}

	view := &QuestionView{
		ID:                 question.ID,
		QuizID:             question.QuizID,
		Text:               question.Text,
		Type:               question.Type,
		Order:              question.Order,
		MaxAttempts:        question.MaxAttempts,
		Options:            make([]OptionView, 0, len(question.Options)),
		NextQuestionID:     next,
		PreviousQuestionID: prev,
		IsLastQuestion:     next == nil,
		RemainingAttempts:  remaining,
	}
	for _, o := range question.Options {
		view.Options = append(view.Options, OptionView{ID: o.ID, Text: o.Text, DisplayOrder: o.DisplayOrder})
	}
	return view, nil
}

// Submit records one attempt at the question, dispatching on its type.
func (s *QuizService) Submit(ctx context.Context, questionID, userID uint, in SubmissionInput) (*SubmissionResult, error) {
	question, err := s.questions.FindByID(questionID)
	if err != nil {
		return nil, err
	}

	var result *SubmissionResult
	switch question.Type {
	case model.ShortText, model.LongText:
		result, err = s.submitText(ctx, question, userID, in)
	case model.SingleChoice:
		result, err = s.submitSingle(ctx, question, userID, in)
	case model.MultiChoice:
		result, err = s.submitMulti(ctx, question, userID, in)
	default:
		err = util.NewValidationError("type", "unknown question type "+question.Type.String())
	}
	if err != nil {
		return nil, err
	}

	if result.NextQuestionID, result.PreviousQuestionID, err = s.neighbours(question, userID); err != nil {
		return nil, err
	}
	if result.RemainingAttempts, err = s.ledger.RemainingAttempts(question, userID); err != nil {
		return nil, err
	}
	if result.QuizCompleted, err = s.progression.QuizCompleted(question.QuizID, userID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *QuizService) submitText(ctx context.Context, question *model.Question, userID uint, in SubmissionInput) (*SubmissionResult, error) {
	if in.OptionID != nil || len(in.OptionIDs) > 0 {
		return nil, util.NewValidationError("optionIds", "text questions take no options")
	}
	answer, err := s.ledger.RecordAnswer(ctx, question, userID, AnswerContent{Text: in.AnswerText})
	if err != nil {
		return nil, err
	}
	return &SubmissionResult{
		Answer:       answer,
		Feedback:     ResolvedFeedback{Source: SourceNone, Text: s.resolver.Messages().AnswerSaved},
		FeedbackType: util.FeedbackInfo,
		CanContinue:  true,
	}, nil
}

func (s *QuizService) submitSingle(ctx context.Context, question *model.Question, userID uint, in SubmissionInput) (*SubmissionResult, error) {
	if in.OptionID == nil {
		return nil, util.NewValidationError("optionId", "an option must be selected")
	}
	optionID, err := util.ParseID("optionId", string(*in.OptionID))
	if err != nil {
		return nil, err
	}
	ev, err := s.scoring.EvaluateSingleChoice(ctx, question, userID, optionID)
	if err != nil {
		return nil, err
	}
	return s.choiceResult(question, ev), nil
}

func (s *QuizService) submitMulti(ctx context.Context, question *model.Question, userID uint, in SubmissionInput) (*SubmissionResult, error) {
	if len(in.OptionIDs) == 0 {
		return nil, util.NewValidationError("optionIds", "at least one option must be selected")
	}
	raw := make([]string, len(in.OptionIDs))
	for i, r := range in.OptionIDs {
		raw[i] = string(r)
	}
	ids, err := util.ParseIDs("optionIds", raw)
	if err != nil {
		return nil, err
	}
	ev, err := s.scoring.EvaluateMultiChoice(ctx, question, userID, ids)
	if err != nil {
		return nil, err
	}
	return s.choiceResult(question, ev), nil
}

func (s *QuizService) choiceResult(question *model.Question, ev *Evaluation) *SubmissionResult {
	correct := ev.IsCorrect
	feedbackType := util.FeedbackWarning
	if correct {
		feedbackType = util.FeedbackSuccess
	}
	return &SubmissionResult{
		Answer:       ev.Answer,
		IsCorrect:    &correct,
		Points:       ev.Points,
		MissingCount: ev.MissingCount,
		Feedback:     s.resolver.Resolve(question.Type, ev.Answer),
		FeedbackType: feedbackType,
		CanContinue:  correct,
	}
}
