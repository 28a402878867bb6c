package service

import (
	"context"
	"math"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"
	"sort"
)

// MultiChoiceScore is the outcome of scoring one multi-select submission.
type MultiChoiceScore struct {
	CorrectlyChosen   int
	IncorrectlyChosen int
	Points            float64
	IsCorrect         bool
	// MissingCount is |correct| - |selected| and goes negative on over-selection.
	MissingCount int
}

// ScoreMultiChoice awards the fraction of correct options chosen, minus
// 1/(|correct| + |correct not chosen|) per wrongly chosen option, clamped to
// [0, 1] and rounded to two decimals. Duplicate ids count once.
func ScoreMultiChoice(correctIDs, selectedIDs []uint) MultiChoiceScore {
	correct := make(map[uint]bool, len(correctIDs))
	for _, id := range correctIDs {
		correct[id] = true
	}
	selected := make(map[uint]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	var s MultiChoiceScore
	for id := range selected {
		if correct[id] {
			s.CorrectlyChosen++
		} else {
			s.IncorrectlyChosen++
		}
	}
	notChosen := len(correct) - s.CorrectlyChosen

	var pointsForCorrect, penaltyPerIncorrect float64
	if len(correct) > 0 {
		pointsForCorrect = float64(s.CorrectlyChosen) / float64(len(correct))
	}
	if denom := len(correct) + notChosen; denom > 0 {
		penaltyPerIncorrect = 1 / float64(denom)
	}

	points := pointsForCorrect - float64(s.IncorrectlyChosen)*penaltyPerIncorrect
	points = math.Min(1, math.Max(0, points))
	s.Points = math.Round(points*100) / 100

	s.IsCorrect = s.IncorrectlyChosen == 0 && notChosen == 0
	s.MissingCount = len(correct) - len(selected)
	return s
}

// Evaluation is the verdict on one choice submission together with the
// attempt it was recorded as.
type Evaluation struct {
	Answer       *model.Answer
	Selected     []model.Option
	IsCorrect    bool
	Points       float64
	MissingCount int
}

type ScoringEngine struct {
	ledger *AttemptLedger
}

func NewScoringEngine(ledger *AttemptLedger) *ScoringEngine {
	return &ScoringEngine{ledger: ledger}
}

// selectOptions resolves ids against the question's loaded options, keeping
// display order and dropping duplicates.
func selectOptions(question *model.Question, ids []uint) ([]model.Option, error) {
	seen := make(map[uint]bool, len(ids))
	selected := make([]model.Option, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		opt, ok := question.OptionByID(id)
		if !ok {
			return nil, util.NewNotFoundError("option", id)
		}
		selected = append(selected, *opt)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].DisplayOrder < selected[j].DisplayOrder
	})
	return selected, nil
}

// EvaluateSingleChoice scores a single-answer question: 1 point for a correct
// option, 0 otherwise. The attempt is recorded either way.
func (s *ScoringEngine) EvaluateSingleChoice(ctx context.Context, question *model.Question, userID, optionID uint) (*Evaluation, error) {
	if question.Type != model.SingleChoice {
		return nil, util.NewValidationError("type", "question is not single choice")
	}
	selected, err := selectOptions(question, []uint{optionID})
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{Selected: selected, IsCorrect: selected[0].IsCorrect}
	if ev.IsCorrect {
		ev.Points = 1
	}

	ev.Answer, err = s.ledger.RecordAnswer(ctx, question, userID, AnswerContent{
		SelectedOptions: selected,
		Points:          ev.Points,
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// EvaluateMultiChoice scores a multi-select question with ScoreMultiChoice and
// records the attempt whatever the result.
func (s *ScoringEngine) EvaluateMultiChoice(ctx context.Context, question *model.Question, userID uint, optionIDs []uint) (*Evaluation, error) {
	if question.Type != model.MultiChoice {
		return nil, util.NewValidationError("type", "question is not multiple choice")
	}
	if len(optionIDs) == 0 {
		return nil, util.NewValidationError("optionIds", "at least one option must be selected")
	}
	selected, err := selectOptions(question, optionIDs)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(selected))
	for i, o := range selected {
		ids[i] = o.ID
	}
	score := ScoreMultiChoice(question.CorrectOptionIDs(), ids)

	ev := &Evaluation{
		Selected:     selected,
		IsCorrect:    score.IsCorrect,
		Points:       score.Points,
		MissingCount: score.MissingCount,
	}
	ev.Answer, err = s.ledger.RecordAnswer(ctx, question, userID, AnswerContent{
		SelectedOptions: selected,
		Points:          score.Points,
		MissingCount:    score.MissingCount,
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}
