package service

import (
	"fmt"
	"quiz_backend/internal/model"
	"strings"
)

// FeedbackSource tells where the displayed feedback came from.
type FeedbackSource string

const (
	SourceNone       FeedbackSource = "none"
	SourceInstructor FeedbackSource = "instructor"
	SourceAI         FeedbackSource = "ai"
	SourceOptions    FeedbackSource = "options"
)

// FeedbackItem pairs a selected option's label with the text shown for it.
type FeedbackItem struct {
	OptionID  uint   `json:"optionId"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type ResolvedFeedback struct {
	Source FeedbackSource `json:"source"`
	Text   string         `json:"text,omitempty"`
	Items  []FeedbackItem `json:"items,omitempty"`
}

// Messages are the localized generic feedback strings.
type Messages struct {
	Correct     string
	Incorrect   string
	AnswerSaved string
}

var messageCatalog = map[string]Messages{
	"en": {
		Correct:     "Correct answer",
		Incorrect:   "Incorrect answer",
		AnswerSaved: "Your answer has been saved",
	},
	"cs": {
		Correct:     "Správná odpověď",
		Incorrect:   "Špatná odpověď",
		AnswerSaved: "Odpověď byla uložena",
	},
}

type FeedbackResolver struct {
	messages Messages
}

// NewFeedbackResolver falls back to English for unknown locales.
func NewFeedbackResolver(locale string) *FeedbackResolver {
	msgs, ok := messageCatalog[strings.ToLower(locale)]
	if !ok {
		msgs = messageCatalog["en"]
	}
	return &FeedbackResolver{messages: msgs}
}

func (r *FeedbackResolver) Messages() Messages {
	return r.messages
}

// OptionFeedback is the option's own feedback or the generic verdict text.
func (r *FeedbackResolver) OptionFeedback(o model.Option) string {
	if o.Feedback != nil && strings.TrimSpace(*o.Feedback) != "" {
		return *o.Feedback
	}
	if o.IsCorrect {
		return r.messages.Correct
	}
	return r.messages.Incorrect
}

// Resolve picks the feedback to display for an answer. Text questions show
// instructor feedback over AI feedback; choice questions show one item per
// selected option.
func (r *FeedbackResolver) Resolve(questionType model.QuestionType, answer *model.Answer) ResolvedFeedback {
	switch questionType {
	case model.ShortText, model.LongText:
		if answer.AdminFeedback != nil && *answer.AdminFeedback != "" {
			return ResolvedFeedback{Source: SourceInstructor, Text: *answer.AdminFeedback}
		}
		if answer.AIFeedback != nil && *answer.AIFeedback != "" {
			return ResolvedFeedback{Source: SourceAI, Text: *answer.AIFeedback}
		}
		return ResolvedFeedback{Source: SourceNone}
	case model.SingleChoice, model.MultiChoice:
		return r.resolveOptions(questionType, answer.SelectedOptions)
	default:
		return ResolvedFeedback{Source: SourceNone}
	}
}

func (r *FeedbackResolver) resolveOptions(questionType model.QuestionType, selected []model.Option) ResolvedFeedback {
	if len(selected) == 0 {
		return ResolvedFeedback{Source: SourceNone}
	}

	items := make([]FeedbackItem, 0, len(selected))
	for _, o := range selected {
		items = append(items, FeedbackItem{
			OptionID:  o.ID,
			Label:     o.Text,
			Text:      r.OptionFeedback(o),
			IsCorrect: o.IsCorrect,
		})
	}

	if questionType == model.SingleChoice {
		return ResolvedFeedback{Source: SourceOptions, Text: items[0].Text, Items: items[:1]}
	}

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s: %s", i+1, it.Label, it.Text)
	}
	return ResolvedFeedback{Source: SourceOptions, Text: strings.Join(lines, "\n"), Items: items}
}
