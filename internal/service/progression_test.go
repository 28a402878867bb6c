package service

import (
	"context"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIncompleteSkipsGap(t *testing.T) {
	f := newFixture(t)
	quiz := f.newQuiz(t)
	q1 := f.textQuestion(t, quiz.ID, "Q1")
	q2 := f.textQuestion(t, quiz.ID, "Q2")
	q3 := f.textQuestion(t, quiz.ID, "Q3")
	assert.Equal(t, []int{1, 2, 3}, []int{q1.Order, q2.Order, q3.Order})

	f.answerText(t, q1, 1, "a")
	f.answerText(t, q3, 1, "c")

	next, err := f.progression.NextIncompleteQuestionID(quiz.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, q2.ID, *next)

	completed, err := f.progression.QuizCompleted(quiz.ID, 1)
	require.NoError(t, err)
	assert.False(t, completed)

	f.answerText(t, q2, 1, "b")
	next, err = f.progression.NextIncompleteQuestionID(quiz.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, next)

	completed, err = f.progression.QuizCompleted(quiz.ID, 1)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestNextAndPreviousQuestion(t *testing.T) {
	f := newFixture(t)
	quiz := f.newQuiz(t)
	q1 := f.textQuestion(t, quiz.ID, "Q1")
	q2 := f.textQuestion(t, quiz.ID, "Q2")
	q3 := f.textQuestion(t, quiz.ID, "Q3")
	q4 := f.textQuestion(t, quiz.ID, "Q4")

	f.answerText(t, q2, 1, "b")
	f.answerText(t, q4, 1, "d")

	next, err := f.progression.NextQuestion(q1, 1)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, q3.ID, next.ID)

	next, err = f.progression.NextQuestion(q3, 1)
	require.NoError(t, err)
	assert.Nil(t, next)

	last, err := f.progression.IsLastQuestion(q3, 1)
	require.NoError(t, err)
	assert.True(t, last)

	prev, err := f.progression.PreviousQuestion(q4, 1)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, q3.ID, prev.ID)

	prev, err = f.progression.PreviousQuestion(q3, 1)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, q1.ID, prev.ID)

	prev, err = f.progression.PreviousQuestion(q1, 1)
	require.NoError(t, err)
	assert.Nil(t, prev)

	// answers of other learners do not count
	next, err = f.progression.NextQuestion(q1, 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, q2.ID, next.ID)
}

func TestEmptyQuiz(t *testing.T) {
	f := newFixture(t)
	quiz := f.newQuiz(t)

	next, err := f.progression.NextIncompleteQuestionID(quiz.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, next)

	completed, err := f.progression.QuizCompleted(quiz.ID, 1)
	require.NoError(t, err)
	assert.False(t, completed)

	_, err = f.progression.NextIncompleteQuestionID(quiz.ID+100, 1)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestChoiceQuestionStaysIncompleteUntilDone(t *testing.T) {
	f := newFixture(t)
	quiz := f.newQuiz(t)
	q1 := f.choiceQuestion(t, quiz.ID, model.SingleChoice, []string{"a", "b"}, "a")
	q2 := f.textQuestion(t, quiz.ID, "Q2")

	_, err := f.scoring.EvaluateSingleChoice(context.Background(), q1, 1, optionID(t, q1, "b"))
	require.NoError(t, err)
	f.answerText(t, q2, 1, "text")

	next, err := f.progression.NextIncompleteQuestionID(quiz.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, q1.ID, *next)
}

func TestCourseProgress(t *testing.T) {
	f := newFixture(t)
	course := f.course(t, CourseInput{})
	quizA := f.quizIn(t, course.ID)
	quizB := f.quizIn(t, course.ID)
	quizC := f.quizIn(t, course.ID)

	a1 := f.textQuestion(t, quizA.ID, "A1")
	a2 := f.textQuestion(t, quizA.ID, "A2")
	b1 := f.textQuestion(t, quizB.ID, "B1")

	f.answerText(t, a1, 1, "x")
	f.answerText(t, b1, 1, "y")

	progress, err := f.progression.CourseProgress(course.ID, 1)
	require.NoError(t, err)
	require.Len(t, progress, 3)

	assert.Equal(t, quizA.ID, progress[0].QuizID)
	assert.Equal(t, 2, progress[0].QuestionCount)
	assert.Equal(t, 1, progress[0].CompletedCount)
	assert.False(t, progress[0].Completed)
	require.NotNil(t, progress[0].NextIncompleteQuestionID)
	assert.Equal(t, a2.ID, *progress[0].NextIncompleteQuestionID)

	assert.Equal(t, quizB.ID, progress[1].QuizID)
	assert.True(t, progress[1].Completed)
	assert.Nil(t, progress[1].NextIncompleteQuestionID)

	assert.Equal(t, quizC.ID, progress[2].QuizID)
	assert.Zero(t, progress[2].QuestionCount)
	assert.False(t, progress[2].Completed)
}
