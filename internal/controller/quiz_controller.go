package controller

import (
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuizController serves the learner side: browsing, answering and reviewing.
type QuizController struct {
	Catalog     *service.CatalogService
	Quiz        *service.QuizService
	Progression *service.ProgressionEngine
	Review      *service.ReviewService
}

func NewQuizController(catalog *service.CatalogService, quiz *service.QuizService,
	progression *service.ProgressionEngine, review *service.ReviewService) *QuizController {
	return &QuizController{
		Catalog:     catalog,
		Quiz:        quiz,
		Progression: progression,
		Review:      review,
	}
}

// @Summary List courses
// @Tags learner
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /courses [get]
func (c *QuizController) ListCourses(ctx *gin.Context) {
	courses, err := c.Catalog.ListCourses()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary Course progress of the caller
// @Description Per quiz: question count, completed count and the next incomplete question
// @Tags learner
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /courses/{id}/progress [get]
func (c *QuizController) CourseProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if _, err := c.Catalog.GetCourse(courseID); err != nil {
		util.HandleError(ctx, err)
		return
	}

	progress, err := c.Progression.CourseProgress(courseID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary Next incomplete question of a quiz
// @Tags learner
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quizzes/{id}/next-incomplete [get]
func (c *QuizController) NextIncomplete(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	next, err := c.Progression.NextIncompleteQuestionID(quizID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	completed, err := c.Progression.QuizCompleted(quizID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"questionId":    next,
		"quizCompleted": completed,
	})
}

// @Summary Review the caller's answers in a quiz
// @Tags learner
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quizzes/{id}/review [get]
func (c *QuizController) QuizReview(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	review, err := c.Review.QuizReview(quizID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// @Summary Get a question
// @Description Options come in their stored display order without correctness flags
// @Tags learner
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response{data=service.QuestionView}
// @Failure 404 {object} util.Response
// @Router /questions/{id} [get]
func (c *QuizController) GetQuestion(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Quiz.GetQuestion(questionID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Submit an answer
// @Description Text questions take answerText, single choice optionId, multiple choice optionIds
// @Tags learner
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Param body body service.SubmissionInput true "Submission"
// @Success 201 {object} util.Response{data=service.SubmissionResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /questions/{id}/answers [post]
func (c *QuizController) SubmitAnswer(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var in service.SubmissionInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Quiz.Submit(ctx.Request.Context(), questionID, user.UserID, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}
