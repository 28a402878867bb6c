package controller

import (
	"errors"
	"net/http"
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// FeedbackController is the instructor review workflow.
type FeedbackController struct {
	Review *service.ReviewService
	AI     *service.AIFeedbackService
}

func NewFeedbackController(review *service.ReviewService, ai *service.AIFeedbackService) *FeedbackController {
	return &FeedbackController{Review: review, AI: ai}
}

// FeedbackRequest maps answer ids to feedback text; blank text clears.
type FeedbackRequest struct {
	Feedback map[string]string `json:"feedback" binding:"required"`
}

// @Summary Feedback summary of a quiz
// @Description Per user: text questions answered and answers still without instructor feedback
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /teacher/quizzes/{id}/feedback [get]
func (c *FeedbackController) QuizSummary(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	rows, err := c.Review.QuizFeedbackSummary(quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// @Summary Feedback summary of a course
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response
// @Router /teacher/courses/{id}/feedback [get]
func (c *FeedbackController) CourseSummary(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	rows, err := c.Review.CourseFeedbackSummary(courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// @Summary Text answers of a user in a quiz
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param userId path int true "User ID"
// @Success 200 {object} util.Response
// @Router /teacher/quizzes/{id}/users/{userId}/answers [get]
func (c *FeedbackController) UserAnswers(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	answers, err := c.Review.TextAnswersForReview(quizID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Summary Save instructor feedback
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param userId path int true "User ID"
// @Param body body FeedbackRequest true "Feedback by answer id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /teacher/quizzes/{id}/users/{userId}/feedback [post]
func (c *FeedbackController) SaveFeedback(ctx *gin.Context) {
	instructor, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	feedback := make(map[uint]string, len(req.Feedback))
	for key, text := range req.Feedback {
		answerID, err := util.ParseID("feedback", key)
		if err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		feedback[answerID] = text
	}

	if err := c.Review.SetInstructorFeedbackBatch(quizID, userID, instructor.UserID, feedback); err != nil {
		util.HandleError(ctx, err)
		return
	}
	answers, err := c.Review.TextAnswersForReview(quizID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Summary Request AI feedback
// @Description Evaluates the user's pending text answers one by one and stops at the first failure
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param userId path int true "User ID"
// @Success 200 {object} util.Response{data=service.BatchResult}
// @Failure 502 {object} util.Response{data=service.BatchResult}
// @Router /teacher/quizzes/{id}/users/{userId}/ai-evaluation [post]
func (c *FeedbackController) EvaluateWithAI(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	result, err := c.AI.EvaluatePending(ctx.Request.Context(), quizID, userID)
	if err != nil {
		if errors.Is(err, util.ErrFeedbackUnavailable) && result != nil {
			ctx.JSON(http.StatusBadGateway, util.Response{
				Code:    http.StatusBadGateway,
				Message: err.Error(),
				Data:    result,
			})
			return
		}
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Request AI feedback for one answer
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param answerId path int true "Answer ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /teacher/answers/{answerId}/ai-evaluation [post]
func (c *FeedbackController) EvaluateAnswerWithAI(ctx *gin.Context) {
	answerID, ok := pathID(ctx, "answerId")
	if !ok {
		return
	}
	answer, err := c.AI.EvaluateAnswer(ctx.Request.Context(), answerID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}
