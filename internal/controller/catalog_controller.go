package controller

import (
	"net/http"
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CatalogController is the instructor CRUD for courses, quizzes and questions.
type CatalogController struct {
	Service *service.CatalogService
}

func NewCatalogController(svc *service.CatalogService) *CatalogController {
	return &CatalogController{Service: svc}
}

// @Summary Create a course
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CourseInput true "Course"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /teacher/courses [post]
func (c *CatalogController) CreateCourse(ctx *gin.Context) {
	var in service.CourseInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Service.CreateCourse(in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary Update a course
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Param body body service.CourseInput true "Course"
// @Success 200 {object} util.Response
// @Router /teacher/courses/{id} [put]
func (c *CatalogController) UpdateCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in service.CourseInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Service.UpdateCourse(id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary Delete a course
// @Description Cascades to quizzes and questions; refused while any question has answers
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 204
// @Failure 409 {object} util.Response
// @Router /teacher/courses/{id} [delete]
func (c *CatalogController) DeleteCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Service.DeleteCourse(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// @Summary List the quizzes of a course
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response
// @Router /teacher/courses/{id}/quizzes [get]
func (c *CatalogController) ListQuizzes(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	quizzes, err := c.Service.ListQuizzes(courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary Create a quiz
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Param body body service.QuizInput true "Quiz"
// @Success 201 {object} util.Response
// @Router /teacher/courses/{id}/quizzes [post]
func (c *CatalogController) CreateQuiz(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in service.QuizInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.Service.CreateQuiz(courseID, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// @Summary Update a quiz
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param body body service.QuizInput true "Quiz"
// @Success 200 {object} util.Response
// @Router /teacher/quizzes/{id} [put]
func (c *CatalogController) UpdateQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in service.QuizInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.Service.UpdateQuiz(id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary Delete a quiz
// @Tags instructor
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 204
// @Failure 409 {object} util.Response
// @Router /teacher/quizzes/{id} [delete]
func (c *CatalogController) DeleteQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Service.DeleteQuiz(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// @Summary List the questions of a quiz
// @Description Includes correct flags and option feedback
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /teacher/quizzes/{id}/questions [get]
func (c *CatalogController) ListQuestions(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questions, err := c.Service.ListQuestions(quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// @Summary Add a question to a quiz
// @Description The question is appended after the current last one
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param body body service.QuestionInput true "Question"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /teacher/quizzes/{id}/questions [post]
func (c *CatalogController) CreateQuestion(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in service.QuestionInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.Service.CreateQuestion(quizID, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// @Summary Get a question with its options
// @Tags instructor
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 200 {object} util.Response
// @Router /teacher/questions/{id} [get]
func (c *CatalogController) GetQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	question, err := c.Service.GetQuestion(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Summary Update a question
// @Description Options are matched by text; removing an option someone selected is refused
// @Tags instructor
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Param body body service.QuestionInput true "Question"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /teacher/questions/{id} [put]
func (c *CatalogController) UpdateQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var in service.QuestionInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.Service.UpdateQuestion(id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Summary Delete a question
// @Description Refused while answers reference the question
// @Tags instructor
// @Security ApiKeyAuth
// @Param id path int true "Question ID"
// @Success 204
// @Failure 409 {object} util.Response
// @Router /teacher/questions/{id} [delete]
func (c *CatalogController) DeleteQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Service.DeleteQuestion(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
