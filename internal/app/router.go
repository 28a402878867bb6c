package app

import (
	"quiz_backend/docs"
	"quiz_backend/internal/config"
	"quiz_backend/internal/middleware"
	"quiz_backend/internal/model"
	"quiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.UserSyncMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/courses", c.quiz.ListCourses)
	group.GET("/courses/:id/progress", c.quiz.CourseProgress)

	group.GET("/quizzes/:id/next-incomplete", c.quiz.NextIncomplete)
	group.GET("/quizzes/:id/review", c.quiz.QuizReview)

	group.GET("/questions/:id", c.quiz.GetQuestion)
	group.POST("/questions/:id/answers", c.quiz.SubmitAnswer)
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.catalog.CreateCourse)
		teacher.PUT("/courses/:id", c.catalog.UpdateCourse)
		teacher.DELETE("/courses/:id", c.catalog.DeleteCourse)
		teacher.GET("/courses/:id/quizzes", c.catalog.ListQuizzes)
		teacher.POST("/courses/:id/quizzes", c.catalog.CreateQuiz)
		teacher.GET("/courses/:id/feedback", c.feedback.CourseSummary)

		teacher.PUT("/quizzes/:id", c.catalog.UpdateQuiz)
		teacher.DELETE("/quizzes/:id", c.catalog.DeleteQuiz)
		teacher.GET("/quizzes/:id/questions", c.catalog.ListQuestions)
		teacher.POST("/quizzes/:id/questions", c.catalog.CreateQuestion)
		teacher.GET("/quizzes/:id/feedback", c.feedback.QuizSummary)
		teacher.GET("/quizzes/:id/users/:userId/answers", c.feedback.UserAnswers)
		teacher.POST("/quizzes/:id/users/:userId/feedback", c.feedback.SaveFeedback)
		teacher.POST("/quizzes/:id/users/:userId/ai-evaluation", c.feedback.EvaluateWithAI)

		teacher.GET("/questions/:id", c.catalog.GetQuestion)
		teacher.PUT("/questions/:id", c.catalog.UpdateQuestion)
		teacher.DELETE("/questions/:id", c.catalog.DeleteQuestion)

		teacher.POST("/answers/:answerId/ai-evaluation", c.feedback.EvaluateAnswerWithAI)
	}
}
