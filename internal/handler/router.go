package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/internal/middleware"
)

// Routes объединяет обработчики и middleware, необходимые для маршрутов API
type Routes struct {
	QuestionSets *QuestionSetHandler
	Answers      *AnswerHandler
	Admin        *AdminHandler
	WS           *WSHandler

	Auth          *middleware.AuthMiddleware
	SubmitLimiter gin.HandlerFunc
}

// Register настраивает маршруты API в группе /api.
// Все маршруты с параметром на позиции набора используют имя :key,
// которое трактуется как slug или числовой ID в зависимости от маршрута.
func (r Routes) Register(api *gin.RouterGroup) {
	bySlug := middleware.ExtractSlugParam("key", ctxSlug)
	byID := middleware.ExtractUintParam("key", ctxSetID)

	submitLimiter := r.SubmitLimiter
	if submitLimiter == nil {
		submitLimiter = func(c *gin.Context) { c.Next() }
	}

	sets := api.Group("/question-sets")
	{
		// Публичные маршруты: токен опционален, невалидный токен означает анонимное чтение
		public := sets.Group("")
		public.Use(r.Auth.OptionalAuth())
		{
			public.GET("/public", r.QuestionSets.ListPublicSets)
			public.GET("/:key", bySlug, r.QuestionSets.ResolveSet)
			public.GET("/:key/availability", bySlug, r.Answers.CheckAvailability)
			public.POST("/:key/answers", submitLimiter, r.Auth.RejectInvalidToken(), r.Auth.RequireCSRF(), bySlug, r.Answers.SubmitAnswers)
		}

		// Маршруты владельца
		owner := sets.Group("")
		owner.Use(r.Auth.RequireAuth(), r.Auth.RequireCSRF())
		{
			owner.POST("", r.QuestionSets.CreateSet)
			owner.GET("", r.QuestionSets.ListMySets)
			owner.GET("/id/:id", middleware.ExtractUintParam("id", ctxSetID), r.QuestionSets.GetOwnedSet)
			owner.PUT("/:key", byID, r.QuestionSets.UpdateSet)
			owner.DELETE("/:key", byID, r.QuestionSets.DeleteSet)

			owner.GET("/:key/answers", bySlug, r.Answers.ListAnswers)
			owner.DELETE("/:key/answers", bySlug, r.Answers.ClearAnswers)
			owner.GET("/:key/answers/:answerId", bySlug, middleware.ExtractUintParam("answerId", ctxAnswerID), r.Answers.GetAnswerDetail)
			owner.GET("/:key/results", bySlug, r.Answers.GetResults)
			owner.GET("/:key/results/export", bySlug, r.Answers.ExportResults)
			owner.POST("/:key/regrade", bySlug, r.Answers.Regrade)

			if r.WS != nil {
				owner.GET("/:key/live", bySlug, r.WS.LiveFeed)
			}
		}
	}

	admin := api.Group("/admin")
	admin.Use(r.Auth.RequireAuth(), r.Auth.AdminOnly(), r.Auth.RequireCSRF())
	{
		admin.GET("/stats", r.Admin.GetStats)
		admin.DELETE("/answers", r.Admin.DeleteAllAnswers)
	}
}
