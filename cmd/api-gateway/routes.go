package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/handler"
	"github.com/noah-isme/sma-achievement-api/internal/middleware"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/service"
	"github.com/noah-isme/sma-achievement-api/pkg/config"
	"github.com/noah-isme/sma-achievement-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-achievement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-achievement-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth       *handler.AuthHandler
	score      *handler.ScoreHandler
	submission *handler.SubmissionHandler
	item       *handler.ItemHandler
	weight     *handler.WeightHandler
	academic   *handler.AcademicHandler
	activity   *handler.ActivityHandler
	export     *handler.ExportHandler
	metrics    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, tokens middleware.TokenValidator, audit middleware.AuditRecorder, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))

	r.GET("/health", h.metrics.Health)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)
	// Signed tokens authorise downloads on their own.
	api.GET("/exports/:token", h.export.Download)

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.RoleSelf)
	student := middleware.RequireRoles(models.RoleStudent)
	audited := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(audit, logr, action, resource, idParam)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.GET("/auth/me", h.auth.Me)
	secured.GET("/me/score", student, h.score.MyScore)
	secured.GET("/scoreboard", h.score.Scoreboard)

	students := secured.Group("/students/:id")
	students.GET("/score", staffOrSelf, h.score.StudentScore)
	students.GET("/submissions", staffOrSelf, h.submission.ListForStudent)
	students.GET("/academic", staffOrSelf, h.academic.Get)
	students.PUT("/academic", staff, h.academic.Upsert)
	students.GET("/activities", staffOrSelf, h.activity.ListForStudent)

	items := secured.Group("/items")
	items.GET("", h.item.List)
	items.GET("/:id", h.item.Get)
	items.POST("", staff, audited(models.AuditActionItemCreate, models.AuditResourceItem, ""), h.item.Create)
	items.PATCH("/:id", staff, audited(models.AuditActionItemUpdate, models.AuditResourceItem, "id"), h.item.Update)
	items.DELETE("/:id", staff, audited(models.AuditActionItemDelete, models.AuditResourceItem, "id"), h.item.Delete)
	items.POST("/:id/questions", staff, audited(models.AuditActionQuestionCreate, models.AuditResourceItem, "id"), h.item.AddQuestion)
	items.PUT("/:id/questions/:questionId", staff, audited(models.AuditActionQuestionUpdate, models.AuditResourceItem, "id"), h.item.UpdateQuestion)
	items.DELETE("/:id/questions/:questionId", staff, audited(models.AuditActionQuestionDelete, models.AuditResourceItem, "id"), h.item.DeleteQuestion)
	items.POST("/:id/exclusions", staff, audited(models.AuditActionExclusionAdd, models.AuditResourceItem, "id"), h.item.AddExclusion)
	items.DELETE("/:id/exclusions/:studentId", staff, audited(models.AuditActionExclusionRemove, models.AuditResourceItem, "id"), h.item.RemoveExclusion)
	items.POST("/:id/submissions", student, h.submission.Submit)

	secured.GET("/submissions/:id", h.submission.Get)

	activities := secured.Group("/activities")
	activities.POST("", staff, h.activity.Record)
	activities.PUT("/:id/verification", staff, h.activity.Verify)
	activities.DELETE("/:id", staff, h.activity.Delete)

	adminGroup := secured.Group("/admin", admin)
	adminGroup.GET("/weights", h.weight.List)
	adminGroup.PUT("/weights/:category", audited(models.AuditActionWeightChange, models.AuditResourceWeight, "category"), h.weight.Set)
	adminGroup.POST("/recompute", h.score.RecomputeAll)
	adminGroup.POST("/students/:id/recompute", h.score.RecomputeStudent)
	adminGroup.POST("/items/:id/recompute", h.score.RecomputeItem)
	adminGroup.DELETE("/submissions/:id", audited(models.AuditActionSubmissionDelete, models.AuditResourceSubmission, "id"), h.submission.Delete)
	adminGroup.POST("/academic-records", h.academic.Import)
	adminGroup.POST("/exports/scoreboard", h.export.ExportScoreboard)
	adminGroup.GET("/metrics", h.metrics.Snapshot)

	return r
}
