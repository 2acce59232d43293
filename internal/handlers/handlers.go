package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/middleware"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/realtime"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	auth    *service.AuthService
	reports *service.ReportService
	items   *service.ItemService
	hub     *realtime.Hub
	store   repository.Store
	cache   *redis.Client
}

// NewHandlerSet wires the HTTP surface. cache may be nil when Redis is off.
func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth *service.AuthService,
	reports *service.ReportService,
	items *service.ItemService,
	hub *realtime.Hub,
	store repository.Store,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		auth:    auth,
		reports: reports,
		items:   items,
		hub:     hub,
		store:   store,
		cache:   cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/ws", gin.WrapF(h.hub.Handler(h.authenticateSocket)))

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/verify-email", h.VerifyEmail)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/request-password-reset", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.POST("/confirm-password-change", h.ConfirmPasswordChange)
		auth.POST("/resend-otp", h.ResendOTP)
		auth.POST("/resend-verification", h.ResendVerification)

		session := auth.Group("")
		session.Use(middleware.Auth(h.auth, service.ClassAny))
		session.GET("/me", h.Me)
		session.POST("/change-password", h.ChangePassword)
		session.POST("/change-username", h.ChangeUsername)
	}

	user := router.Group("/user")
	user.Use(middleware.Auth(h.auth, service.ClassUser))
	{
		user.POST("/report", h.SubmitReport)
		user.GET("/my-reports", h.MyReports)
	}

	listings := router.Group("")
	listings.Use(middleware.Auth(h.auth, service.ClassAny))
	{
		listings.GET("/found-items", h.ListFoundItems)
		listings.GET("/lost-items", h.ListLostItems)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.Auth(h.auth, service.ClassAdmin))
	{
		admin.GET("/reports", h.AdminListReports)
		admin.POST("/reports/:id/approve", h.ApproveReport)
		admin.POST("/reports/:id/reject", h.RejectReport)

		admin.POST("/items", h.CreateFoundItem)
		admin.POST("/lost-items", h.CreateLostItem)
		admin.GET("/archive", h.ListArchive)

		admin.POST("/found-items/:id/mark-claimed", h.MarkClaimed)
		admin.POST("/lost-items/:id/mark-found", h.MarkFound)
		admin.POST("/item/:id/mark-expired", h.MarkExpired)
		admin.DELETE("/item/delete/:id", h.DeleteItem)
	}
}

func (h HandlerSet) authenticateSocket(token string) (models.Identity, error) {
	return h.auth.Authorize(token, service.ClassAny)
}
