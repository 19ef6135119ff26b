package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"json4ai/internal/apperror"
	"json4ai/internal/config"
	"json4ai/internal/middleware"
	"json4ai/internal/service"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Auth         *service.AuthService
	Admin        *service.AdminSessionService
	Users        *service.UserService
	Usage        *service.UsageService
	Prompts      *service.PromptService
	Entitlements *service.EntitlementService
	Dashboard    *service.DashboardService
}

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	authService   *service.AuthService
	adminService  *service.AdminSessionService
	userService   *service.UserService
	usageService  *service.UsageService
	promptService *service.PromptService
	entitlements  *service.EntitlementService
	dashboard     *service.DashboardService
	cache         *redis.Client
	limiter       *middleware.RateLimiter
}

// NewHandlerSet wires the route handlers. limiter may be nil to disable
// throttling of the credential endpoints.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, cache *redis.Client, limiter *middleware.RateLimiter) HandlerSet {
	return HandlerSet{
		log:           log,
		cfg:           cfg,
		authService:   svc.Auth,
		adminService:  svc.Admin,
		userService:   svc.Users,
		usageService:  svc.Usage,
		promptService: svc.Prompts,
		entitlements:  svc.Entitlements,
		dashboard:     svc.Dashboard,
		cache:         cache,
		limiter:       limiter,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	throttle := h.throttle()

	auth := router.Group("/auth", throttle...)
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password", h.ResetPassword)

	router.POST("/refresh", append(throttle, h.Refresh)...)
	router.POST("/logout", h.Logout)

	user := router.Group("/user", middleware.Auth(h.authService))
	user.GET("/profile", h.Profile)
	user.PUT("/profile", h.UpdateProfile)
	user.GET("/usage", h.Usage)

	prompt := router.Group("/prompt", middleware.Auth(h.authService))
	prompt.POST("", h.SubmitPrompt)
	prompt.GET("/usage", h.Usage)
	prompt.GET("/history", h.PromptHistory)
	prompt.PATCH("/:id/comment", h.UpdatePromptComment)

	payment := router.Group("/payment")
	payment.POST("/create-order", middleware.Auth(h.authService), h.CreateOrder)
	payment.POST("/webhook", middleware.PaymentSignature(h.cfg.Payment, h.cache), h.PaymentWebhook)

	admin := router.Group("/admin")
	admin.POST("/admin-login", append(throttle, h.AdminLogin)...)
	admin.GET("/admin-session-status", h.AdminSessionStatus)
	admin.POST("/admin-logout", h.AdminLogout)

	console := admin.Group("", middleware.RequireAdmin(h.adminService, h.cfg.Admin))
	console.GET("/dashboard/overview", h.AdminOverview)
	console.GET("/security/auth-metrics", h.AdminAuthMetrics)
	console.GET("/system/health-metrics", h.AdminHealthMetrics)
	console.GET("/alerts/active-alerts", h.AdminActiveAlerts)
	console.GET("/users", h.AdminListUsers)
	console.PUT("/users/:id/tier", h.AdminChangeTier)
	console.POST("/users/:id/deactivate", h.AdminDeactivateUser)
}

func (h HandlerSet) throttle() []gin.HandlerFunc {
	if h.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(h.limiter)}
}

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// bindJSON decodes the body into req, answering VALIDATION_ERROR on failure.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	appErr := apperror.Validation("invalid_request", "request body is invalid")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		appErr = appErr.WithDetails(map[string]any{"fields": fields})
	}
	respondError(c, appErr)
	return false
}

// pageParams reads page/perPage query parameters into a limit and offset.
func pageParams(c *gin.Context) (int, int) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
