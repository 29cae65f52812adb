package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/filebox/config"
	"github.com/cppla/filebox/controllers"
	"github.com/cppla/filebox/middleware"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/storage"
	"github.com/cppla/filebox/utils"
	"github.com/cppla/filebox/views"
)

// multipartOverhead is the slack allowed on top of the upload limit for
// multipart boundaries and the other form fields.
const multipartOverhead = 1 << 20

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, db *gorm.DB, blobs *storage.DiskStore) (*gin.Engine, error) {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	templates, err := views.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(templates)

	// access log goes to its own rolling file when configured
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			utils.Logger.Warn("gin access log unavailable, using app logger", zap.Error(err))
		} else {
			accessLog = gl
		}
	}
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.CustomRecoveryWithZap(accessLog, true, func(ctx *gin.Context, _ any) {
		utils.Fail(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.CSRFHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// a wildcard cannot be combined with credentials
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	session := middleware.Session{Secret: cfg.SecretKey, CookieName: cfg.CookieName, Secure: cfg.CookieSecure}
	creds := services.NewCredentialStore(db, blobs)
	registry := services.NewFileRegistry(db, blobs, cfg.AllowedExtensions, cfg.MaxUploadBytes())
	throttle := utils.NewLoginThrottle(cfg.LoginFailMaxPerHour, time.Duration(cfg.LoginLockMinutes)*time.Minute)

	r.Use(middleware.BodyLimit(cfg.MaxUploadBytes() + multipartOverhead))
	r.Use(middleware.LoadIdentity(session, creds))
	r.Use(middleware.CSRF(cfg.CookieSecure))

	pageController := controllers.NewPageController(creds)
	authController := controllers.NewAuthController(creds, session, cfg.SessionTTL(), throttle, cfg.RegisterCaptchaEnabled)
	fileController := controllers.NewFileController(registry, cfg.AllowedExtensions)
	accountController := controllers.NewAccountController(creds, session)

	r.GET("/", pageController.Home)
	r.GET("/health", pageController.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.GET("/register", authController.RegisterPage)
	authGroup.POST("/register", authController.Register)
	authGroup.GET("/login", authController.LoginPage)
	authGroup.POST("/login", authController.Login)

	protected := r.Group("")
	protected.Use(middleware.LoginRequired())
	protected.GET("/dashboard", pageController.Dashboard)
	protected.GET("/logout", authController.Logout)
	protected.GET("/files", fileController.List)
	protected.POST("/files/upload", fileController.Upload)
	protected.POST("/account/delete", accountController.Delete)

	owned := protected.Group("/files")
	owned.Use(middleware.FileOwner(registry))
	owned.GET("/download/:id", fileController.Download)
	owned.POST("/delete/:id", fileController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Fail(ctx, http.StatusNotFound, 40400, "page not found")
	})

	return r, nil
}
