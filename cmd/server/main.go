package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymtrack/internal/attendance"
	"gymtrack/internal/auth"
	"gymtrack/internal/config"
	"gymtrack/internal/faceclient"
	"gymtrack/internal/handler"
	"gymtrack/internal/httpmiddleware"
	"gymtrack/internal/mailer"
	"gymtrack/internal/member"
	"gymtrack/internal/photostore"
	"gymtrack/internal/tabular"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var store tabular.Store
	if cfg.StoreBackend == "postgres" {
		pg, err := tabular.NewPGStore(cfg.DatabaseURL, tabular.Members, tabular.Attendance, tabular.DeletedMembers)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
		log.Println("table store: postgres")
	} else {
		fs, err := tabular.NewFileStore(cfg.DataDir)
		if err != nil {
			return err
		}
		store = fs
		log.Printf("table store: csv files in %s", cfg.DataDir)
	}

	photos, err := photostore.New(cfg.ImageDir)
	if err != nil {
		return err
	}

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip, cfg.FaceTimeout)
	if !cfg.FaceSkip {
		if err := face.Health(context.Background()); err != nil {
			log.Printf("WARNING: face service not available: %v", err)
		} else {
			log.Println("face service connected")
		}
	}

	mail, err := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.GymEmail, cfg.AppPassword)
	if err != nil {
		return err
	}
	if mail.Enabled() {
		log.Println("mail transport configured:", cfg.GymEmail)
	} else {
		log.Println("mail transport not configured (GYM_EMAIL / APP_PASSWORD not set)")
	}

	registry := member.NewRegistry(store, photos, mail)
	engine := attendance.NewEngine(registry, store, faceclient.NewMatcher(face))
	h := handler.New(registry, engine, cfg.DataDir)

	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisFixedWindow(cfg.RedisAddr, cfg.RateLimitPerMin)
		log.Println("rate limiter: redis fixed window")
	} else {
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}
	r.Use(httpmiddleware.GinMiddleware(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		faceHealthy := face.Health(c.Request.Context()) == nil
		status := http.StatusOK
		if !faceHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status": "ok",
			"face":   faceHealthy,
			"mail":   mail.Enabled(),
			"store":  cfg.StoreBackend,
		})
	})

	r.POST("/v1/auth/login", func(c *gin.Context) {
		if cfg.AdminPassword == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin auth not configured"})
			return
		}
		var req struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Password != cfg.AdminPassword {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
			return
		}
		token, err := auth.Issue(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": token.Value,
			"expires_at":   token.ExpiresAt.Unix(),
		})
	})

	api := r.Group("/v1")
	if cfg.AdminPassword != "" {
		api.Use(auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	} else {
		log.Println("WARNING: admin auth disabled (ADMIN_PASSWORD not set)")
	}

	api.GET("/members", h.ListMembers)
	api.POST("/members", h.RegisterMember)
	api.GET("/members/export", h.ExportMembers)
	api.GET("/members/:id", h.GetMember)
	api.PUT("/members/:id", h.UpdateMember)
	api.DELETE("/members/:id", h.DeleteMember)

	api.POST("/attendance/entry", h.MarkEntry)
	api.POST("/attendance/exit", h.MarkExit)
	api.GET("/attendance", h.ListAttendance)
	api.GET("/attendance/export", h.ExportAttendance)

	api.POST("/admin/reset", h.Reset)

	r.StaticFile("/", "web/index.html")

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // entry/exit scans block on the face service
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
