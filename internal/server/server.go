package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/pktdms/docgate/internal/auth/domain"
	"github.com/pktdms/docgate/internal/config"
	documentdomain "github.com/pktdms/docgate/internal/document/domain"
	"github.com/pktdms/docgate/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAuthRoutes()
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLog(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(metrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	authSvc     authdomain.Service
	documentSvc documentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	AuthSvc     authdomain.Service
	DocumentSvc documentdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		authSvc:     p.AuthSvc,
		documentSvc: p.DocumentSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Documents --------
	api.POST("/documents/upload", s.AuthRequired(), s.UploadDocument)
	api.GET("/documents", s.AuthRequired(), s.ListDocuments)
	api.GET("/documents/:id", s.AuthRequired(), s.GetDocumentByID)

	// Workflow callback; the external engine authenticates out of band.
	api.PUT("/documents/:id/status", s.UpdateDocumentStatus)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
