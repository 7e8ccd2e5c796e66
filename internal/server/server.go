package server

import (
	"net/http"

	"chameleon-backend/internal/config"
	"chameleon-backend/internal/crypto"
	"chameleon-backend/internal/handler"
	"chameleon-backend/internal/middleware"
	"chameleon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router       *gin.Engine
	cfg          *config.Config
	cipher       *crypto.PromptCipher
	sessions     service.Sessions
	authService  service.AuthService
	moderation   service.Moderation
	uploads      service.Uploads
	imageService service.ImageService
	logger       *zap.Logger
	log          *logrus.Logger
}

func NewServer(
	cfg *config.Config,
	cipher *crypto.PromptCipher,
	sessions service.Sessions,
	authService service.AuthService,
	moderation service.Moderation,
	uploads service.Uploads,
	imageService service.ImageService,
	logger *zap.Logger,
	log *logrus.Logger,
) *Server {
	router := gin.Default()

	s := &Server{
		router:       router,
		cfg:          cfg,
		cipher:       cipher,
		sessions:     sessions,
		authService:  authService,
		moderation:   moderation,
		uploads:      uploads,
		imageService: imageService,
		logger:       logger,
		log:          log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	authHandler := handler.NewAuthHandler(s.authService, s.log)
	promptHandler := handler.NewPromptHandler(s.cipher, s.moderation, s.log)
	imageHandler := handler.NewImageHandler(s.cipher, s.moderation, s.uploads, s.imageService, s.log)
	uploadsHandler := handler.NewUploadsHandler(s.cfg.Storage.Root, s.log)

	// App-wide cap: oversized bodies are rejected on every route before any
	// binding reads them.
	s.router.Use(middleware.BodySizeLimit(s.cfg.Storage.MaxUploadBytes))

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	authGroup := s.router.Group("/api/auth")
	authGroup.GET("/github", middleware.RateLimit(s.cfg.RateLimit.AuthPerMinute), authHandler.GetAuthURL)
	authGroup.POST("/github/callback", authHandler.Callback)

	s.router.POST("/api/translate",
		middleware.RateLimit(s.cfg.RateLimit.TranslatePerMinute),
		promptHandler.Translate)

	// Session validation runs before the body is touched: no upload is
	// written for an unauthenticated request.
	s.router.POST("/api/process",
		middleware.RateLimit(s.cfg.RateLimit.ProcessPerMinute),
		middleware.AuthMiddleware(s.sessions, s.logger),
		imageHandler.Process)

	s.router.GET("/uploads/:filename", uploadsHandler.Serve)
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
