package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"anoa.com/notifiq/internal/agent/providers"
	"anoa.com/notifiq/internal/config"
	"anoa.com/notifiq/internal/middleware"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/internal/scheduler"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/mailer"
	"anoa.com/notifiq/pkg/markdown"
	"anoa.com/notifiq/pkg/storage"

	adminHttp "anoa.com/notifiq/internal/modules/admin/delivery/http"
	adminService "anoa.com/notifiq/internal/modules/admin/service"

	collegeRepo "anoa.com/notifiq/internal/modules/college/repository"

	contactHttp "anoa.com/notifiq/internal/modules/contact/delivery/http"
	contactService "anoa.com/notifiq/internal/modules/contact/service"

	digestHttp "anoa.com/notifiq/internal/modules/digest/delivery/http"
	digestService "anoa.com/notifiq/internal/modules/digest/service"

	feedHttp "anoa.com/notifiq/internal/modules/feed/delivery/http"
	feedService "anoa.com/notifiq/internal/modules/feed/service"

	noticeHttp "anoa.com/notifiq/internal/modules/notice/delivery/http"
	noticeRepo "anoa.com/notifiq/internal/modules/notice/repository"
	noticeService "anoa.com/notifiq/internal/modules/notice/service"

	profileHttp "anoa.com/notifiq/internal/modules/profile/delivery/http"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	profileService "anoa.com/notifiq/internal/modules/profile/service"

	rewriteHttp "anoa.com/notifiq/internal/modules/rewrite/delivery/http"
	rewriteService "anoa.com/notifiq/internal/modules/rewrite/service"

	searchService "anoa.com/notifiq/internal/modules/search/service"

	sessionHttp "anoa.com/notifiq/internal/modules/session/delivery/http"
	sessionService "anoa.com/notifiq/internal/modules/session/service"

	statHttp "anoa.com/notifiq/internal/modules/stat/delivery/http"
	statService "anoa.com/notifiq/internal/modules/stat/service"

	streamHttp "anoa.com/notifiq/internal/modules/stream/delivery/http"
	streamService "anoa.com/notifiq/internal/modules/stream/service"

	uploadHttp "anoa.com/notifiq/internal/modules/upload/delivery/http"
	uploadRepo "anoa.com/notifiq/internal/modules/upload/repository"
	uploadService "anoa.com/notifiq/internal/modules/upload/service"

	userHttp "anoa.com/notifiq/internal/modules/user/delivery/http"
	userRepo "anoa.com/notifiq/internal/modules/user/repository"
	userService "anoa.com/notifiq/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const orphanCleanupJob = "orphan-uploads"

type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
	closers     []func() error
	log         *zap.Logger
}

// NewServer wires every module. redisClient may be nil, in which case
// realtime fan-out and read watermarks stay in process and rate limiting is
// disabled. Meilisearch, Cloudinary and Gemini are skipped when unconfigured.
func NewServer(ctx context.Context, cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	log := logger.WithModule("server")
	s := &Server{
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		log:         log,
	}

	var (
		hub   realtime.Hub
		marks digestService.WatermarkStore
	)
	if redisClient != nil {
		hub = realtime.NewRedisHub(redisClient)
		marks = digestService.NewRedisWatermarkStore(redisClient)
	} else {
		log.Warn("redis not configured, using in-process hub and watermarks")
		hub = realtime.NewMemoryHub()
		marks = digestService.NewMemoryWatermarkStore()
	}

	renderer := markdown.NewRenderer()

	var meiliSvc searchService.MeiliSearchService
	if cfg.MeiliSearchHost != "" {
		meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewMeiliSearchService(meiliClient, renderer)
	}

	var imageStorage storage.ImageStorage
	cloud, err := storage.NewCloudinaryStorage(storage.CloudinarySettings{
		URL:       cfg.Cloudinary.URL,
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	})
	if err != nil {
		log.Warn("cloudinary not configured, uploads disabled", zap.Error(err))
	} else {
		imageStorage = cloud
	}

	var llm providers.LLMProvider
	if cfg.GeminiAPIKey != "" {
		gemini, err := providers.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("gemini not available, rewrite disabled", zap.Error(err))
		} else {
			llm = gemini
			s.closers = append(s.closers, func() error {
				gemini.Close()
				return nil
			})
		}
	}

	mail := mailer.NewEmailJS(mailer.EmailJSSettings{
		ServiceID:         cfg.EmailJS.ServiceID,
		DefaultTemplateID: cfg.EmailJS.TemplateID,
		PublicKey:         cfg.EmailJS.PublicKey,
		PrivateKey:        cfg.EmailJS.PrivateKey,
	}, nil)

	// Repositories
	users := userRepo.NewUserRepository(db)
	profiles := profileRepo.NewProfileRepository(db)
	colleges := collegeRepo.NewCollegeRepository(db)
	notices := noticeRepo.NewNoticeRepository(db)
	uploads := uploadRepo.NewUploadRepository(db)

	resolver := sessionService.NewResolver(hub, profiles)

	authSvc := userService.NewAuthService(users, profiles, resolver, meiliSvc, userService.Settings{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.JWTTTL,
		Google: oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		},
	})
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.FrontendURL, !cfg.IsDevelopment())

	profileSvc := profileService.NewProfileService(profiles, colleges, users, resolver, hub)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	sessionHandler := sessionHttp.NewSessionHandler()

	projector := feedService.NewProjector(renderer)
	feedSvc := feedService.NewFeedService(notices, profiles, uploads, hub, imageStorage, meiliSvc)
	feedHandler := feedHttp.NewFeedHandler(feedSvc, projector)

	noticeSvc := noticeService.NewNoticeService(notices, uploads, hub, meiliSvc)
	noticeHandler := noticeHttp.NewNoticeHandler(noticeSvc)

	digestSvc := digestService.NewDigestService(notices, marks, hub)
	digestHandler := digestHttp.NewDigestHandler(digestSvc)

	streamer := streamService.NewStreamer(resolver, feedSvc, projector, digestSvc, cfg.FeedRefresh)
	streamHandler := streamHttp.NewStreamHandler(streamer, cfg.AllowedOrigins)

	uploadSvc := uploadService.NewUploadService(uploads, imageStorage, cfg.Cloudinary.UploadFolder)
	uploadHandler := uploadHttp.NewUploadHandler(uploadSvc)

	rewriteSvc := rewriteService.NewRewriteService(llm)
	rewriteHandler := rewriteHttp.NewRewriteHandler(rewriteSvc, redisClient, cfg.RateLimitRewrite)

	contactSvc := contactService.NewContactService(mail, redisClient, cfg.RateLimitContact)
	contactHandler := contactHttp.NewContactHandler(contactSvc)

	adminSvc := adminService.NewAdminService(colleges, profiles, users, hub)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	statSvc := statService.NewStatService(colleges, profiles, notices)
	statHandler := statHttp.NewStatHandler(statSvc)

	// Background jobs
	s.scheduler = scheduler.NewScheduler(10 * time.Minute)
	if err := s.scheduler.Register(scheduler.Func(orphanCleanupJob, cfg.OrphanCleanup, uploadSvc.CleanupOrphans)); err != nil {
		return nil, err
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(authSvc, resolver)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}
	api.POST("/contact", contactHandler.Send)
	api.GET("/session/route", authMiddleware.OptionalAuth(), sessionHandler.Route)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/join", profileHandler.JoinCollege)

		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)

		protected.GET("/feed", feedHandler.GetFeed)
		protected.GET("/stream", streamHandler.HandleWebSocket)
		protected.GET("/notices/:id", noticeHandler.GetNotice)
		protected.POST("/notices/:id/pin", feedHandler.TogglePin)

		protected.GET("/notifications", digestHandler.GetNotifications)
		protected.PUT("/notifications/read-all", digestHandler.MarkAllAsRead)

		writer := protected.Group("")
		writer.Use(authMiddleware.RequireWriter())
		{
			writer.POST("/notices", noticeHandler.CreateNotice)
			writer.PUT("/notices/:id", noticeHandler.UpdateNotice)
			writer.DELETE("/notices/:id", feedHandler.DeleteNotice)
			writer.POST("/uploads", uploadHandler.UploadImage)
			writer.POST("/rewrite", rewriteHandler.Rewrite)
		}

		super := protected.Group("/super")
		super.Use(authMiddleware.RequireSuperAdmin())
		{
			super.GET("/colleges", adminHandler.ListColleges)
			super.POST("/colleges", adminHandler.CreateCollege)
			super.DELETE("/colleges/:id", adminHandler.DeleteCollege)
			super.GET("/admins", adminHandler.ListAdmins)
			super.POST("/admins", adminHandler.AssignAdmin)
			super.DELETE("/admins/:id", adminHandler.RevokeAdmin)
			super.GET("/stats", statHandler.GetStats)
		}
	}

	s.engine = router
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return multierr.Append(err, s.shutdown())
		}
		return s.shutdown()
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	s.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var errs error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = multierr.Append(errs, err)
	}

	select {
	case <-s.scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		errs = multierr.Append(errs, errors.New("background jobs did not finish before shutdown"))
	}

	for _, closeFn := range s.closers {
		errs = multierr.Append(errs, closeFn())
	}
	return errs
}

func (s *Server) health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(c.Request.Context()).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, status)
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
