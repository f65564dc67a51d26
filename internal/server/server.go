package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/Gio21sr/oberfit/internal/auth"
	"github.com/Gio21sr/oberfit/internal/class"
	"github.com/Gio21sr/oberfit/internal/config"
	"github.com/Gio21sr/oberfit/internal/enrollment"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/user"
)

const visitorScope = "visitor"

type Server struct {
	router   *gin.Engine
	http     *http.Server
	db       *sqlx.DB
	config   *config.Config
	users    user.Service
	limiters []*RateLimiter
}

// New wires repositories, services and routes. rdb may be nil, in which
// case the visitor endpoint falls back to an in-process limiter.
func New(db *sqlx.DB, cfg *config.Config, rdb redis.UniversalClient) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
	)

	s := &Server{
		router: router,
		db:     db,
		config: cfg,
	}

	ipLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	s.limiters = append(s.limiters, ipLimiter)
	router.Use(ipLimiter.Middleware("ip"))

	classService := class.NewService(class.NewRepository(db), cfg.DeletePolicy)
	enrollmentService := enrollment.NewService(enrollment.NewRepository(db))
	s.users = user.NewService(user.NewRepository(db), cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.DeletePolicy)

	classHandler := class.NewHandler(classService)
	enrollmentHandler := enrollment.NewHandler(enrollmentService)
	userHandler := user.NewHandler(s.users)

	router.GET("/health", Health(db))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	public := router.Group("/")
	{
		public.POST("/auth/register", userHandler.Register)
		public.POST("/auth/login", userHandler.Login)
		public.POST("/auth/refresh", userHandler.RefreshToken)
		public.GET("/classes", classHandler.ListUpcoming)
		public.GET("/classes/:classID", classHandler.GetClass)
		public.GET("/schedule/hours", OperatingHours)
		public.POST("/visitor/enrollments", s.visitorLimit(rdb), enrollmentHandler.EnrollVisitor)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
	}

	members := router.Group("/")
	members.Use(authMiddleware, auth.RequireRole(auth.RoleMember))
	{
		members.GET("/me/enrollments", enrollmentHandler.ListMyEnrollments)
		members.POST("/classes/:classID/enroll", enrollmentHandler.EnrollMember)
	}

	staff := router.Group("/staff")
	staff.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin, auth.RoleEmployee))
	{
		staff.GET("/classes", classHandler.ListClasses)
		staff.POST("/classes", classHandler.CreateClass)
		staff.PUT("/classes/:classID", classHandler.UpdateClass)
		staff.GET("/classes/:classID/attendees", enrollmentHandler.ListAttendees)
		staff.GET("/members/:memberID/enrollments", enrollmentHandler.ListMemberEnrollments)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.DELETE("/classes/:classID", classHandler.DeleteClass)
		admin.POST("/users", userHandler.CreateUser)
		admin.GET("/users", userHandler.ListUsers)
		admin.DELETE("/users/:userID", userHandler.DeleteUser)
		admin.GET("/reports/occupancy", enrollmentHandler.Occupancy)
	}

	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) visitorLimit(rdb redis.UniversalClient) gin.HandlerFunc {
	if rdb != nil {
		return NewRedisLimiter(rdb, "oberfit:rate_limit", s.config.VisitorRateLimit, s.config.VisitorRateWindow).
			Middleware(visitorScope)
	}

	rps := float64(s.config.VisitorRateLimit) / s.config.VisitorRateWindow.Seconds()
	limiter := NewRateLimiter(rps, s.config.VisitorRateLimit, s.config.VisitorRateWindow+time.Minute)
	s.limiters = append(s.limiters, limiter)
	return limiter.Middleware(visitorScope)
}

// Router exposes the engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// EnsureAdmin creates the bootstrap admin from config when one is set.
func (s *Server) EnsureAdmin(ctx context.Context) error {
	return s.users.EnsureAdmin(ctx, s.config.AdminEmail, s.config.AdminPassword)
}

func (s *Server) Start() error {
	logger.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.Close()
	}
	return s.http.Shutdown(ctx)
}
