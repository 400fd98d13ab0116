package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/hirebase/internal/http/handlers"
	"github.com/geocoder89/hirebase/internal/http/middlewares"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// AccountService is everything the HTTP surface needs from the account layer.
type AccountService interface {
	handlers.AuthService
	middlewares.Authenticator
}

type Deps struct {
	Log        *slog.Logger
	Env        string
	AppName    string
	AppVersion string

	// APIPrefix is prepended to the /auth routes, e.g. "/api/v1".
	APIPrefix      string
	AllowedOrigins []string
	MaxBodyBytes   int64

	Accounts AccountService
	Checks   []handlers.HealthCheck

	// Prom and Gatherer are optional; /metrics is only mounted with a Gatherer.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// TracingService enables otelgin spans when non-empty.
	TracingService string
}

const docsPath = "/docs"

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	if d.TracingService != "" {
		r.Use(otelgin.Middleware(d.TracingService))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(docsPath))
	r.Use(middlewares.CORSMiddleware(d.AllowedOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.AppName, d.AppVersion, d.Checks...)
	r.GET("/", h.Root)
	r.GET("/health", h.Healthz)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// docs
	r.GET(docsPath, handlers.SwaggerUI)
	r.GET(docsPath+"/openapi.yaml", handlers.OpenAPISpec)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// auth
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Prom)
	requireAuth := middlewares.NewAuthMiddleware(d.Accounts).RequireAuth()

	api := r.Group(normalizePrefix(d.APIPrefix))
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)

		authGroup.GET("/me", requireAuth, authHandler.Me)
		authGroup.PUT("/me", requireAuth, authHandler.UpdateMe)
		authGroup.POST("/logout", requireAuth, authHandler.Logout)
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
