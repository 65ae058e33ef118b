package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"           // Echo's stock recover middleware
	"github.com/prometheus/client_golang/prometheus/promhttp" // /metrics exposition
	"go.uber.org/zap"                                         // structured logging

	"github.com/iliyamo/points-ledger/internal/handler"    // HTTP handlers
	"github.com/iliyamo/points-ledger/internal/middleware" // JWT, roles, rate limiting, logging
	"github.com/iliyamo/points-ledger/internal/model"      // role names
)

// Deps carries everything New needs to assemble the API.
type Deps struct {
	DB        handler.Pinger
	Auth      *handler.AuthHandler
	Points    *handler.PointsHandler
	Admin     *handler.AdminTokenHandler
	JWTSecret string
	// RateLimit wraps the mutating member routes. Nil disables limiting.
	RateLimit echo.MiddlewareFunc
	Log       *zap.Logger
}

// New returns an Echo instance with the validator, the request logger and
// every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewRequestValidator()
	e.Use(echomw.Recover())
	if d.Log != nil {
		e.Use(middleware.RequestLogger(d.Log))
	}

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d.Auth)
	RegisterMember(e, d.Points, d.JWTSecret, d.RateLimit)
	RegisterAdmin(e, d.Admin, d.JWTSecret)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the unauthenticated account endpoints under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterMember registers the points endpoints every authenticated account
// may call. Redeem and transfer go through the rate limiter when one is
// configured.
func RegisterMember(e *echo.Echo, h *handler.PointsHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleMember, model.RoleAdmin),
	)
	g.GET("/me", h.Me)

	var mw []echo.MiddlewareFunc
	if limit != nil {
		mw = append(mw, limit)
	}
	g.POST("/redeem", h.Redeem, mw...)
	g.POST("/transfers", h.Transfer, mw...)
}

// RegisterAdmin registers token administration under /v1/admin. All routes
// require the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminTokenHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/tokens", h.IssueTokens)
	g.POST("/tokens/generate", h.GenerateTokens)
	g.GET("/tokens/:code", h.GetToken)
}
