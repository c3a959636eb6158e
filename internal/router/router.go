// Package router builds the Echo instance and registers every route of the
// reservation API.
package router

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Deps is everything the routes need.  Uploads may be nil to leave the
// upload endpoints out; UploadDir, when set, is served at /uploads.
type Deps struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Tables   *handler.TableHandler
	Uploads  *handler.UploadHandler
	Health   *handler.HealthHandler

	Tokens    utils.TokenOptions
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Log       *logrus.Logger

	UploadDir   string
	CORSOrigins []string
	// BodyLimit caps JSON request bodies (e.g. "1M").  Upload routes are
	// exempt; UploadHandler enforces its own image size limit.
	BodyLimit string
}

const uploadPrefix = "/api/upload"

// New returns a configured Echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(d.Log)
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Metrics())
	if len(d.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: d.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	if d.BodyLimit != "" {
		e.Use(echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{
			Limit: d.BodyLimit,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, uploadPrefix)
			},
		}))
	}

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	purge := middleware.PurgeCache(d.Cache, d.Redis, d.Log)
	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)

	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d.Auth, d.Tokens, limit)
	RegisterBookings(e, d.Bookings, d.Tokens, limit, purge)
	RegisterTables(e, d.Tables, d.Tokens, limit, cache, purge)
	if d.Uploads != nil {
		RegisterUploads(e, d.Uploads, d.Tokens, limit)
	}
	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers registration, login and the token echo endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens utils.TokenOptions, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/me", a.Me, middleware.JWTAuth(tokens))
}

// RegisterBookings registers the booking endpoints.  Every route needs a
// token; the unfiltered listing is admin only.  Writes purge the table cache
// because they change availability.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, tokens utils.TokenOptions, limit, purge echo.MiddlewareFunc) {
	g := e.Group("/api/bookings", middleware.JWTAuth(tokens), limit)
	g.POST("", b.Create, purge)
	g.GET("/my", b.Mine)
	g.GET("/:id", b.Get)
	g.DELETE("/:id", b.Cancel, purge)
	g.GET("", b.List, middleware.RequireRole(model.RoleAdmin))
}

// RegisterTables registers public browsing (cached) and admin management.
func RegisterTables(e *echo.Echo, t *handler.TableHandler, tokens utils.TokenOptions, limit, cache, purge echo.MiddlewareFunc) {
	g := e.Group("/api/tables", limit)
	g.GET("", t.List, cache)
	g.GET("/available", t.Available, cache)
	g.GET("/slots", t.Slots)
	g.GET("/:id", t.Get, cache)

	admin := []echo.MiddlewareFunc{middleware.JWTAuth(tokens), middleware.RequireRole(model.RoleAdmin), purge}
	g.POST("", t.Create, admin...)
	g.PUT("/:id", t.Update, admin...)
	g.DELETE("/:id", t.Delete, admin...)
}

// RegisterUploads registers the admin image endpoints.
func RegisterUploads(e *echo.Echo, u *handler.UploadHandler, tokens utils.TokenOptions, limit echo.MiddlewareFunc) {
	g := e.Group(uploadPrefix, middleware.JWTAuth(tokens), middleware.RequireRole(model.RoleAdmin), limit)
	g.POST("/image", u.Upload)
	g.DELETE("/image/:name", u.Delete)
}
