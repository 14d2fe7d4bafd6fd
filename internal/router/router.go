package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4" // Echo web framework used for routing
	"github.com/redis/go-redis/v9"

	"github.com/garageworks/repair-shop/internal/config"
	"github.com/garageworks/repair-shop/internal/handler"
	"github.com/garageworks/repair-shop/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Repairs *handler.RepairHandler
	Stats   *handler.StatsHandler
	Users   *handler.UserHandler
	Uploads *handler.UploadHandler
}

// Stores carries the repository slices the middlewares need: the auth
// middleware resolves token subjects against the user store and the
// ownership guard loads repairs by id.
type Stores struct {
	Users   middleware.UserStore
	Repairs middleware.RepairStore
}

// Register wires all routes onto the Echo instance. The API lives under
// /api; everything except register/login and the health check runs behind
// the bearer-token auth middleware. Role gates follow the policy table:
//
//	repairs list/create/export  any authenticated role (role-scoped data)
//	repairs get/update          authenticated + ownership (staff bypass)
//	repairs delete              admin
//	stats                       admin (response cached)
//	users list/delete           admin
//	users/customers             admin, technician
//	uploads                     any authenticated role
//
// Static frontend assets are served from ./public.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers, s Stores) {
	e.GET("/healthz", handler.Health)
	e.Static("/", "public")

	auth := middleware.Auth(cfg.JWTSecret, cfg.TokenTTLH,
		time.Duration(cfg.RenewWithinM)*time.Minute, s.Users)
	ownership := middleware.RequireRepairOwnership(s.Repairs)
	adminOnly := middleware.RequireRole("admin")
	staffOnly := middleware.RequireRole("admin", "technician")
	statsCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	authLimiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	api := e.Group("/api")

	// Credential endpoints: no auth, but rate limited so password guessing
	// is throttled at the edge.
	api.POST("/auth/register", h.Auth.Register, authLimiter)
	api.POST("/auth/login", h.Auth.Login, authLimiter)
	api.GET("/auth/me", h.Auth.Me, auth)

	// Repair CRUD. The export route must not be swallowed by /repairs/:id;
	// Echo matches the static segment first.
	api.GET("/repairs", h.Repairs.List, auth)
	api.GET("/repairs/export", h.Repairs.Export, auth)
	api.GET("/repairs/:id", h.Repairs.Get, auth, ownership)
	api.POST("/repairs", h.Repairs.Create, auth)
	api.PUT("/repairs/:id", h.Repairs.Update, auth, ownership)
	api.DELETE("/repairs/:id", h.Repairs.Delete, auth, adminOnly)

	// Dashboard aggregates. Cache runs after the role gate so only
	// authorized responses are ever stored or replayed.
	api.GET("/stats", h.Stats.Get, auth, adminOnly, statsCache)

	// Account management.
	api.GET("/users", h.Users.List, auth, adminOnly)
	api.DELETE("/users/:id", h.Users.Delete, auth, adminOnly)
	api.GET("/users/customers", h.Users.ListCustomers, auth, staffOnly)

	// Image attachments.
	api.POST("/uploads", h.Uploads.Upload, auth)
	api.DELETE("/uploads/:filename", h.Uploads.Delete, auth)
}
