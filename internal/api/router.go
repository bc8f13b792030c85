package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/teaqnet/access-api/docs" // registers the swagger document
	"github.com/teaqnet/access-api/internal/api/handler"
	"github.com/teaqnet/access-api/internal/api/middleware"
	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
)

// Dependencies are the services and HTTP settings the router wires together.
type Dependencies struct {
	Auth     ports.AuthService
	Sessions ports.SessionManager
	Guard    ports.Authorizer
	Admin    ports.AdminService
	History  ports.HistoryService
	Probes   []handler.Probe
	Log      zerolog.Logger

	CORSOrigins []string
	// AuthRateLimit is requests per second per client IP on /register and
	// /login. Zero disables the limiter.
	AuthRateLimit float64
	AuthRateBurst int
	BodyLimit     string
	SecureCookies bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(cors(deps.CORSOrigins))
	if deps.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(deps.BodyLimit))
	}
	e.Use(middleware.Metrics())

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.SecureCookies)
	accountHandler := handler.NewAccountHandler(deps.Auth, deps.Guard)
	historyHandler := handler.NewHistoryHandler(deps.History)
	adminHandler := handler.NewAdminHandler(deps.Admin, deps.History)
	healthHandler := handler.NewHealthHandler(deps.Probes...)

	authn := middleware.Auth(deps.Sessions)
	self := middleware.Require(deps.Guard, domain.CapabilitySelf)
	admin := middleware.Require(deps.Guard, domain.CapabilityAdmin)

	// --- Health probes and tooling (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	var limited []echo.MiddlewareFunc
	if deps.AuthRateLimit > 0 {
		limited = append(limited, authRateLimiter(deps.AuthRateLimit, deps.AuthRateBurst))
	}
	e.POST("/register", authHandler.Register, limited...)
	e.POST("/login", authHandler.Login, limited...)
	e.POST("/logout", authHandler.Logout)

	// --- Signed-in routes ---
	api := e.Group("/api")
	api.GET("/access", accountHandler.Access)

	user := api.Group("", authn, self)
	user.GET("/me", accountHandler.Me)
	user.POST("/profile/update", accountHandler.UpdateProfile)
	user.POST("/history", historyHandler.Record)
	user.GET("/history", historyHandler.List)
	user.GET("/history/report", historyHandler.Report)

	// --- Admin routes ---
	adm := api.Group("/admin", authn, admin)
	adm.GET("/users", adminHandler.ListUsers)
	adm.PUT("/users/:id", adminHandler.UpdateUser)
	adm.POST("/users/:id/toggle-admin", adminHandler.ToggleAdmin)
	adm.DELETE("/users/:id", adminHandler.DeleteUser)
	adm.GET("/stats", adminHandler.Stats)
	adm.GET("/history", adminHandler.History)
	adm.GET("/history/report", adminHandler.HistoryReport)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

func cors(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: !slices.Contains(origins, "*"),
	})
}

// authRateLimiter throttles credential endpoints per client IP.
func authRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, try again later")
		},
	})
}
