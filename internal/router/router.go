package router

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"fieldops/internal/auth"
	"fieldops/internal/config"
	"fieldops/internal/handler"
	"fieldops/internal/logging"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Session      *handler.SessionHandler
	RollCall     *handler.RollCallHandler
	Job          *handler.JobHandler
	Report       *handler.ReportHandler
	Notification *handler.NotificationHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	h Handlers,
) {
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(CORS(cfg.CORSOrigins))

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	if cfg.Storage.Driver == "local" && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		e.Static(cfg.Storage.PublicBaseURL, cfg.Storage.UploadDir)
	}

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Auth.Login, LoginRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst))

	// Secured routes (require a valid, unrevoked JWT)
	secured := api.Group("", RequireJWT(jwtService), RejectRevoked(tokenStore))
	admin := secured.Group("", AdminOnly())

	secured.POST("/auth/logout", h.Auth.Logout)
	admin.POST("/auth/register", h.Auth.Register)

	secured.GET("/me", h.User.Me)

	admin.GET("/users", h.User.ListUsers)
	admin.GET("/users/:id", h.User.GetUser)
	admin.PUT("/users/:id", h.User.UpdateUser)
	admin.DELETE("/users/:id", h.User.DeleteUser)

	secured.POST("/sessions/login", h.Session.StaffLogin)
	secured.POST("/sessions/logout", h.Session.TechnicianLogout)
	secured.GET("/sessions/online", h.Session.Online)

	secured.POST("/rollcall/checkin", h.RollCall.CheckIn)
	secured.POST("/rollcall/checkout", h.RollCall.CheckOut)
	secured.GET("/rollcall", h.RollCall.History)
	admin.POST("/rollcall", h.RollCall.Snapshot)

	secured.POST("/jobs", h.Job.CreateJob)
	secured.GET("/jobs", h.Job.ListJobs)
	secured.GET("/jobs/:id", h.Job.GetJob)
	secured.POST("/jobs/:id/start", h.Job.StartJob)
	secured.PUT("/jobs/:id", h.Job.UpdateJob)

	admin.GET("/reports/weekly", h.Report.Weekly)
	admin.GET("/reports/weekly/export", h.Report.ExportWeekly)
	admin.GET("/reports/technician/:id", h.Report.TechnicianJobs)
	admin.GET("/reports/jobs/history", h.Report.JobHistory)
	admin.GET("/reports/technicians/active", h.Report.ActiveTechnicians)
	admin.GET("/reports/rollcall", h.Report.RollCall)

	admin.POST("/notifications/sms", h.Notification.SendSMS)
}
