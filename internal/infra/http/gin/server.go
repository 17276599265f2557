package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/infra/config"
	"shutterbook/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Confirm(c *gin.Context)
	Decline(c *gin.Context)
	Cancel(c *gin.Context)
	Reopen(c *gin.Context)
	Delete(c *gin.Context)
	Convert(c *gin.Context)
}

type AvailabilityHTTP interface {
	CreateSlot(c *gin.Context)
	BlockSlot(c *gin.Context)
	CreateRecurring(c *gin.Context)
	ListSlots(c *gin.Context)
	Available(c *gin.Context)
	DeleteSlot(c *gin.Context)
	ReleaseSlot(c *gin.Context)
	BookSlot(c *gin.Context)
}

type ActivityHTTP interface {
	Recent(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Availability AvailabilityHTTP
	Activity     ActivityHTTP
	Actor        gin.HandlerFunc
}

// NewHandlers binds every route group to the buses. adminToken guards the
// administrative commands when the engine has an authorizer.
func NewHandlers(cmds commands.Bus, qs queries.Bus, adminToken string, logger *slog.Logger) Handlers {
	return Handlers{
		Booking:      BookingHandler{Commands: cmds, Queries: qs, Logger: logger},
		Availability: AvailabilityHandler{Commands: cmds, Queries: qs, Logger: logger},
		Activity:     ActivityHandler{Queries: qs, Logger: logger},
		Actor:        AdminTokenActor(adminToken),
	}
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.Actor != nil {
		router.Use(h.Actor)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		bookings := api.Group("/bookings")
		bookings.POST("", h.Booking.Create)
		bookings.GET("", h.Booking.List)
		bookings.GET("/:id", h.Booking.Get)
		bookings.PUT("/:id", h.Booking.Update)
		bookings.DELETE("/:id", h.Booking.Delete)
		bookings.POST("/:id/confirm", h.Booking.Confirm)
		bookings.POST("/:id/decline", h.Booking.Decline)
		bookings.POST("/:id/cancel", h.Booking.Cancel)
		bookings.POST("/:id/reopen", h.Booking.Reopen)
		bookings.POST("/:id/convert", h.Booking.Convert)
	}
	if h.Availability != nil {
		av := api.Group("/availability")
		av.GET("/slots", h.Availability.ListSlots)
		av.POST("/slots", h.Availability.CreateSlot)
		av.DELETE("/slots/:id", h.Availability.DeleteSlot)
		av.POST("/slots/:id/release", h.Availability.ReleaseSlot)
		av.POST("/slots/:id/book", h.Availability.BookSlot)
		av.POST("/blocks", h.Availability.BlockSlot)
		av.POST("/recurring", h.Availability.CreateRecurring)
		av.GET("/available", h.Availability.Available)
	}
	if h.Activity != nil {
		api.GET("/activity/:kind/:id", h.Activity.Recent)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
