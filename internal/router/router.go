// Package router maps the HTTP surface onto handlers.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymslot-api/internal/handler"
	"github.com/noah-isme/gymslot-api/internal/middleware"
	"github.com/noah-isme/gymslot-api/internal/models"
)

// Handlers groups every handler the API serves.
type Handlers struct {
	Auth         *handler.AuthHandler
	Slots        *handler.SlotHandler
	Bookings     *handler.BookingHandler
	Feedback     *handler.FeedbackHandler
	Announcement *handler.AnnouncementHandler
	Metrics      *handler.MetricsHandler
}

// Options configures Register.
type Options struct {
	Prefix        string
	Tokens        middleware.TokenValidator
	Audit         middleware.AuditWriter
	EnableMetrics bool
}

// Register mounts probes at the root and the API under opts.Prefix.
func Register(r *gin.Engine, h Handlers, opts Options) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if opts.EnableMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(opts.Prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/signin", h.Auth.SignIn)
	auth.POST("/admin/signin", h.Auth.AdminSignIn)
	auth.POST("/refresh", h.Auth.Refresh)

	session := api.Group("")
	session.Use(middleware.JWT(opts.Tokens))
	session.POST("/auth/signout", h.Auth.SignOut)
	session.GET("/auth/me", h.Auth.Me)

	session.GET("/calendar/week", h.Slots.Week)
	session.GET("/slots", h.Slots.List)
	session.GET("/slots/state", h.Bookings.State)
	session.POST("/slots/counts", h.Bookings.Counts)

	session.POST("/bookings", h.Bookings.Create)
	session.GET("/bookings/me", h.Bookings.Mine)
	session.POST("/bookings/:id/cancel", h.Bookings.Cancel)

	session.POST("/feedback", h.Feedback.Submit)
	session.GET("/announcements", h.Announcement.Active)

	admin := session.Group("/admin")
	admin.Use(middleware.RequireAdmin())

	admin.POST("/slots/materialize", h.Slots.Materialize)
	admin.POST("/slots/toggle", h.Slots.ToggleCell)
	admin.POST("/slots/:id/toggle", h.Slots.Toggle)
	admin.PUT("/slots/:id/blocked", h.Slots.SetBlocked)
	admin.PUT("/slots/:id/capacity", h.Slots.SetCapacity)
	admin.GET("/slots/:id/bookings", h.Bookings.SlotRoster)
	admin.GET("/slots/:id/bookings/export", middleware.Audit(opts.Audit, models.AuditActionRosterExport, "slots"), h.Bookings.ExportSlot)

	admin.GET("/bookings", h.Bookings.List)
	admin.GET("/bookings/day/:date", h.Bookings.DayRoster)
	admin.GET("/bookings/day/:date/export", middleware.Audit(opts.Audit, models.AuditActionRosterExport, "bookings"), h.Bookings.ExportDay)

	admin.GET("/feedback", h.Feedback.List)
	admin.PUT("/feedback/:id/status", h.Feedback.UpdateStatus)

	admin.GET("/announcements", h.Announcement.List)
	admin.POST("/announcements", h.Announcement.Create)
	admin.GET("/announcements/:id", h.Announcement.Get)
	admin.PUT("/announcements/:id", h.Announcement.Update)
	admin.DELETE("/announcements/:id", h.Announcement.Delete)
}
