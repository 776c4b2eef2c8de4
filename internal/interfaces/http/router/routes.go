package router

import (
	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Auth        *handler.AuthHandler
	User        *handler.UserHandler
	Concert     *handler.ConcertHandler
	Reservation *handler.ReservationHandler
	Point       *handler.PointHandler
	Payment     *handler.PaymentHandler
	Waiting     *handler.WaitingHandler
	Ranking     *handler.RankingHandler
	Outbox      *handler.OutboxHandler
	System      *handler.SystemHandler
}

// Guards are the middleware placed in front of groups or single routes.
// A nil guard is skipped.
type Guards struct {
	// Auth validates the bearer access token.
	Auth gin.HandlerFunc
	// AuthLimit throttles the credential endpoints more tightly than the
	// global limiter.
	AuthLimit gin.HandlerFunc
	// Admission gates seat holds behind a waiting-room admission token.
	Admission gin.HandlerFunc
}

// APIGroups builds every domain group in registration order.
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	auth := NewDomainGroup("auth", "/auth").Use(g.AuthLimit)
	auth.POST("/login", h.Auth.Login).
		POST("/reissue", h.Auth.Reissue).
		POST("/logout", g.Auth, h.Auth.Logout)

	users := NewDomainGroup("users", "/users")
	users.POST("", h.User.Register)
	users.Group("me", "/me").Use(g.Auth).
		GET("", h.User.GetMe).
		PATCH("", h.User.UpdateMe).
		DELETE("", h.User.DeleteMe).
		PUT("/password", h.User.ChangePassword)

	concerts := NewDomainGroup("concerts", "/concerts").
		GET("", h.Concert.ListConcerts).
		GET("/:id", h.Concert.GetConcert).
		GET("/:id/schedules", h.Concert.ListSchedules)

	reservations := NewDomainGroup("reservations", "/reservations")
	reservations.GET("/:concertId/schedules/:date/seats", h.Reservation.GetAvailableSeats)
	reservations.Group("holds", "").Use(g.Auth).
		POST("/hold", g.Admission, h.Reservation.HoldSeats).
		DELETE("/hold", h.Reservation.ReleaseHolds).
		GET("/hold/me", h.Reservation.GetMyHold).
		GET("/me", h.Reservation.ListMyReservations)

	point := NewDomainGroup("point", "/point").Use(g.Auth).
		GET("", h.Point.GetBalance).
		POST("/charge", h.Point.Charge).
		GET("/history", h.Point.GetHistory)

	payments := NewDomainGroup("payments", "/payments").Use(g.Auth).
		POST("", h.Payment.Pay).
		GET("/:id", h.Payment.GetPayment).
		POST("/:id/cancel", h.Payment.Cancel)

	waiting := NewDomainGroup("waiting", "/waiting/reservation").Use(g.Auth).
		POST("/enter", h.Waiting.Enter).
		GET("/subscribe", h.Waiting.Subscribe).
		DELETE("", h.Waiting.Exit)

	rankings := NewDomainGroup("rankings", "/rankings").
		GET("/realtime", h.Ranking.Realtime).
		GET("/weekly", h.Ranking.Weekly)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	system.Group("outbox", "/outbox").Use(g.Auth).
		GET("/dead", h.Outbox.ListDead).
		POST("/dead/requeue", h.Outbox.RequeueAll).
		POST("/dead/:id/requeue", h.Outbox.Requeue).
		GET("/stats", h.Outbox.Stats)

	return []*DomainGroup{auth, users, concerts, reservations, point, payments, waiting, rankings, system}
}

// RegisterAPI queues the domain groups on r.
func RegisterAPI(r *Router, h Handlers, g Guards) *Router {
	for _, group := range APIGroups(h, g) {
		r.Register(group)
	}
	return r
}
