// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// domain type with ToDomain / <Model>FromDomain.
//
// Tables:
//   - users
//   - venues, venue_seats
//   - concerts, concert_schedules
//   - reservations, reservation_details
//   - points, point_histories
//   - payments, payment_idempotency
//   - outbox_events
package models
