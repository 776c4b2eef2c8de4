package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// NewMemoryRepositories returns FakeRepositories backed by in-memory stores.
// Writes are not rolled back when a unit of work fails.
func NewMemoryRepositories() *FakeRepositories {
	return &FakeRepositories{
		Points:       NewMemoryPoints(),
		Payments:     NewMemoryPayments(),
		Idempotency:  NewMemoryIdempotency(),
		Reservations: NewMemoryReservations(),
		Schedules:    NewMemorySchedules(),
	}
}

// MemoryPoints is a PointRepository with the versioned save contract
type MemoryPoints struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]point.Point
	history []*point.History
}

// NewMemoryPoints creates an empty wallet store
func NewMemoryPoints() *MemoryPoints {
	return &MemoryPoints{wallets: make(map[uuid.UUID]point.Point)}
}

// Seed stores a wallet with the given balance
func (r *MemoryPoints) Seed(userID uuid.UUID, balance int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := point.NewPoint(userID)
	p.Amount = valueobject.MustAmount(balance)
	p.Version = 1
	r.wallets[userID] = *p
}

// Balance returns the stored balance, 0 when the user has no wallet
func (r *MemoryPoints) Balance(userID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wallets[userID].Amount.Value()
}

// History returns every recorded change in insertion order
func (r *MemoryPoints) History() []*point.History {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*point.History(nil), r.history...)
}

func (r *MemoryPoints) FindByUserID(_ context.Context, userID uuid.UUID) (*point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "Point wallet not found")
	}
	return &w, nil
}

func (r *MemoryPoints) Save(_ context.Context, p *point.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.wallets[p.UserID]
	if exists && current.Version != p.Version-1 {
		return shared.ErrOptimisticLock
	}
	if !exists && p.Version != 1 {
		return shared.ErrOptimisticLock
	}
	r.wallets[p.UserID] = *p
	return nil
}

func (r *MemoryPoints) AppendHistory(_ context.Context, h *point.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, h)
	return nil
}

func (r *MemoryPoints) FindHistory(_ context.Context, userID uuid.UUID, page shared.PageRequest) ([]*point.History, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine []*point.History
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].UserID == userID {
			mine = append(mine, r.history[i])
		}
	}
	return pageOf(mine, page), int64(len(mine)), nil
}

// MemoryPayments is a PaymentRepository with optimistic updates
type MemoryPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]payment.Payment
}

// NewMemoryPayments creates an empty payment store
func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{payments: make(map[uuid.UUID]payment.Payment)}
}

// All returns stored payments in no particular order
func (r *MemoryPayments) All() []payment.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payment.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out
}

func (r *MemoryPayments) Save(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.payments[p.ID]; exists {
		return shared.ErrAlreadyExists
	}
	stored := *p
	stored.ClearDomainEvents()
	r.payments[p.ID] = stored
	return nil
}

func (r *MemoryPayments) Update(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.payments[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.GetVersion() != p.GetVersion()-1 {
		return shared.ErrOptimisticLock
	}
	stored := *p
	stored.ClearDomainEvents()
	r.payments[p.ID] = stored
	return nil
}

func (r *MemoryPayments) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return &p, nil
}

// MemoryIdempotency is an IdempotencyRepository keyed by request key
type MemoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]payment.Idempotency
}

// NewMemoryIdempotency creates an empty key store
func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{keys: make(map[string]payment.Idempotency)}
}

// Get returns a stored key
func (r *MemoryIdempotency) Get(key string) (payment.Idempotency, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.keys[key]
	return i, ok
}

func (r *MemoryIdempotency) TryInsert(_ context.Context, i *payment.Idempotency) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[i.Key]; exists {
		return false, nil
	}
	r.keys[i.Key] = *i
	return true, nil
}

func (r *MemoryIdempotency) FindByKey(_ context.Context, key string) (*payment.Idempotency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.keys[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &i, nil
}

func (r *MemoryIdempotency) Update(_ context.Context, i *payment.Idempotency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[i.Key]; !exists {
		return shared.ErrNotFound
	}
	r.keys[i.Key] = *i
	return nil
}

// MemoryReservations is a ReservationRepository over a map
type MemoryReservations struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*reservation.Reservation
}

// NewMemoryReservations creates an empty reservation store
func NewMemoryReservations() *MemoryReservations {
	return &MemoryReservations{reservations: make(map[uuid.UUID]*reservation.Reservation)}
}

func (r *MemoryReservations) Save(_ context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *res
	r.reservations[res.ID] = &copied
	return nil
}

func (r *MemoryReservations) Update(_ context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[res.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := *res
	r.reservations[res.ID] = &copied
	return nil
}

func (r *MemoryReservations) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "Reservation not found")
	}
	copied := *res
	return &copied, nil
}

func (r *MemoryReservations) FindByPaymentID(_ context.Context, paymentID uuid.UUID) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.PaymentID == paymentID {
			copied := *res
			return &copied, nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "Reservation not found")
}

func (r *MemoryReservations) FindByUserID(_ context.Context, userID uuid.UUID) ([]*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reservation.Reservation
	for _, res := range r.reservations {
		if res.UserID == userID {
			copied := *res
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryReservations) FindReservedSeatIDs(_ context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, res := range r.reservations {
		if res.Status == reservation.StatusCancelled {
			continue
		}
		for _, d := range res.Details {
			if d.ScheduleID == scheduleID {
				ids = append(ids, d.SeatID)
			}
		}
	}
	return ids, nil
}

// MemorySchedules is a ScheduleRepository over a map
type MemorySchedules struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]concert.Schedule
}

// NewMemorySchedules creates an empty schedule store
func NewMemorySchedules() *MemorySchedules {
	return &MemorySchedules{schedules: make(map[uuid.UUID]concert.Schedule)}
}

// Add stores a schedule
func (r *MemorySchedules) Add(s *concert.Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[s.ID] = *s
}

func (r *MemorySchedules) FindByID(_ context.Context, id uuid.UUID) (*concert.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "Schedule not found")
	}
	return &s, nil
}

func (r *MemorySchedules) FindByConcertAndDate(_ context.Context, concertID uuid.UUID, date time.Time) (*concert.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schedules {
		if s.ConcertID == concertID && s.Date.Equal(date) {
			return &s, nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "Schedule not found")
}

func (r *MemorySchedules) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*concert.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]*concert.Schedule, len(ids))
	for _, id := range ids {
		if s, ok := r.schedules[id]; ok {
			out[id] = &s
		}
	}
	return out, nil
}

func (r *MemorySchedules) UpdateSeats(_ context.Context, s *concert.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[s.ID]; !ok {
		return shared.ErrNotFound
	}
	r.schedules[s.ID] = *s
	return nil
}

func pageOf[T any](items []T, page shared.PageRequest) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
