// Package ranking keeps realtime and weekly popularity rankings of schedules.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/ranking"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config holds ranking settings
type Config struct {
	TopN       int
	WeeklyDays int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{TopN: ranking.DefaultTopN, WeeklyDays: 7}
}

// RankingDTO is one ranked schedule
type RankingDTO struct {
	Rank         int       `json:"rank"`
	ScheduleID   uuid.UUID `json:"schedule_id"`
	ConcertID    uuid.UUID `json:"concert_id"`
	ConcertTitle string    `json:"concert_title"`
	PaymentCount int64     `json:"payment_count"`
	Type         string    `json:"type"`
}

// Service reads and maintains rankings
type Service struct {
	board        ranking.Board
	counts       ranking.PaymentCountQuery
	scheduleRepo concert.ScheduleRepository
	concertRepo  concert.ConcertRepository
	config       Config
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a ranking service
func NewService(
	board ranking.Board,
	counts ranking.PaymentCountQuery,
	scheduleRepo concert.ScheduleRepository,
	concertRepo concert.ConcertRepository,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.TopN <= 0 {
		config.TopN = ranking.DefaultTopN
	}
	if config.WeeklyDays <= 0 {
		config.WeeklyDays = 7
	}
	return &Service{
		board:        board,
		counts:       counts,
		scheduleRepo: scheduleRepo,
		concertRepo:  concertRepo,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// Realtime returns the top schedules by payments in the rolling realtime window
func (s *Service) Realtime(ctx context.Context) ([]RankingDTO, error) {
	return s.top(ctx, ranking.TypeRealtime)
}

// Weekly returns the top schedules of the last weekly aggregation
func (s *Service) Weekly(ctx context.Context) ([]RankingDTO, error) {
	return s.top(ctx, ranking.TypeWeekly)
}

func (s *Service) top(ctx context.Context, typ ranking.Type) ([]RankingDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ranking", "top")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrRankingType, string(typ))

	scores, err := s.board.Top(ctx, typ, s.config.TopN)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	rankings, err := s.enrich(ctx, typ, scores)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	out := make([]RankingDTO, len(rankings))
	for i, r := range rankings {
		out[i] = RankingDTO{
			Rank:         r.Rank,
			ScheduleID:   r.ScheduleID,
			ConcertID:    r.ConcertID,
			ConcertTitle: r.ConcertTitle,
			PaymentCount: r.PaymentCount,
			Type:         string(r.Type),
		}
	}
	return out, nil
}

// enrich attaches concert data. Schedules that no longer exist are skipped
// and the remaining entries ranked densely from 1.
func (s *Service) enrich(ctx context.Context, typ ranking.Type, scores []ranking.Score) ([]ranking.ConcertRanking, error) {
	if len(scores) == 0 {
		return []ranking.ConcertRanking{}, nil
	}
	scheduleIDs := make([]uuid.UUID, len(scores))
	for i, sc := range scores {
		scheduleIDs[i] = sc.ScheduleID
	}
	schedules, err := s.scheduleRepo.FindByIDs(ctx, scheduleIDs)
	if err != nil {
		return nil, err
	}
	concertIDs := make([]uuid.UUID, 0, len(schedules))
	seen := make(map[uuid.UUID]struct{}, len(schedules))
	for _, sch := range schedules {
		if _, ok := seen[sch.ConcertID]; !ok {
			seen[sch.ConcertID] = struct{}{}
			concertIDs = append(concertIDs, sch.ConcertID)
		}
	}
	concerts, err := s.concertRepo.FindByIDs(ctx, concertIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ranking.ConcertRanking, 0, len(scores))
	for _, sc := range scores {
		sch, ok := schedules[sc.ScheduleID]
		if !ok {
			continue
		}
		r := ranking.ConcertRanking{
			ScheduleID:   sc.ScheduleID,
			ConcertID:    sch.ConcertID,
			PaymentCount: sc.PaymentCount,
			Rank:         len(out) + 1,
			Type:         typ,
		}
		if c, ok := concerts[sch.ConcertID]; ok {
			r.ConcertTitle = c.Title
		}
		out = append(out, r)
	}
	return out, nil
}

// RebuildWeekly replaces the weekly ranking with payment counts of the last
// WeeklyDays days
func (s *Service) RebuildWeekly(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ranking", "rebuild_weekly")
	defer span.End()

	since := s.now().AddDate(0, 0, -s.config.WeeklyDays)
	scores, err := s.counts.CountPaymentsSince(ctx, since)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("count weekly payments: %w", err)
	}
	if err := s.board.ReplaceWeekly(ctx, scores); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("replace weekly ranking: %w", err)
	}
	s.logger.Info("Weekly ranking rebuilt",
		zap.Time("since", since),
		zap.Int("schedules", len(scores)),
	)
	return nil
}

// RealtimeHandler counts completed payments toward the realtime ranking
type RealtimeHandler struct {
	board  ranking.Board
	logger *zap.Logger
}

// NewRealtimeHandler creates the PaymentCompleted handler
func NewRealtimeHandler(board ranking.Board, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{board: board, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *RealtimeHandler) EventTypes() []string {
	return []string{payment.EventTypePaymentCompleted}
}

// Handle implements shared.EventHandler
func (h *RealtimeHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	e, ok := ev.(*payment.PaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("realtime ranking handler: unexpected event %T", ev)
	}
	var errs []error
	for _, sid := range e.ScheduleIDs {
		if err := h.board.IncrementRealtime(ctx, sid); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	h.logger.Debug("Realtime ranking updated",
		zap.String("payment_id", e.PaymentID.String()),
		zap.Int("schedules", len(e.ScheduleIDs)),
	)
	return nil
}
