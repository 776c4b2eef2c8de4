package main

import (
	"context"
	"time"

	"github.com/roovies/concert-reservation/internal/infrastructure/config"
	"github.com/roovies/concert-reservation/internal/infrastructure/scheduler"
)

const (
	jobWeeklyRanking = "weekly-ranking"
	jobWaitingStatus = "waiting-status"
	jobWaitingAdmit  = "waiting-admit"
	jobOutboxCleanup = "outbox-cleanup"
)

type rankingRebuilder interface {
	RebuildWeekly(ctx context.Context) error
}

type waitingRoom interface {
	PublishStatuses(ctx context.Context) error
	AdmitAll(ctx context.Context) error
}

type outboxCleaner interface {
	Cleanup(ctx context.Context) error
}

type jobTargets struct {
	ranking rankingRebuilder
	waiting waitingRoom
	// outbox is nil when the processor is disabled.
	outbox outboxCleaner
}

// registerJobs schedules the periodic work. With SingleInstanceLock each tick
// runs on one instance only.
func registerJobs(s *scheduler.Scheduler, cfg *config.Config, t jobTargets) error {
	single := cfg.Scheduler.SingleInstanceLock
	jobs := []scheduler.Job{
		{Name: jobWeeklyRanking, Spec: cfg.Scheduler.WeeklyRankingCron, Distributed: single, Run: t.ranking.RebuildWeekly},
		{Name: jobWaitingStatus, Spec: every(cfg.Scheduler.WaitingStatusEvery), Distributed: single, Run: t.waiting.PublishStatuses},
		{Name: jobWaitingAdmit, Spec: every(cfg.Scheduler.AdmissionEvery), Distributed: single, Run: t.waiting.AdmitAll},
	}
	if t.outbox != nil && cfg.Event.CleanupEnabled {
		jobs = append(jobs, scheduler.Job{
			Name:        jobOutboxCleanup,
			Spec:        cfg.Scheduler.OutboxCleanupCron,
			Distributed: single,
			Run:         t.outbox.Cleanup,
		})
	}
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
