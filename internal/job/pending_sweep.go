package job

import (
	"context"
	"log"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/service"
)

// PendingSweepJob is the 5-minute end-of-life sweep named in spec.md
// §4.1: a pending session older than the sweep horizon is cancelled
// with reason "timeout". Ticker-loop shape generalized from the
// reference payments backend's order-timeout job.
type PendingSweepJob struct {
	sessions *service.SessionService
	stopCh   chan struct{}
	interval time.Duration
}

func NewPendingSweepJob(sessions *service.SessionService) *PendingSweepJob {
	return &PendingSweepJob{
		sessions: sessions,
		stopCh:   make(chan struct{}),
		interval: 30 * time.Second,
	}
}

func (j *PendingSweepJob) Start(ctx context.Context) {
	log.Println("[PendingSweepJob] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[PendingSweepJob] stopping: context cancelled")
			return
		case <-j.stopCh:
			log.Println("[PendingSweepJob] stopping: Stop called")
			return
		case <-ticker.C:
			swept, err := j.sessions.SweepExpiredPending(ctx)
			if err != nil {
				log.Printf("[PendingSweepJob] sweep failed: err=%v", err)
				continue
			}
			if swept > 0 {
				log.Printf("[PendingSweepJob] cancelled %d expired pending sessions", swept)
			}
		}
	}
}

func (j *PendingSweepJob) Stop() {
	close(j.stopCh)
}
