// Package scheduler implements the Tick Loop (SPEC_FULL §4.F): a
// ticker-driven loop that, each period, claims and advances every
// currently-eligible flow before going back to sleep. Its mainLoop/tick/
// Start/Stop shape follows the orchestrator tick loop in
// other_examples/randalmurphal-orc; its actual claim+advance work is
// ported from the periodic task runner in orch.routes.run_tasks_periodically.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/advancer"
	"github.com/jordigilh/orch/internal/database"
	"github.com/jordigilh/orch/internal/eligibility"
	"github.com/jordigilh/orch/internal/orcherr"
	"github.com/jordigilh/orch/internal/telemetry"
)

// AlertFunc reports a swallowed scheduler error to an external channel
// (SPEC_FULL §2, component N). It is best-effort: failures to alert are
// logged but never propagated.
type AlertFunc func(ctx context.Context, err error)

// OnFlowComplete is invoked after a flow finishes its current advancement
// with every task SUCCESS, so the caller can fire the completion webhook
// (SPEC_FULL §4.G). The scheduler does not check whether the flow has a
// webhook URL; that is left to the callback.
type OnFlowComplete func(ctx context.Context, flowID uuid.UUID)

// Scheduler runs the tick loop against a single advancer.
type Scheduler struct {
	pool     eligibility.Pool
	advancer *advancer.Advancer
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	period   time.Duration
	alert    AlertFunc
	onDone   OnFlowComplete

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Scheduler. alert and onDone may both be nil.
func New(pool eligibility.Pool, adv *advancer.Advancer, metrics *telemetry.Metrics, logger *zap.Logger, period time.Duration, alert AlertFunc, onDone OnFlowComplete) *Scheduler {
	return &Scheduler{
		pool:     pool,
		advancer: adv,
		metrics:  metrics,
		logger:   logger,
		period:   period,
		alert:    alert,
		onDone:   onDone,
	}
}

// Start begins the tick loop in a background goroutine. Calling Start while
// already running does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.mainLoop(loopCtx)
}

// Stop cancels the tick loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) mainLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick drains every currently-eligible flow, one claim+advance per
// iteration, stopping once nothing is eligible. A per-iteration error is
// logged, optionally alerted, and ends the tick early — the next tick picks
// up where this one left off, matching run_tasks_periodically's
// catch-log-return behavior.
func (s *Scheduler) tick(ctx context.Context) {
	for {
		started := time.Now()
		done, err := s.tickOnce(ctx)
		if s.metrics != nil {
			s.metrics.TickDuration.Observe(time.Since(started).Seconds())
		}

		if err != nil {
			s.logger.Error("scheduler tick error", zap.Error(err))
			if s.alert != nil {
				s.alert(ctx, err)
			}
			return
		}

		if done {
			return
		}
	}
}

// tickOnce claims and advances a single flow inside one transaction, so the
// claim's FOR UPDATE SKIP LOCKED lock is held across both steps — claiming
// and advancing in separate transactions would let two replicas claim the
// same flow before either advances it. It returns done=true when there was
// nothing eligible to claim.
func (s *Scheduler) tickOnce(ctx context.Context) (done bool, err error) {
	acqCtx, cancel := database.AcquireContext(ctx)
	tx, err := s.pool.Begin(acqCtx)
	cancel()
	if err != nil {
		return false, orcherr.NewDatabaseError("begin tick transaction", err)
	}
	committed := false
	defer database.RollbackUnlessCommitted(ctx, tx, &committed)

	flowID, err := eligibility.ClaimNext(ctx, tx)
	if err != nil {
		return false, err
	}
	if flowID == uuid.Nil {
		if err := tx.Commit(ctx); err != nil {
			return false, orcherr.NewDatabaseError("commit tick transaction", err)
		}
		committed = true
		return true, nil
	}

	if s.metrics != nil {
		s.metrics.FlowsClaimed.Inc()
	}

	status, flowDone, err := s.advancer.AdvanceTx(ctx, tx, flowID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, orcherr.NewDatabaseError("commit tick transaction", err)
	}
	committed = true

	if s.metrics != nil {
		s.metrics.TasksAdvanced.WithLabelValues(string(status)).Inc()
	}

	s.logger.Info("task advanced",
		zap.String("flow_id", flowID.String()),
		zap.String("task_status", string(status)),
	)

	if flowDone && s.onDone != nil {
		s.onDone(ctx, flowID)
	}

	return false, nil
}
