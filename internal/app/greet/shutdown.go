package greet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

// ShutdownReasonRoomEmpty is the reason code passed to the job when the
// room stayed empty through the grace delay.
const ShutdownReasonRoomEmpty = "room-empty"

type ShutdownConfig struct {
	Enabled   bool
	CloseRoom bool
	Delay     time.Duration
}

// ShutdownScheduler retires the session once the room stays empty for the
// grace delay. At most one timer is pending at any time; any connect event
// cancels it.
type ShutdownScheduler struct {
	room  core.Room
	admin core.RoomAdmin // nil when room closing is disabled
	job   core.Job
	cfg   ShutdownConfig

	mu      sync.Mutex
	pending *pendingShutdown
	tasks   conc.WaitGroup
}

// pendingShutdown identifies one scheduled timer, so a finished task only
// releases its own handle and never a timer scheduled after it.
type pendingShutdown struct {
	cancel context.CancelFunc
}

func NewShutdownScheduler(room core.Room, admin core.RoomAdmin, job core.Job, cfg ShutdownConfig) *ShutdownScheduler {
	return &ShutdownScheduler{room: room, admin: admin, job: job, cfg: cfg}
}

// Evaluate schedules the grace timer when the feature is on, the room has
// no connected participants, and no timer is already pending.
func (s *ShutdownScheduler) Evaluate() {
	if !s.cfg.Enabled {
		return
	}
	if s.connectedCount() > 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	timer := &pendingShutdown{cancel: cancel}
	s.pending = timer
	s.tasks.Go(func() { s.run(ctx, timer) })
	log.Info().Str("module", "greet.shutdown").
		Dur("delay", s.cfg.Delay).
		Msg("room empty; shutdown scheduled")
}

// CancelPending drops the pending timer, if any. Called on every connect,
// even for participants the link controller later rejects.
func (s *ShutdownScheduler) CancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	s.pending.cancel()
	s.pending = nil
	log.Info().Str("module", "greet.shutdown").Msg("participant connected; pending shutdown cancelled")
}

// Stop cancels any pending timer and waits for the task to unwind.
func (s *ShutdownScheduler) Stop() {
	s.CancelPending()
	if rec := s.tasks.WaitAndRecover(); rec != nil {
		log.Error().Str("module", "greet.shutdown").
			Str("panic", rec.String()).
			Msg("shutdown task panicked")
	}
}

func (s *ShutdownScheduler) run(ctx context.Context, timer *pendingShutdown) {
	defer s.clear(timer)

	if s.cfg.Delay > 0 {
		select {
		case <-time.After(s.cfg.Delay):
		case <-ctx.Done():
			return
		}
	}

	// A reconnect during the delay resolves the race in favor of staying up.
	if s.connectedCount() > 0 {
		return
	}

	if s.cfg.CloseRoom && s.admin != nil {
		name := s.room.Name()
		if err := s.admin.DeleteRoom(name); err != nil {
			log.Warn().Str("module", "greet.shutdown").
				Str("room", string(name)).
				Err(err).
				Msg("failed to close room")
		} else {
			log.Info().Str("module", "greet.shutdown").
				Str("room", string(name)).
				Msg("closed room after last participant left")
		}
	} else {
		log.Info().Str("module", "greet.shutdown").Msg("all participants left; shutting down the agent worker")
	}
	s.job.Shutdown(ShutdownReasonRoomEmpty)
}

func (s *ShutdownScheduler) clear(timer *pendingShutdown) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == timer {
		s.pending.cancel()
		s.pending = nil
	}
}

func (s *ShutdownScheduler) connectedCount() int {
	return lo.CountBy(s.room.RemoteParticipants(), func(p domain.Participant) bool {
		return p.Connected
	})
}
