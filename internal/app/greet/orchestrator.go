package greet

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/hanna-voice/agent/internal/core"
)

type Options struct {
	Broadcast     bool
	GreetingText  string
	GreetingDelay time.Duration
	MediaTimeout  time.Duration
	// PollInterval is the reconciliation sweep period.
	PollInterval time.Duration
}

// Orchestrator reconciles room membership events with media readiness and
// drives the greeting lifecycle: Unseen -> Inflight -> Greeted per
// connected episode, plus the room-empty shutdown.
type Orchestrator struct {
	room     core.Room
	input    core.SessionInput
	registry *Registry
	link     *LinkController
	probe    *ReadinessProbe
	deliver  *Deliverer
	shutdown *ShutdownScheduler
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	tasks  conc.WaitGroup
	offs   []func()
}

func NewOrchestrator(
	room core.Room,
	input core.SessionInput,
	link *LinkController,
	deliver *Deliverer,
	shutdown *ShutdownScheduler,
	opts Options,
) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MediaTimeout <= 0 {
		opts.MediaTimeout = 10 * time.Second
	}
	return &Orchestrator{
		room:     room,
		input:    input,
		registry: NewRegistry(),
		link:     link,
		probe:    NewReadinessProbe(input),
		deliver:  deliver,
		shutdown: shutdown,
		opts:     opts,
	}
}

// Attach subscribes to room events, drives every participant already in the
// snapshot through the connect transition, and starts the reconciliation
// sweep.
func (o *Orchestrator) Attach(parent context.Context) {
	o.ctx, o.cancel = context.WithCancel(parent)

	if o.opts.Broadcast {
		o.link.EnterBroadcast()
	}

	o.offs = append(o.offs,
		o.room.On(core.ParticipantConnected, o.onConnected),
		o.room.On(core.ParticipantDisconnected, o.onDisconnected),
	)

	for _, p := range o.room.RemoteParticipants() {
		o.onConnected(p)
	}

	o.tasks.Go(func() { o.reconcile(o.ctx) })
	log.Info().Str("module", "greet").Str("room", string(o.room.Name())).Msg("orchestrator attached")
}

// Detach unsubscribes from room events and waits for the sweep, any
// in-flight initializations, and a pending shutdown timer to unwind.
func (o *Orchestrator) Detach() {
	for _, off := range o.offs {
		off()
	}
	o.offs = nil
	if o.cancel != nil {
		o.cancel()
	}
	o.shutdown.Stop()
	if rec := o.tasks.WaitAndRecover(); rec != nil {
		log.Error().Str("module", "greet").
			Str("panic", rec.String()).
			Msg("orchestrator task panicked")
	}
	log.Info().Str("module", "greet").Str("room", string(o.room.Name())).Msg("orchestrator detached")
}

// reconcile periodically re-scans the live snapshot and re-drives the
// connect transition for identities the event stream missed.
func (o *Orchestrator) reconcile(ctx context.Context) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range o.room.RemoteParticipants() {
				if p.Identity == "" || o.registry.Known(p.Identity) {
					continue
				}
				log.Debug().Str("module", "greet").
					Str("identity", string(p.Identity)).
					Msg("sweep found untracked participant")
				o.onConnected(p)
			}
		}
	}
}
