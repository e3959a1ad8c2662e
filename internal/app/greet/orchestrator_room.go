package greet

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/domain"
)

// onConnected runs synchronously on the room event goroutine; its only side
// effects are registry/link updates and spawning the initialization task.
func (o *Orchestrator) onConnected(p domain.Participant) {
	// Presence of any connecting party defers shutdown, even one the link
	// controller rejects below.
	o.shutdown.CancelPending()

	if p.Identity == "" {
		return
	}
	if !o.link.OnConnect(p) {
		return
	}
	identity := p.Identity
	if !o.registry.Begin(identity) {
		return
	}
	o.tasks.Go(func() { o.initialize(o.ctx, identity) })
}

func (o *Orchestrator) onDisconnected(p domain.Participant) {
	if p.Identity == "" {
		return
	}
	o.registry.Drop(p.Identity)
	o.link.OnDisconnect(p)
	o.shutdown.Evaluate()
	log.Info().Str("module", "greet").Str("identity", string(p.Identity)).Msg("participant disconnected")
}

// initialize is the per-identity task: confirm media, then greet. The
// identity is already marked in-flight; Finish always runs, whatever the
// outcome.
func (o *Orchestrator) initialize(ctx context.Context, identity domain.Identity) {
	greeted := false
	defer func() { o.registry.Finish(identity, greeted) }()

	o.ensureAudioEnabled()

	if err := o.probe.WaitReady(ctx, identity, o.opts.MediaTimeout, o.opts.Broadcast); err != nil {
		if !errors.Is(err, ErrMediaTimeout) {
			return // teardown
		}
		log.Warn().Str("module", "greet").
			Str("identity", string(identity)).
			Msg("media not ready in time; greeting without confirmed readiness")
	}

	o.ensureAudioEnabled()

	if o.registry.Greeted(identity) {
		return
	}

	if d := o.opts.GreetingDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return
		}
	}

	greeted = o.deliver.Greet(ctx, identity, o.opts.GreetingText)
	if !greeted {
		log.Warn().Str("module", "greet").
			Str("identity", string(identity)).
			Msg("greeting not delivered; participant left ungreeted")
	}
}

func (o *Orchestrator) ensureAudioEnabled() {
	if o.input.AudioEnabled() {
		return
	}
	if err := o.input.SetAudioEnabled(true); err != nil {
		log.Debug().Str("module", "greet").Err(err).Msg("failed to ensure audio input enabled")
	}
}
