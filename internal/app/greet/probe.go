package greet

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

// ErrMediaTimeout reports that media readiness was not confirmed in time.
// Callers treat it as non-fatal and greet anyway.
var ErrMediaTimeout = errors.New("timed out waiting for media streams")

const defaultPollInterval = 100 * time.Millisecond

// ReadinessProbe polls the session input until the audio pipeline is live.
type ReadinessProbe struct {
	input    core.SessionInput
	interval time.Duration
}

func NewReadinessProbe(input core.SessionInput) *ReadinessProbe {
	return &ReadinessProbe{input: input, interval: defaultPollInterval}
}

// WaitReady blocks until the audio input pipeline is live and, in single
// mode, linked to identity. A deadline miss returns ErrMediaTimeout.
//
// After the primary condition holds, WaitReady also waits (bounded by the
// same timeout) for the transport to acknowledge subscription to the
// agent's own audio track. That secondary wait never fails the call; a miss
// is only logged.
func (p *ReadinessProbe) WaitReady(ctx context.Context, identity domain.Identity, timeout time.Duration, broadcast bool) error {
	deadline := time.Now().Add(timeout)
	for !p.ready(identity, broadcast) {
		if time.Now().After(deadline) {
			return ErrMediaTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}

	if sub := p.input.Subscribed(); sub != nil {
		select {
		case <-sub:
		case <-time.After(timeout):
			log.Warn().Str("module", "greet.probe").
				Str("identity", string(identity)).
				Msg("timed out waiting for transport to subscribe to agent audio")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *ReadinessProbe) ready(identity domain.Identity, broadcast bool) bool {
	in, ok := p.input.AudioInput()
	if !ok || !in.Live() {
		return false
	}
	if broadcast {
		return true
	}
	linked, ok := p.input.LinkedParticipant()
	return ok && linked == identity
}
