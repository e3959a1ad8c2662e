package greet

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

const (
	maxGreetingAttempts = 3
	greetingBackoffStep = 600 * time.Millisecond
)

// Deliverer speaks the greeting with bounded retries. The primary path asks
// the backend to generate a reply seeded with the greeting text; once
// retries near exhaustion it switches to direct speech, since a stuck
// generation pipeline is the dominant failure mode.
type Deliverer struct {
	replies  core.ReplyChannel
	attempts int
	backoff  time.Duration
}

func NewDeliverer(replies core.ReplyChannel) *Deliverer {
	return &Deliverer{
		replies:  replies,
		attempts: maxGreetingAttempts,
		backoff:  greetingBackoffStep,
	}
}

// Greet returns true once playout completed. A false return is final for
// this initialization; the reconciliation sweep may start a fresh one later.
func (d *Deliverer) Greet(ctx context.Context, identity domain.Identity, text string) bool {
	fallback := false
	for attempt := 1; attempt <= d.attempts; attempt++ {
		var (
			handle core.SpeechHandle
			err    error
		)
		if fallback {
			handle, err = d.replies.Say(ctx, text)
		} else {
			handle, err = d.replies.GenerateReply(ctx, text)
		}
		if err == nil {
			err = handle.WaitForPlayout(ctx)
		}
		if err == nil {
			return true
		}

		if !errors.Is(err, core.ErrBackendNotReady) {
			log.Warn().Str("module", "greet.deliver").
				Str("identity", string(identity)).
				Err(err).
				Msg("failed to send greeting")
			return false
		}

		backoff := time.Duration(attempt) * d.backoff
		log.Warn().Str("module", "greet.deliver").
			Str("identity", string(identity)).
			Int("attempt", attempt).
			Dur("retry_in", backoff).
			Err(err).
			Msg("greeting attempt failed, backend not ready")

		// Penultimate attempt switches to the direct speech path and
		// retries immediately.
		if attempt == d.attempts-1 && !fallback {
			fallback = true
			continue
		}
		if attempt >= d.attempts {
			return false
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
	}
	return false
}
