package greet

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

type LinkConfig struct {
	Broadcast bool
	// Allowed lists the participant kinds the agent reacts to.
	Allowed []domain.ParticipantKind
	// Agent is the local participant identity, used to drop
	// publish-on-behalf echo streams.
	Agent domain.Identity
	// Target pins the link to a configured identity; empty means
	// first-participant-wins.
	Target domain.Identity
}

// LinkController owns the link target. All LinkTarget mutations go through
// OnConnect/OnDisconnect/EnterBroadcast.
type LinkController struct {
	mu      sync.Mutex
	input   core.SessionInput
	allowed map[domain.ParticipantKind]struct{}
	agent   domain.Identity
	target  domain.Identity
	cast    bool
}

func NewLinkController(input core.SessionInput, cfg LinkConfig) *LinkController {
	allowed := make(map[domain.ParticipantKind]struct{}, len(cfg.Allowed))
	for _, k := range cfg.Allowed {
		allowed[k] = struct{}{}
	}
	if len(allowed) == 0 {
		allowed[domain.KindStandard] = struct{}{}
		allowed[domain.KindSIP] = struct{}{}
	}
	return &LinkController{
		input:   input,
		allowed: allowed,
		agent:   cfg.Agent,
		target:  cfg.Target,
		cast:    cfg.Broadcast,
	}
}

// EnterBroadcast clears any single-participant link so the agent hears the
// whole room. Best effort; failure is logged and the session keeps its
// previous link.
func (l *LinkController) EnterBroadcast() {
	if err := l.input.UnsetParticipant(); err != nil {
		log.Warn().Str("module", "greet.link").Err(err).Msg("failed to enable broadcast mode")
		return
	}
	log.Info().Str("module", "greet.link").Msg("input switched to broadcast mode; listening to all participants")
}

// Target returns the current link target.
func (l *LinkController) Target() domain.LinkTarget {
	if l.cast {
		return domain.BroadcastTarget()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.input.LinkedParticipant(); ok {
		return domain.SingleTarget(id)
	}
	return domain.LinkTarget{}
}

// OnConnect decides whether the agent should follow the connecting
// participant. In broadcast mode a followed participant never narrows the
// link; in single mode following re-points the input at the identity.
func (l *LinkController) OnConnect(p domain.Participant) bool {
	if p.PublishedOnBehalfOf(l.agent) {
		return false
	}
	if _, ok := l.allowed[p.Kind]; !ok {
		log.Debug().Str("module", "greet.link").
			Str("identity", string(p.Identity)).
			Str("kind", p.Kind.String()).
			Msg("participant kind not allowed; ignoring")
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	linked, hasLink := l.input.LinkedParticipant()
	follow := !hasLink ||
		linked == p.Identity || // reconnect of the currently linked identity
		l.target == "" ||
		l.target == p.Identity

	if !follow {
		return false
	}
	if l.cast {
		return true
	}

	if err := l.input.SetParticipant(p.Identity); err != nil {
		log.Warn().Str("module", "greet.link").
			Str("identity", string(p.Identity)).
			Err(err).
			Msg("failed to link participant")
		return false
	}
	l.target = p.Identity
	log.Info().Str("module", "greet.link").Str("identity", string(p.Identity)).Msg("input linked to participant")
	return true
}

// OnDisconnect clears the link when the leaving identity is the linked one.
func (l *LinkController) OnDisconnect(p domain.Participant) {
	if l.cast {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	linked, ok := l.input.LinkedParticipant()
	if !ok || linked != p.Identity {
		return
	}
	if err := l.input.UnsetParticipant(); err != nil {
		log.Warn().Str("module", "greet.link").
			Str("identity", string(p.Identity)).
			Err(err).
			Msg("failed to unlink participant")
		return
	}
	l.target = ""
	log.Info().Str("module", "greet.link").Str("identity", string(p.Identity)).Msg("input unlinked")
}
