package core

import "github.com/hanna-voice/agent/internal/domain"

// AudioInput is an opaque handle onto the session's inbound audio pipeline,
// used only for liveness checks.
type AudioInput interface {
	Live() bool
}

// SessionInput controls which participant the agent's input pipeline follows
// and whether audio capture is enabled.
type SessionInput interface {
	AudioEnabled() bool
	SetAudioEnabled(enabled bool) error

	// AudioInput returns false while the pipeline does not exist yet.
	AudioInput() (AudioInput, bool)

	// LinkedParticipant returns false in broadcast mode or before any link.
	LinkedParticipant() (domain.Identity, bool)
	SetParticipant(id domain.Identity) error
	UnsetParticipant() error

	// Subscribed is closed once the transport acknowledges subscription to
	// the agent's outbound audio track. A nil channel means the transport
	// does not expose the signal.
	Subscribed() <-chan struct{}
}
