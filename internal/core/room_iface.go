package core

import "github.com/hanna-voice/agent/internal/domain"

type RoomEvent string

const (
	ParticipantConnected    RoomEvent = "participant_connected"
	ParticipantDisconnected RoomEvent = "participant_disconnected"
)

type ParticipantHandler func(domain.Participant)

// Room is the agent-side view of the real-time room.
// Handlers run synchronously on the adapter's event goroutine and must not
// block; anything that waits belongs in a spawned task.
type Room interface {
	Name() domain.RoomName
	LocalIdentity() domain.Identity

	// On subscribes a handler and returns the matching unsubscribe.
	On(ev RoomEvent, h ParticipantHandler) (off func())

	// RemoteParticipants is a point-in-time membership snapshot.
	RemoteParticipants() []domain.Participant
}

// RoomAdmin is the administrative API surface; all calls are best effort.
type RoomAdmin interface {
	DeleteRoom(name domain.RoomName) error
}
