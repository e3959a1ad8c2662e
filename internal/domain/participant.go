// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	// AttrPublishOnBehalf marks a stream published by a server-side agent
	// on behalf of another participant.
	AttrPublishOnBehalf = "lk.publish_on_behalf"
)

var ErrUnknownKind = errors.New("unknown participant kind")

type (
	Identity     string
	ConnectionID string
	RoomName     string
)

type ParticipantKind int

const (
	KindStandard ParticipantKind = iota
	KindIngress
	KindEgress
	KindSIP
	KindAgent
)

func (k ParticipantKind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindIngress:
		return "ingress"
	case KindEgress:
		return "egress"
	case KindSIP:
		return "sip"
	case KindAgent:
		return "agent"
	}
	return "unknown"
}

// ParseParticipantKind maps a config token to a kind.
func ParseParticipantKind(s string) (ParticipantKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return KindStandard, nil
	case "ingress":
		return KindIngress, nil
	case "egress":
		return KindEgress, nil
	case "sip":
		return KindSIP, nil
	case "agent":
		return KindAgent, nil
	}
	return KindStandard, ErrUnknownKind
}

// Participant is a point-in-time view of a remote room member.
// The room owns the entity; the orchestrator only reads snapshots.
type Participant struct {
	Identity     Identity
	ConnectionID ConnectionID
	Kind         ParticipantKind
	Attributes   map[string]string
	Connected    bool
}

// PublishedOnBehalfOf reports whether this participant is a stream the
// given identity published for itself via a server-side agent.
func (p Participant) PublishedOnBehalfOf(agent Identity) bool {
	if agent == "" {
		return false
	}
	return p.Attributes[AttrPublishOnBehalf] == string(agent)
}
