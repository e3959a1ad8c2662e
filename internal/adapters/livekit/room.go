// Package livekit adapts the LiveKit server SDK to the core interfaces the
// orchestrator consumes.
package livekit

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

type ConnectOptions struct {
	URL       string
	APIKey    string
	APISecret string
	RoomName  domain.RoomName
	Identity  domain.Identity
}

// Room implements core.Room over a live SDK connection. Event handlers are
// fanned out synchronously on the SDK callback goroutine.
type Room struct {
	conn     *lksdk.Room
	identity domain.Identity

	mu       sync.Mutex
	nextSub  int
	handlers map[core.RoomEvent]map[int]core.ParticipantHandler

	input *sessionInput
}

func Connect(opts ConnectOptions) (*Room, error) {
	r := &Room{
		identity: opts.Identity,
		handlers: make(map[core.RoomEvent]map[int]core.ParticipantHandler),
	}
	r.input = newSessionInput()

	cb := &lksdk.RoomCallback{
		OnParticipantConnected:    r.onParticipantConnected,
		OnParticipantDisconnected: r.onParticipantDisconnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   r.input.onTrackSubscribed,
			OnTrackUnsubscribed: r.input.onTrackUnsubscribed,
		},
	}

	conn, err := lksdk.ConnectToRoom(opts.URL, lksdk.ConnectInfo{
		APIKey:              opts.APIKey,
		APISecret:           opts.APISecret,
		RoomName:            string(opts.RoomName),
		ParticipantIdentity: string(opts.Identity),
	}, cb)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to room %q: %w", opts.RoomName, err)
	}
	r.conn = conn

	if err := r.publishAudioTrack(); err != nil {
		log.Warn().Str("module", "adapters.livekit").Err(err).Msg("failed to publish agent audio track")
	}

	log.Info().Str("module", "adapters.livekit").
		Str("room", string(opts.RoomName)).
		Str("identity", string(opts.Identity)).
		Msg("connected to room")
	return r, nil
}

func (r *Room) Name() domain.RoomName { return domain.RoomName(r.conn.Name()) }

func (r *Room) LocalIdentity() domain.Identity { return r.identity }

// Input is the session input surface bound to this connection.
func (r *Room) Input() core.SessionInput { return r.input }

func (r *Room) On(ev core.RoomEvent, h core.ParticipantHandler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers[ev] == nil {
		r.handlers[ev] = make(map[int]core.ParticipantHandler)
	}
	id := r.nextSub
	r.nextSub++
	r.handlers[ev][id] = h
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers[ev], id)
	}
}

func (r *Room) RemoteParticipants() []domain.Participant {
	remotes := r.conn.GetRemoteParticipants()
	out := make([]domain.Participant, 0, len(remotes))
	for _, rp := range remotes {
		out = append(out, fromRemote(rp))
	}
	return out
}

// Speak publishes the utterance to the room as a reliable data message.
// Playout pacing is the reply channel's concern.
func (r *Room) Speak(text string) error {
	payload, err := json.Marshal(map[string]string{"type": "agent_speech", "text": text})
	if err != nil {
		return err
	}
	return r.conn.LocalParticipant.PublishDataPacket(
		lksdk.UserData(payload),
		lksdk.WithDataPublishReliable(true),
	)
}

func (r *Room) Disconnect() {
	r.conn.Disconnect()
	log.Info().Str("module", "adapters.livekit").Str("room", string(r.Name())).Msg("disconnected from room")
}

func (r *Room) publishAudioTrack() error {
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	})
	if err != nil {
		return err
	}
	if _, err := r.conn.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "agent-audio",
		Source: livekit.TrackSource_MICROPHONE,
	}); err != nil {
		return err
	}
	// The publish ack is the closest signal the SDK exposes for "the
	// transport accepted the agent's outbound audio".
	r.input.markSubscribed()
	return nil
}

func (r *Room) emit(ev core.RoomEvent, p domain.Participant) {
	r.mu.Lock()
	hs := make([]core.ParticipantHandler, 0, len(r.handlers[ev]))
	for _, h := range r.handlers[ev] {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	for _, h := range hs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Str("module", "adapters.livekit").
						Str("event", string(ev)).
						Interface("panic", rec).
						Msg("room event handler panicked")
				}
			}()
			h(p)
		}()
	}
}

func (r *Room) onParticipantConnected(rp *lksdk.RemoteParticipant) {
	r.emit(core.ParticipantConnected, fromRemote(rp))
}

func (r *Room) onParticipantDisconnected(rp *lksdk.RemoteParticipant) {
	p := fromRemote(rp)
	p.Connected = false
	r.input.dropParticipant(p.Identity)
	r.emit(core.ParticipantDisconnected, p)
}

func fromRemote(rp *lksdk.RemoteParticipant) domain.Participant {
	return domain.Participant{
		Identity:     domain.Identity(rp.Identity()),
		ConnectionID: domain.ConnectionID(rp.SID()),
		Kind:         mapKind(rp.Kind()),
		Attributes:   rp.Attributes(),
		Connected:    true,
	}
}

func mapKind(kind lksdk.ParticipantKind) domain.ParticipantKind {
	switch kind {
	case lksdk.ParticipantIngress:
		return domain.KindIngress
	case lksdk.ParticipantEgress:
		return domain.KindEgress
	case lksdk.ParticipantSIP:
		return domain.KindSIP
	case lksdk.ParticipantAgent:
		return domain.KindAgent
	default:
		return domain.KindStandard
	}
}
