package livekit

import (
	"sync"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

// sessionInput implements core.SessionInput over the SDK's track
// subscription callbacks. The "linked participant" is bookkeeping on the
// agent side; the SDK subscribes to everything and the link decides whose
// audio the pipeline consumes.
type sessionInput struct {
	mu           sync.Mutex
	enabled      bool
	linked       domain.Identity
	audioTracks  map[domain.Identity]int
	pipelineSeen bool

	subOnce    sync.Once
	subscribed chan struct{}
}

func newSessionInput() *sessionInput {
	return &sessionInput{
		enabled:     true,
		audioTracks: make(map[domain.Identity]int),
		subscribed:  make(chan struct{}),
	}
}

func (s *sessionInput) AudioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *sessionInput) SetAudioEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	return nil
}

func (s *sessionInput) AudioInput() (core.AudioInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pipelineSeen {
		return nil, false
	}
	return audioHandle{input: s}, true
}

func (s *sessionInput) LinkedParticipant() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linked == "" {
		return "", false
	}
	return s.linked, true
}

func (s *sessionInput) SetParticipant(id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = id
	return nil
}

func (s *sessionInput) UnsetParticipant() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = ""
	return nil
}

func (s *sessionInput) Subscribed() <-chan struct{} { return s.subscribed }

func (s *sessionInput) markSubscribed() {
	s.subOnce.Do(func() { close(s.subscribed) })
}

func (s *sessionInput) onTrackSubscribed(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	id := domain.Identity(rp.Identity())
	s.mu.Lock()
	s.audioTracks[id]++
	s.pipelineSeen = true
	s.mu.Unlock()
	log.Debug().Str("module", "adapters.livekit").Str("identity", string(id)).Msg("audio track subscribed")
}

func (s *sessionInput) onTrackUnsubscribed(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	id := domain.Identity(rp.Identity())
	s.mu.Lock()
	if s.audioTracks[id] > 0 {
		s.audioTracks[id]--
	}
	if s.audioTracks[id] == 0 {
		delete(s.audioTracks, id)
	}
	s.mu.Unlock()
}

func (s *sessionInput) dropParticipant(id domain.Identity) {
	s.mu.Lock()
	delete(s.audioTracks, id)
	s.mu.Unlock()
}

// audioHandle reports pipeline liveness: audio capture enabled and at least
// one subscribed audio track (the linked one's, when a link is set).
type audioHandle struct {
	input *sessionInput
}

func (h audioHandle) Live() bool {
	s := h.input
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return false
	}
	if s.linked != "" {
		return s.audioTracks[s.linked] > 0
	}
	return len(s.audioTracks) > 0
}
