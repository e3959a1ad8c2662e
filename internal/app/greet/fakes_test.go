package greet

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

type fakeRoom struct {
	mu           sync.Mutex
	name         domain.RoomName
	local        domain.Identity
	nextSub      int
	handlers     map[core.RoomEvent]map[int]core.ParticipantHandler
	participants map[domain.Identity]domain.Participant
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{
		name:         "test-room",
		local:        "hanna",
		handlers:     make(map[core.RoomEvent]map[int]core.ParticipantHandler),
		participants: make(map[domain.Identity]domain.Participant),
	}
}

func (r *fakeRoom) Name() domain.RoomName          { return r.name }
func (r *fakeRoom) LocalIdentity() domain.Identity { return r.local }

func (r *fakeRoom) On(ev core.RoomEvent, h core.ParticipantHandler) func() {
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

func (r *fakeRoom) RemoteParticipants() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	return out
}

func (r *fakeRoom) emit(ev core.RoomEvent, p domain.Participant) {
	r.mu.Lock()
	hs := make([]core.ParticipantHandler, 0, len(r.handlers[ev]))
	for _, h := range r.handlers[ev] {
		hs = append(hs, h)
	}
	r.mu.Unlock()
	for _, h := range hs {
		h(p)
	}
}

// join adds the participant to the snapshot and fires the connect event.
func (r *fakeRoom) join(p domain.Participant) {
	r.mu.Lock()
	r.participants[p.Identity] = p
	r.mu.Unlock()
	r.emit(core.ParticipantConnected, p)
}

// appear adds to the snapshot without an event, as a missed notification.
func (r *fakeRoom) appear(p domain.Participant) {
	r.mu.Lock()
	r.participants[p.Identity] = p
	r.mu.Unlock()
}

// leave removes the participant and fires the disconnect event.
func (r *fakeRoom) leave(id domain.Identity) {
	r.mu.Lock()
	p, ok := r.participants[id]
	delete(r.participants, id)
	r.mu.Unlock()
	if !ok {
		p = stdParticipant(id)
	}
	p.Connected = false
	r.emit(core.ParticipantDisconnected, p)
}

func stdParticipant(id domain.Identity) domain.Participant {
	return domain.Participant{
		Identity:     id,
		ConnectionID: domain.ConnectionID(uuid.NewString()),
		Kind:         domain.KindStandard,
		Connected:    true,
	}
}

type fakeInput struct {
	mu          sync.Mutex
	enabled     bool
	pipeline    bool
	live        bool
	linked      domain.Identity
	subscribed  chan struct{}
	setCalls    []domain.Identity
	unsetCalls  int
	enableCalls int
}

func newFakeInput() *fakeInput { return &fakeInput{enabled: true} }

func (f *fakeInput) AudioEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeInput) SetAudioEnabled(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
	f.enableCalls++
	return nil
}

func (f *fakeInput) AudioInput() (core.AudioInput, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pipeline {
		return nil, false
	}
	return fakeAudio{input: f}, true
}

func (f *fakeInput) LinkedParticipant() (domain.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linked == "" {
		return "", false
	}
	return f.linked, true
}

func (f *fakeInput) SetParticipant(id domain.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = id
	f.setCalls = append(f.setCalls, id)
	return nil
}

func (f *fakeInput) UnsetParticipant() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = ""
	f.unsetCalls++
	return nil
}

func (f *fakeInput) Subscribed() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed
}

// setReady flips both pipeline existence and liveness.
func (f *fakeInput) setReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipeline = ready
	f.live = ready
}

func (f *fakeInput) setCallsSnapshot() []domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Identity(nil), f.setCalls...)
}

type fakeAudio struct {
	input *fakeInput
}

func (a fakeAudio) Live() bool {
	a.input.mu.Lock()
	defer a.input.mu.Unlock()
	return a.input.live
}

// fakeReplies scripts one error (or nil) per delivery attempt. A scripted
// error is returned from the call itself; playout always succeeds.
type fakeReplies struct {
	mu     sync.Mutex
	script []error
	calls  []string
}

func (f *fakeReplies) GenerateReply(_ context.Context, _ string) (core.SpeechHandle, error) {
	return f.next("generate")
}

func (f *fakeReplies) Say(_ context.Context, _ string) (core.SpeechHandle, error) {
	return f.next("say")
}

func (f *fakeReplies) next(path string) (core.SpeechHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, path)
	if i < len(f.script) && f.script[i] != nil {
		return nil, f.script[i]
	}
	return instantPlayout{}, nil
}

func (f *fakeReplies) callsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type instantPlayout struct{}

func (instantPlayout) WaitForPlayout(context.Context) error { return nil }

type fakeJob struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeJob) AddShutdownCallback(func(string)) {}

func (f *fakeJob) Shutdown(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeJob) shutdowns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reasons...)
}

type fakeAdmin struct {
	mu      sync.Mutex
	err     error
	deleted []domain.RoomName
}

func (f *fakeAdmin) DeleteRoom(name domain.RoomName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return f.err
}

func (f *fakeAdmin) deletions() []domain.RoomName {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RoomName(nil), f.deleted...)
}
