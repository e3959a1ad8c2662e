package greet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProbe(input *fakeInput) *ReadinessProbe {
	return &ReadinessProbe{input: input, interval: time.Millisecond}
}

func TestProbeReadyImmediately(t *testing.T) {
	input := newFakeInput()
	input.setReady(true)

	err := testProbe(input).WaitReady(context.Background(), "alice", 100*time.Millisecond, true)
	assert.NoError(t, err)
}

func TestProbeWaitsForLateReadiness(t *testing.T) {
	input := newFakeInput()
	go func() {
		time.Sleep(20 * time.Millisecond)
		input.setReady(true)
	}()

	err := testProbe(input).WaitReady(context.Background(), "alice", time.Second, true)
	assert.NoError(t, err)
}

func TestProbeTimesOut(t *testing.T) {
	input := newFakeInput()

	err := testProbe(input).WaitReady(context.Background(), "bob", 30*time.Millisecond, true)
	assert.ErrorIs(t, err, ErrMediaTimeout)
}

func TestProbeSingleModeRequiresMatchingLink(t *testing.T) {
	input := newFakeInput()
	input.setReady(true)
	require.NoError(t, input.SetParticipant("bob"))

	err := testProbe(input).WaitReady(context.Background(), "alice", 30*time.Millisecond, false)
	assert.ErrorIs(t, err, ErrMediaTimeout, "audio live but linked to someone else")

	require.NoError(t, input.SetParticipant("alice"))
	err = testProbe(input).WaitReady(context.Background(), "alice", 30*time.Millisecond, false)
	assert.NoError(t, err)
}

func TestProbeSecondarySubscribeTimeoutIsNonFatal(t *testing.T) {
	input := newFakeInput()
	input.setReady(true)
	input.subscribed = make(chan struct{}) // never acknowledged

	err := testProbe(input).WaitReady(context.Background(), "alice", 30*time.Millisecond, true)
	assert.NoError(t, err, "subscribe wait miss must not fail readiness")
}

func TestProbeSecondarySubscribeAcknowledged(t *testing.T) {
	input := newFakeInput()
	input.setReady(true)
	sub := make(chan struct{})
	input.subscribed = sub
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(sub)
	}()

	start := time.Now()
	err := testProbe(input).WaitReady(context.Background(), "alice", time.Second, true)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "returns as soon as the ack arrives")
}

func TestProbeStopsOnCancel(t *testing.T) {
	input := newFakeInput()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := testProbe(input).WaitReady(ctx, "alice", time.Minute, true)
	assert.ErrorIs(t, err, context.Canceled)
}
