package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hanna-voice/agent/internal/config"
	"github.com/hanna-voice/agent/internal/domain"
)

func baseConfig() *config.Config {
	return &config.Config{
		Instructions:     "be helpful",
		Model:            "gemini-2.5-flash",
		Voice:            "Charis",
		Temperature:      0.8,
		GeminiAPIKey:     "env-key",
		Broadcast:        false,
		TerminateOnEmpty: true,
		CloseRoomOnEmpty: true,
		ShutdownDelay:    3 * time.Second,
		GreetingDelay:    500 * time.Millisecond,
	}
}

func TestParseJobMetadata(t *testing.T) {
	assert.Empty(t, ParseJobMetadata(""))
	assert.Empty(t, ParseJobMetadata("not json"))
	md := ParseJobMetadata(`{"voice":"Puck","temperature":1.2}`)
	assert.Equal(t, "Puck", md["voice"])
}

func TestResolveRoomNameFallbacks(t *testing.T) {
	assert.Equal(t, domain.RoomName("main"), ResolveRoomName(" main ", nil))
	assert.Equal(t, domain.RoomName("md-room"),
		ResolveRoomName("", JobMetadata{"room": "md-room"}))
	assert.Equal(t, domain.RoomName("camel"),
		ResolveRoomName("", JobMetadata{"roomName": "camel"}))
	assert.Equal(t, domain.RoomName(""), ResolveRoomName("", JobMetadata{}))
}

func TestDeriveSessionSettingsOverrides(t *testing.T) {
	md := ParseJobMetadata(`{
		"voice": "Puck",
		"model": "gemini-exp",
		"temperature": 1.1,
		"enable_search": "yes",
		"gemini_api_key": "job-key"
	}`)

	s := DeriveSessionSettings(baseConfig(), md, "any-room", nil)
	assert.Equal(t, "Puck", s.Voice)
	assert.Equal(t, "gemini-exp", s.Model)
	assert.InDelta(t, 1.1, s.Temperature, 1e-9)
	assert.True(t, s.EnableSearch)
	assert.Equal(t, "job-key", s.GeminiAPIKey)
}

func TestDeriveSessionSettingsKeepsDefaults(t *testing.T) {
	s := DeriveSessionSettings(baseConfig(), JobMetadata{}, "any-room", nil)
	assert.Equal(t, "Charis", s.Voice)
	assert.Equal(t, "gemini-2.5-flash", s.Model)
	assert.InDelta(t, 0.8, s.Temperature, 1e-9)
	assert.False(t, s.EnableSearch)
	assert.Equal(t, "env-key", s.GeminiAPIKey)
}

func TestEnvManagedRoomPinsAPIKey(t *testing.T) {
	md := JobMetadata{"gemini_api_key": "job-key"}
	managed := EnvManagedRooms("Demo-Room", "")

	pinned := DeriveSessionSettings(baseConfig(), md, "demo-room", managed)
	assert.Equal(t, "env-key", pinned.GeminiAPIKey, "env-managed rooms ignore the job key")

	free := DeriveSessionSettings(baseConfig(), md, "other-room", managed)
	assert.Equal(t, "job-key", free.GeminiAPIKey)
}

func TestDeriveRuntimeFlags(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want RuntimeFlags
	}{
		{
			name: "no overrides",
			md:   `{}`,
			want: RuntimeFlags{
				TerminateOnEmpty: true,
				CloseRoomOnEmpty: true,
				ShutdownDelay:    3 * time.Second,
				GreetingDelay:    500 * time.Millisecond,
			},
		},
		{
			name: "flags flipped",
			md:   `{"multi_participant": true, "terminate_on_empty": "off", "close_room_on_empty": 0}`,
			want: RuntimeFlags{
				Broadcast:     true,
				ShutdownDelay: 3 * time.Second,
				GreetingDelay: 500 * time.Millisecond,
			},
		},
		{
			name: "delays in seconds",
			md:   `{"room_empty_shutdown_delay": 1.5, "greeting_delay": "2"}`,
			want: RuntimeFlags{
				TerminateOnEmpty: true,
				CloseRoomOnEmpty: true,
				ShutdownDelay:    1500 * time.Millisecond,
				GreetingDelay:    2 * time.Second,
			},
		},
		{
			name: "negative and malformed delays",
			md:   `{"room_empty_shutdown_delay": -4, "greeting_delay": "soon"}`,
			want: RuntimeFlags{
				TerminateOnEmpty: true,
				CloseRoomOnEmpty: true,
				ShutdownDelay:    0,
				GreetingDelay:    500 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRuntimeFlags(baseConfig(), ParseJobMetadata(tt.md))
			assert.Equal(t, tt.want, got)
		})
	}
}
