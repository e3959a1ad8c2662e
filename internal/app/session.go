package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/config"
	"github.com/hanna-voice/agent/internal/domain"
)

// JobMetadata is the parsed dispatch metadata attached to an agent job.
// Values override the environment configuration per session.
type JobMetadata map[string]any

// ParseJobMetadata tolerates empty and malformed payloads.
func ParseJobMetadata(raw string) JobMetadata {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return JobMetadata{}
	}
	var md JobMetadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		log.Warn().Str("module", "app.session").Err(err).Msg("invalid job metadata; ignoring")
		return JobMetadata{}
	}
	return md
}

func (md JobMetadata) str(key string) (string, bool) {
	v, ok := md[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return strings.TrimSpace(s), ok
}

// SessionSettings is everything the speech backend needs, resolved from
// config, metadata overrides, and the env-managed-room key policy.
type SessionSettings struct {
	Instructions string
	Model        string
	Voice        string
	Temperature  float64
	EnableSearch bool
	GeminiAPIKey string
}

// ResolveRoomName falls back from the connected room to metadata fields.
func ResolveRoomName(roomName string, md JobMetadata) domain.RoomName {
	name := strings.TrimSpace(roomName)
	if name == "" {
		name, _ = md.str("room")
	}
	if name == "" {
		name, _ = md.str("roomName")
	}
	return domain.RoomName(name)
}

// EnvManagedRooms lists rooms whose API key is pinned to the environment,
// ignoring per-job key overrides.
func EnvManagedRooms(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// DeriveSessionSettings layers job-metadata overrides over the base config.
func DeriveSessionSettings(cfg *config.Config, md JobMetadata, roomName domain.RoomName, envManaged map[string]struct{}) SessionSettings {
	settings := SessionSettings{
		Instructions: cfg.Instructions,
		Model:        cfg.Model,
		Voice:        cfg.ResolveVoice(),
		Temperature:  cfg.Temperature,
		GeminiAPIKey: cfg.GeminiAPIKey,
	}

	if v, ok := md.str("instructions"); ok && v != "" {
		settings.Instructions = v
	}
	if v, ok := md.str("model"); ok && v != "" {
		settings.Model = v
	}
	if v, ok := md.str("voice"); ok && v != "" {
		settings.Voice = v
	}
	if v, ok := md["temperature"]; ok {
		if f, ok := toFloat(v); ok {
			settings.Temperature = f
		}
	}
	if v, ok := md["enable_search"]; ok {
		settings.EnableSearch = isTruthy(v)
	} else if v, ok := md["search_enabled"]; ok {
		settings.EnableSearch = isTruthy(v)
	}

	// Env-managed rooms always run on the environment key.
	_, pinned := envManaged[strings.ToLower(string(roomName))]
	if !pinned {
		if v, ok := md.str("gemini_api_key"); ok && v != "" {
			settings.GeminiAPIKey = v
		}
	}
	return settings
}

// RuntimeFlags are the orchestration knobs after metadata overrides.
type RuntimeFlags struct {
	Broadcast        bool
	TerminateOnEmpty bool
	CloseRoomOnEmpty bool
	ShutdownDelay    time.Duration
	GreetingDelay    time.Duration
}

// DeriveRuntimeFlags layers metadata overrides over the configured defaults.
func DeriveRuntimeFlags(cfg *config.Config, md JobMetadata) RuntimeFlags {
	flags := RuntimeFlags{
		Broadcast:        cfg.Broadcast,
		TerminateOnEmpty: cfg.TerminateOnEmpty,
		CloseRoomOnEmpty: cfg.CloseRoomOnEmpty,
		ShutdownDelay:    cfg.ShutdownDelay,
		GreetingDelay:    cfg.GreetingDelay,
	}
	if v, ok := md["multi_participant"]; ok {
		flags.Broadcast = isTruthy(v)
	}
	if v, ok := md["terminate_on_empty"]; ok {
		flags.TerminateOnEmpty = isTruthy(v)
	}
	if v, ok := md["close_room_on_empty"]; ok {
		flags.CloseRoomOnEmpty = isTruthy(v)
	}
	if v, ok := md["room_empty_shutdown_delay"]; ok {
		flags.ShutdownDelay = toDelay(v, flags.ShutdownDelay)
	}
	if v, ok := md["greeting_delay"]; ok {
		flags.GreetingDelay = toDelay(v, flags.GreetingDelay)
	}
	return flags
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case nil:
		return false
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// toDelay reads a metadata delay expressed in seconds; negative and
// malformed values keep the fallback.
func toDelay(v any, fallback time.Duration) time.Duration {
	f, ok := toFloat(v)
	if !ok {
		log.Warn().Str("module", "app.session").Interface("value", v).Msg("invalid delay override; keeping default")
		return fallback
	}
	if f < 0 {
		f = 0
	}
	return time.Duration(f * float64(time.Second))
}
