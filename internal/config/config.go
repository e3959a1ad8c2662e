package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hanna-voice/agent/internal/domain"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	LiveKitURL string `mapstructure:"livekit_url"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`

	AgentName string `mapstructure:"agent_name"`
	RoomName  string `mapstructure:"room_name"`

	Broadcast        bool          `mapstructure:"multi_participant"`
	TerminateOnEmpty bool          `mapstructure:"terminate_on_empty"`
	CloseRoomOnEmpty bool          `mapstructure:"close_room_on_empty"`
	ShutdownDelay    time.Duration `mapstructure:"room_empty_shutdown_delay"`
	GreetingDelay    time.Duration `mapstructure:"greeting_delay"`
	MediaTimeout     time.Duration `mapstructure:"media_ready_timeout"`
	PollInterval     time.Duration `mapstructure:"participant_poll_interval"`
	GreetingText     string        `mapstructure:"greeting_text"`
	AllowedKinds     []string      `mapstructure:"allowed_participant_kinds"`

	Model           string  `mapstructure:"gemini_model"`
	Voice           string  `mapstructure:"gemini_tts_voice"`
	VoiceDefault    string  `mapstructure:"gemini_tts_voice_default"`
	Temperature     float64 `mapstructure:"gemini_temperature"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key"`
	Instructions    string  `mapstructure:"instructions"`
	PromptFile      string  `mapstructure:"prompt_file"`
	DefaultRoom     string  `mapstructure:"default_room"`
	DemoRoom        string  `mapstructure:"demo_room"`
	JobMetadataJSON string  `mapstructure:"job_metadata"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("voice_agent")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("livekit_url", "ws://localhost:7880")
	v.SetDefault("agent_name", "Hanna")
	v.SetDefault("multi_participant", false)
	v.SetDefault("terminate_on_empty", true)
	v.SetDefault("close_room_on_empty", true)
	v.SetDefault("room_empty_shutdown_delay", "3s")
	v.SetDefault("greeting_delay", "500ms")
	v.SetDefault("media_ready_timeout", "10s")
	v.SetDefault("participant_poll_interval", "5s")
	v.SetDefault("greeting_text",
		"Привітай користувача, ввічливо назви себе Ганною та коротко запропонуй допомогу")
	v.SetDefault("allowed_participant_kinds", []string{"standard", "sip"})
	v.SetDefault("gemini_model", "gemini-2.5-flash-native-audio-preview-09-2025")
	v.SetDefault("gemini_tts_voice_default", "Charis")
	v.SetDefault("gemini_temperature", 0.8)
	v.SetDefault("prompt_file", "prompt.md")

	// AutomaticEnv only resolves keys viper already knows about, so every
	// env-overridable key needs a registered default even when it is empty.
	v.SetDefault("room_name", "")
	v.SetDefault("default_room", "")
	v.SetDefault("demo_room", "")
	v.SetDefault("job_metadata", "")
	v.SetDefault("gemini_tts_voice", "")
	v.SetDefault("instructions", "")

	// Keys shared with the LiveKit/Gemini SDK conventions keep their
	// unprefixed names.
	for cfgKey, envVar := range map[string]string{
		"api_key":        "LIVEKIT_API_KEY",
		"api_secret":     "LIVEKIT_API_SECRET",
		"livekit_url":    "LIVEKIT_URL",
		"gemini_api_key": "GEMINI_API_KEY",
	} {
		if err := v.BindEnv(cfgKey, envVar); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envVar, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	if v.GetString("gemini_api_key") == "" {
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			v.Set("gemini_api_key", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.ShutdownDelay < 0 {
		cfg.ShutdownDelay = 0
	}
	if cfg.GreetingDelay < 0 {
		cfg.GreetingDelay = 0
	}
	if cfg.Instructions == "" {
		cfg.Instructions = readPromptFile(cfg.PromptFile)
	}
	return &cfg, nil
}

// Kinds resolves the allow-list tokens, skipping unknown ones.
func (c *Config) Kinds() []domain.ParticipantKind {
	out := make([]domain.ParticipantKind, 0, len(c.AllowedKinds))
	for _, raw := range c.AllowedKinds {
		kind, err := domain.ParseParticipantKind(raw)
		if err != nil {
			fmt.Printf("⚠️ Skipping unknown participant kind %q\n", raw)
			continue
		}
		out = append(out, kind)
	}
	if len(out) == 0 {
		out = []domain.ParticipantKind{domain.KindStandard, domain.KindSIP}
	}
	return out
}

// ResolveVoice applies the final voice fallback chain.
func (c *Config) ResolveVoice() string {
	if v := strings.TrimSpace(c.Voice); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.VoiceDefault); v != "" {
		return v
	}
	return "Charis"
}

func readPromptFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
