package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/adapters/gemini"
	lk "github.com/hanna-voice/agent/internal/adapters/livekit"
	"github.com/hanna-voice/agent/internal/app"
	"github.com/hanna-voice/agent/internal/app/greet"
	"github.com/hanna-voice/agent/internal/config"
	"github.com/hanna-voice/agent/internal/core"
	"github.com/hanna-voice/agent/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	md := app.ParseJobMetadata(cfg.JobMetadataJSON)
	flags := app.DeriveRuntimeFlags(cfg, md)
	roomName := app.ResolveRoomName(cfg.RoomName, md)
	if roomName == "" {
		log.Fatal().Msg("no room name configured (VOICE_AGENT_ROOM_NAME or job metadata)")
	}
	settings := app.DeriveSessionSettings(cfg, md, roomName,
		app.EnvManagedRooms(cfg.DefaultRoom, cfg.DemoRoom))

	room, err := lk.Connect(lk.ConnectOptions{
		URL:       cfg.LiveKitURL,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		RoomName:  roomName,
		Identity:  domain.Identity(cfg.AgentName),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to join room")
	}

	replies, err := gemini.New(ctx, gemini.Settings{
		APIKey:       settings.GeminiAPIKey,
		Model:        settings.Model,
		Voice:        settings.Voice,
		Temperature:  settings.Temperature,
		Instructions: settings.Instructions,
		EnableSearch: settings.EnableSearch,
	}, room)
	if err != nil {
		room.Disconnect()
		log.Fatal().Err(err).Msg("failed to start reply channel")
	}

	var admin core.RoomAdmin
	if flags.CloseRoomOnEmpty {
		admin = lk.NewAdmin(cfg.LiveKitURL, cfg.APIKey, cfg.APISecret)
	}

	job := app.NewJobContext()
	input := room.Input()
	link := greet.NewLinkController(input, greet.LinkConfig{
		Broadcast: flags.Broadcast,
		Allowed:   cfg.Kinds(),
		Agent:     room.LocalIdentity(),
	})
	sched := greet.NewShutdownScheduler(room, admin, job, greet.ShutdownConfig{
		Enabled:   flags.TerminateOnEmpty,
		CloseRoom: flags.CloseRoomOnEmpty,
		Delay:     flags.ShutdownDelay,
	})
	orch := greet.NewOrchestrator(room, input, link, greet.NewDeliverer(replies), sched, greet.Options{
		Broadcast:     flags.Broadcast,
		GreetingText:  cfg.GreetingText,
		GreetingDelay: flags.GreetingDelay,
		MediaTimeout:  cfg.MediaTimeout,
		PollInterval:  cfg.PollInterval,
	})

	orch.Attach(ctx)
	job.AddShutdownCallback(func(reason string) {
		orch.Detach()
		room.Disconnect()
	})

	log.Info().Str("room", string(roomName)).Str("agent", cfg.AgentName).Msg("voice agent started")

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		job.Shutdown("signal")
	case <-job.Done():
	}
	<-job.Done()
	log.Info().Str("reason", job.Reason()).Msg("Agent exited gracefully")
}
