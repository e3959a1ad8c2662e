// Package gemini realizes the agent's spoken replies with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/hanna-voice/agent/internal/core"
)

// Speaker delivers a finished utterance to the room.
type Speaker interface {
	Speak(text string) error
}

type Settings struct {
	APIKey       string
	Model        string
	Voice        string
	Temperature  float64
	Instructions string
	EnableSearch bool
}

// Client implements core.ReplyChannel. GenerateReply asks the model to
// phrase the utterance; Say pushes the text through verbatim.
type Client struct {
	genai    *genai.Client
	speaker  Speaker
	settings Settings
}

func New(ctx context.Context, settings Settings, speaker Speaker) (*Client, error) {
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	log.Info().Str("module", "adapters.gemini").
		Str("model", settings.Model).
		Str("voice", settings.Voice).
		Bool("search", settings.EnableSearch).
		Msg("reply channel ready")
	return &Client{genai: cl, speaker: speaker, settings: settings}, nil
}

func (c *Client) GenerateReply(ctx context.Context, prompt string) (core.SpeechHandle, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.settings.Temperature)),
	}
	if inst := strings.TrimSpace(c.settings.Instructions); inst != "" {
		cfg.SystemInstruction = genai.NewContentFromText(inst, genai.RoleUser)
	}
	if c.settings.EnableSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.settings.Model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, classify(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty generation", core.ErrBackendNotReady)
	}
	return c.speak(text), nil
}

func (c *Client) Say(_ context.Context, text string) (core.SpeechHandle, error) {
	return c.speak(text), nil
}

func (c *Client) speak(text string) core.SpeechHandle {
	h := &speechHandle{id: uuid.NewString(), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		if err := c.speaker.Speak(text); err != nil {
			h.err = err
			return
		}
		// Model playout duration from utterance length until the transport
		// reports playback positions.
		time.Sleep(playoutEstimate(text))
	}()
	return h
}

// classify maps transient backend failures onto the retryable sentinel.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrBackendNotReady, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 408, 429, 500, 503, 504:
			return fmt.Errorf("%w: %v", core.ErrBackendNotReady, err)
		}
	}
	return err
}

const speakingRate = 15 // runes per second, rough speech pacing

func playoutEstimate(text string) time.Duration {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	return time.Duration(runes) * time.Second / speakingRate
}

type speechHandle struct {
	id   string
	done chan struct{}
	err  error
}

func (h *speechHandle) WaitForPlayout(ctx context.Context) error {
	select {
	case <-h.done:
		if h.err != nil {
			return fmt.Errorf("speech %s failed: %w", h.id, h.err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
