package core

import (
	"context"
	"errors"
)

// ErrBackendNotReady classifies reply-backend failures that are worth
// retrying, typically the generation pipeline still spinning up.
var ErrBackendNotReady = errors.New("reply backend not ready")

// SpeechHandle tracks one utterance through playout.
type SpeechHandle interface {
	WaitForPlayout(ctx context.Context) error
}

// ReplyChannel is the speech side of the agent session. GenerateReply seeds
// the model with a prompt and speaks the result; Say bypasses generation and
// speaks the text verbatim.
type ReplyChannel interface {
	GenerateReply(ctx context.Context, prompt string) (SpeechHandle, error)
	Say(ctx context.Context, text string) (SpeechHandle, error)
}
