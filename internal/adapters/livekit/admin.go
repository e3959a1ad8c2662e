package livekit

import (
	"context"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/hanna-voice/agent/internal/domain"
)

const adminCallTimeout = 5 * time.Second

// Admin implements core.RoomAdmin over the room service API.
type Admin struct {
	svc *lksdk.RoomServiceClient
}

func NewAdmin(url, apiKey, apiSecret string) *Admin {
	return &Admin{svc: lksdk.NewRoomServiceClient(url, apiKey, apiSecret)}
}

func (a *Admin) DeleteRoom(name domain.RoomName) error {
	ctx, cancel := context.WithTimeout(context.Background(), adminCallTimeout)
	defer cancel()
	_, err := a.svc.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: string(name)})
	return err
}
